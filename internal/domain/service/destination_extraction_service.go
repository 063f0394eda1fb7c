package service

import (
	"context"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// DestinationExtractor は自然言語の要望から経由地と希望条件を抽出する
type DestinationExtractor struct {
	llm        ai.ChatClient
	knowledge  *KnowledgeSearch
	ragResults int
	ragTokens  int
	logger     *zap.Logger
}

// NewDestinationExtractor は新しい抽出サービスを生成する。knowledge が nil ならRAGは使わない
func NewDestinationExtractor(llm ai.ChatClient, knowledge *KnowledgeSearch, cfg config.RoutingConfig, l *zap.Logger) *DestinationExtractor {
	ragResults, ragTokens := cfg.RAGResults, cfg.RAGContextTokens
	if ragResults <= 0 {
		ragResults = 5
	}
	if ragTokens <= 0 {
		ragTokens = 800
	}
	return &DestinationExtractor{
		llm:        llm,
		knowledge:  knowledge,
		ragResults: ragResults,
		ragTokens:  ragTokens,
		logger:     logger.OrNop(l),
	}
}

// Extract は要望を抽出する。LLMやパースに失敗しても空の抽出結果を返し、エラーにはしない
func (e *DestinationExtractor) Extract(ctx context.Context, query string, useRAG bool) model.DestinationExtraction {
	messages := BuildDestinationExtractionPrompt(query, e.locationContext(query, useRAG))

	response, err := e.llm.ChatFast(ctx, messages, nil)
	if err != nil {
		e.logger.Warn("⚠️ 目的地抽出のLLM呼び出しに失敗", zap.Error(err))
		return model.NewEmptyExtraction(query)
	}
	return e.parse(response, query)
}

// ExtractStream はトークンを (token, nil) で流し、最後に ("", 抽出結果) を1回だけ返す
func (e *DestinationExtractor) ExtractStream(ctx context.Context, query string, useRAG bool) iter.Seq2[string, *model.DestinationExtraction] {
	return func(yield func(string, *model.DestinationExtraction) bool) {
		messages := BuildDestinationExtractionPrompt(query, e.locationContext(query, useRAG))

		var accumulated strings.Builder
		for token, err := range e.llm.ChatStream(ctx, messages, ai.ChatOptions{Model: e.llm.ModelNameFast()}) {
			if err != nil {
				e.logger.Warn("⚠️ 目的地抽出のストリーミングが中断されました", zap.Error(err))
				break
			}
			accumulated.WriteString(token)
			if !yield(token, nil) {
				return
			}
		}

		extraction := e.parse(accumulated.String(), query)
		yield("", &extraction)
	}
}

func (e *DestinationExtractor) locationContext(query string, useRAG bool) string {
	if !useRAG || e.knowledge == nil {
		return ""
	}
	return e.knowledge.ContextForLLM(query, e.ragResults, e.ragTokens)
}

// parse はLLMの応答を抽出結果に変換する。
// name・type・order が揃っていない経由地は個別に捨て、同じ order の経由地は最初の1件だけ残す
func (e *DestinationExtractor) parse(response, query string) model.DestinationExtraction {
	data, err := decodeJSONObject(response)
	if err != nil {
		e.logger.Warn("⚠️ 目的地抽出の応答をパースできませんでした", zap.Error(err))
		return model.NewEmptyExtraction(query)
	}
	if err := validateAgainst(extractionSchema, data); err != nil {
		e.logger.Warn("⚠️ 目的地抽出の応答が不正です", zap.Error(err))
		return model.NewEmptyExtraction(query)
	}

	rawWaypoints, _ := data["waypoints"].([]any)
	delete(data, "waypoints")

	extraction := model.NewEmptyExtraction(query)
	if err := remarshal(data, &extraction); err != nil {
		e.logger.Warn("⚠️ 目的地抽出の応答を変換できませんでした", zap.Error(err))
		return model.NewEmptyExtraction(query)
	}
	extraction.OriginalQuery = query
	extraction.Waypoints = e.parseWaypoints(rawWaypoints)
	normalizeExtractionLists(&extraction)
	return extraction
}

func (e *DestinationExtractor) parseWaypoints(raw []any) []model.ExtractedWaypoint {
	waypoints := make([]model.ExtractedWaypoint, 0, len(raw))
	seenOrders := make(map[int]struct{})

	for i, item := range raw {
		if err := validateAgainst(waypointSchema, item); err != nil {
			e.logger.Debug("経由地をスキップ", zap.Int("index", i), zap.Error(err))
			continue
		}
		var wp model.ExtractedWaypoint
		if err := remarshal(item, &wp); err != nil {
			e.logger.Debug("経由地をスキップ", zap.Int("index", i), zap.Error(err))
			continue
		}
		if _, dup := seenOrders[wp.Order]; dup {
			e.logger.Debug("orderが重複した経由地をスキップ", zap.String("name", wp.Name), zap.Int("order", wp.Order))
			continue
		}
		seenOrders[wp.Order] = struct{}{}
		waypoints = append(waypoints, wp)
	}
	return waypoints
}

// normalizeExtractionLists は null で上書きされたリストを空に戻す
func normalizeExtractionLists(e *model.DestinationExtraction) {
	if e.FacilityTypes == nil {
		e.FacilityTypes = []string{}
	}
	if e.Amenities == nil {
		e.Amenities = []string{}
	}
	if e.Atmosphere == nil {
		e.Atmosphere = []string{}
	}
	if e.Activities == nil {
		e.Activities = []string{}
	}
}
