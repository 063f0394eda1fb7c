package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

const (
	defaultRecommendationConfidence = 0.3
	defaultFollowUpQuestion         = "詳細な条件を教えていただけますか？"
	defaultReasoningStep            = "パースエラーによりデフォルト推奨"
)

// RouteEvaluator はルート候補をLLMに比較させて推奨を得る
type RouteEvaluator struct {
	llm    ai.ChatClient
	logger *zap.Logger
}

func NewRouteEvaluator(llm ai.ChatClient, l *zap.Logger) *RouteEvaluator {
	return &RouteEvaluator{llm: llm, logger: logger.OrNop(l)}
}

// Evaluate は推奨結果を返す。LLMやパースに失敗した場合は候補順のデフォルト推奨を返す
func (e *RouteEvaluator) Evaluate(ctx context.Context, rc model.RoutingContext) model.RouteRecommendation {
	response, err := e.llm.Chat(ctx, BuildRouteEvaluationPrompt(rc), ai.ChatOptions{})
	if err != nil {
		e.logger.Warn("⚠️ ルート評価のLLM呼び出しに失敗", zap.Error(err))
		return defaultRecommendation(rc, err)
	}
	return e.parse(response, rc)
}

// EvaluateStream はトークンを (token, nil) で流し、最後に ("", 推奨結果) を1回だけ返す
func (e *RouteEvaluator) EvaluateStream(ctx context.Context, rc model.RoutingContext) iter.Seq2[string, *model.RouteRecommendation] {
	return func(yield func(string, *model.RouteRecommendation) bool) {
		var accumulated strings.Builder
		for token, err := range e.llm.ChatStream(ctx, BuildRouteEvaluationPrompt(rc), ai.ChatOptions{}) {
			if err != nil {
				e.logger.Warn("⚠️ ルート評価のストリーミングが中断されました", zap.Error(err))
				break
			}
			accumulated.WriteString(token)
			if !yield(token, nil) {
				return
			}
		}

		recommendation := e.parse(accumulated.String(), rc)
		yield("", &recommendation)
	}
}

func (e *RouteEvaluator) parse(response string, rc model.RoutingContext) model.RouteRecommendation {
	data, err := decodeJSONObject(response)
	if err != nil {
		e.logger.Warn("⚠️ ルート評価の応答をパースできませんでした", zap.Error(err))
		return defaultRecommendation(rc, err)
	}
	if err := validateAgainst(recommendationSchema, data); err != nil {
		e.logger.Warn("⚠️ ルート評価の応答が不正です", zap.Error(err))
		return defaultRecommendation(rc, err)
	}

	var rec model.RouteRecommendation
	if err := remarshal(data, &rec); err != nil {
		return defaultRecommendation(rc, err)
	}
	if rec.ReasoningSteps == nil {
		rec.ReasoningSteps = []string{}
	}
	return rec
}

// defaultRecommendation は候補を元の順序のまま並べ、先頭を推奨する
func defaultRecommendation(rc model.RoutingContext, cause error) model.RouteRecommendation {
	ids := make([]string, 0, len(rc.RouteCandidates))
	for _, c := range rc.RouteCandidates {
		ids = append(ids, c.ID)
	}
	recommended := ""
	if len(ids) > 0 {
		recommended = ids[0]
	}
	followUp := defaultFollowUpQuestion
	return model.RouteRecommendation{
		Ranking:          ids,
		RecommendedID:    recommended,
		Explanation:      fmt.Sprintf("レスポンスのパースに失敗しました。最初の候補を推奨します。エラー: %v", cause),
		Confidence:       defaultRecommendationConfidence,
		FollowUpQuestion: &followUp,
		ReasoningSteps:   []string{defaultReasoningStep},
	}
}
