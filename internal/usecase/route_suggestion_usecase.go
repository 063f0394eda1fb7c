package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/domain/service"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
	"github.com/shokugyo/not-a-car/internal/infrastructure/metrics"
)

// ErrEmptyQuery はクエリが空の場合のエラー
var ErrEmptyQuery = errors.New("クエリが空です")

type RouteSuggestionUsecase interface {
	// SuggestRoute は 目的地抽出 → 候補生成 → 評価 → 整形 を順に実行してルート提案を返す
	SuggestRoute(ctx context.Context, req *model.SuggestRouteRequest) (*model.SuggestRouteResponse, error)

	// SuggestRouteStream は同じ処理の途中経過をイベントとして配信する。
	// 最後のイベントは done か error で、その後チャネルは閉じられる
	SuggestRouteStream(ctx context.Context, req *model.SuggestRouteRequest) <-chan model.StreamEvent
}

// routeSuggestionUsecaseImpl はRouteSuggestionUsecaseの実装
type routeSuggestionUsecaseImpl struct {
	llm       ai.ChatClient
	extractor *service.DestinationExtractor
	generator *service.RouteCandidateGenerator
	evaluator *service.RouteEvaluator
	builder   *service.RouteBuilderHelper
	vehicles  repository.VehicleStateRepository
	cfg       config.RoutingConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRouteSuggestionUsecase は新しいRouteSuggestionUsecaseインスタンスを作成する。
// vehicles が nil の場合は常に既定の車両状態を使う
func NewRouteSuggestionUsecase(
	llm ai.ChatClient,
	extractor *service.DestinationExtractor,
	generator *service.RouteCandidateGenerator,
	evaluator *service.RouteEvaluator,
	builder *service.RouteBuilderHelper,
	vehicles repository.VehicleStateRepository,
	cfg config.RoutingConfig,
	l *zap.Logger,
) RouteSuggestionUsecase {
	return &routeSuggestionUsecaseImpl{
		llm:       llm,
		extractor: extractor,
		generator: generator,
		evaluator: evaluator,
		builder:   builder,
		vehicles:  vehicles,
		cfg:       cfg,
		logger:    logger.OrNop(l),
		now:       time.Now,
	}
}

// pipelineRun は1リクエスト分の途中結果
type pipelineRun struct {
	requestID  string
	start      time.Time
	req        *model.SuggestRouteRequest
	origin     model.Coordinates
	extraction model.DestinationExtraction
	candidates []model.RouteFeatures
	rec        *model.RouteRecommendation
	steps      []model.LLMStepMetadata
}

func (u *routeSuggestionUsecaseImpl) newRun(req *model.SuggestRouteRequest) (*pipelineRun, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	origin := model.DefaultOrigin
	if req.Origin != nil {
		origin = *req.Origin
	}
	return &pipelineRun{
		requestID: uuid.NewString(),
		start:     u.now(),
		req:       req,
		origin:    origin,
	}, nil
}

// SuggestRoute はルート提案を同期的に生成する
func (u *routeSuggestionUsecaseImpl) SuggestRoute(ctx context.Context, req *model.SuggestRouteRequest) (*model.SuggestRouteResponse, error) {
	run, err := u.newRun(req)
	if err != nil {
		return nil, err
	}
	u.logger.Info("🚀 ルート提案開始", zap.String("request_id", run.requestID), zap.String("query", req.Query))

	// Step 1: 目的地抽出
	stepStart := u.now()
	run.extraction = u.extractor.Extract(ctx, req.Query, u.cfg.UseRAG)
	u.recordLLMStep(run, model.StepNameExtraction, u.llm.ModelNameFast(), stepStart)
	observeStep("extraction", stepStart, u.now())

	// Step 2: ルート候補生成
	stepStart = u.now()
	u.generate(run)
	observeStep("generation", stepStart, u.now())

	// Step 3: ルート評価（候補がなければ省略）
	if len(run.candidates) > 0 {
		rc := u.routingContext(ctx, run)
		stepStart = u.now()
		rec := u.evaluator.Evaluate(ctx, rc)
		run.rec = &rec
		u.recordLLMStep(run, model.StepNameEvaluation, u.llm.ModelName(), stepStart)
		observeStep("evaluation", stepStart, u.now())
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ルート提案が中断されました: %w", err)
	}

	resp := u.buildResponse(run)
	u.logger.Info("✅ ルート提案完了",
		zap.String("request_id", run.requestID),
		zap.Int("routes", len(resp.Routes)),
		zap.Int64("duration_ms", resp.Processing.TotalDurationMs),
	)
	return resp, nil
}

func (u *routeSuggestionUsecaseImpl) generate(run *pipelineRun) {
	origin := orb.Point{run.origin.Longitude, run.origin.Latitude}
	run.candidates = u.generator.Generate(origin, run.extraction, u.cfg.CandidateCount, u.now())
	if len(run.candidates) > model.MaxRouteCandidates {
		run.candidates = run.candidates[:model.MaxRouteCandidates]
	}
	metrics.RouteCandidatesGenerated.Observe(float64(len(run.candidates)))
	u.logger.Debug("ルート候補を生成", zap.String("request_id", run.requestID), zap.Int("count", len(run.candidates)))
}

// routingContext は評価用のコンテキストを組み立てる。車両状態が取れなければ既定値
func (u *routeSuggestionUsecaseImpl) routingContext(ctx context.Context, run *pipelineRun) model.RoutingContext {
	preferences := run.req.Preferences
	if preferences == nil {
		preferences = []string{}
	}
	return model.RoutingContext{
		UserRequest: model.UserRequest{
			Text:           run.req.Query,
			DesiredArrival: run.req.DesiredArrival,
			Preferences:    preferences,
		},
		CurrentTime:     u.now(),
		VehicleState:    u.vehicleSnapshot(ctx, run),
		RouteCandidates: run.candidates,
	}
}

func (u *routeSuggestionUsecaseImpl) vehicleSnapshot(ctx context.Context, run *pipelineRun) model.VehicleState {
	if run.req.VehicleID == nil || u.vehicles == nil {
		return model.DefaultVehicleState(run.origin)
	}
	state, err := u.vehicles.GetVehicleState(ctx, *run.req.VehicleID)
	if err != nil {
		u.logger.Warn("⚠️ 車両状態の取得に失敗、既定値を使用",
			zap.Int64("vehicle_id", *run.req.VehicleID),
			zap.Error(err),
		)
		return model.DefaultVehicleState(run.origin)
	}
	return *state
}

// recordLLMStep はLLMステップの所要時間と実際に応答したプロバイダーを記録する
func (u *routeSuggestionUsecaseImpl) recordLLMStep(run *pipelineRun, name, modelName string, start time.Time) {
	run.steps = append(run.steps, model.LLMStepMetadata{
		StepName:   name,
		ModelName:  modelName,
		DurationMs: u.now().Sub(start).Milliseconds(),
		Provider:   string(u.llm.Provider()),
	})
}

func (u *routeSuggestionUsecaseImpl) buildResponse(run *pipelineRun) *model.SuggestRouteResponse {
	now := u.now()
	routes := u.builder.BuildRoutes(run.candidates, run.rec, run.extraction, now)

	processing := model.ProcessingMetadata{
		RequestID:      run.requestID,
		Steps:          run.steps,
		ReasoningSteps: []string{},
	}
	if processing.Steps == nil {
		processing.Steps = []model.LLMStepMetadata{}
	}
	if run.rec != nil {
		processing.ReasoningSteps = run.rec.ReasoningSteps
		processing.Confidence = run.rec.Confidence
		processing.FollowUp = run.rec.FollowUpQuestion
	}
	processing.TotalDurationMs = now.Sub(run.start).Milliseconds()

	return &model.SuggestRouteResponse{
		Routes:      routes,
		Query:       run.req.Query,
		GeneratedAt: now.Format(time.RFC3339),
		Processing:  processing,
	}
}

func observeStep(step string, start, end time.Time) {
	metrics.RouteSuggestionStepDuration.WithLabelValues(step).Observe(end.Sub(start).Seconds())
}
