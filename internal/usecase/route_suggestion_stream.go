package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

const (
	streamBufferSize = 32

	stepIndexExtraction = 0
	stepIndexGeneration = 1
	stepIndexEvaluation = 2
)

// streamEmitter はイベントをチャネルに送る。コンテキストが終了したら送信をやめる
type streamEmitter struct {
	ctx    context.Context
	events chan<- model.StreamEvent
	now    func() time.Time
}

func (s *streamEmitter) send(ev model.StreamEvent) bool {
	if s.ctx.Err() != nil {
		return false
	}
	ev.EventID = uuid.NewString()
	ev.Timestamp = s.now()
	select {
	case <-s.ctx.Done():
		return false
	case s.events <- ev:
		return true
	}
}

func (s *streamEmitter) stepStart(index int, name string) bool {
	return s.send(model.StreamEvent{Event: model.StreamEventStepStart, StepName: name, StepIndex: &index})
}

func (s *streamEmitter) thinking(index int, token string) bool {
	if token == "" {
		return true
	}
	return s.send(model.StreamEvent{Event: model.StreamEventThinking, StepIndex: &index, Content: token})
}

func (s *streamEmitter) stepComplete(index int, name, content string, data any) bool {
	return s.send(model.StreamEvent{
		Event:     model.StreamEventStepComplete,
		StepName:  name,
		StepIndex: &index,
		Content:   content,
		Data:      data,
	})
}

func (s *streamEmitter) fail(err error) {
	// 送れなかった場合は受信側がもういない
	s.send(model.StreamEvent{Event: model.StreamEventError, Content: err.Error()})
}

// SuggestRouteStream はルート提案の途中経過を配信する
func (u *routeSuggestionUsecaseImpl) SuggestRouteStream(ctx context.Context, req *model.SuggestRouteRequest) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent, streamBufferSize)

	go func() {
		defer close(events)
		emitter := &streamEmitter{ctx: ctx, events: events, now: u.now}

		defer func() {
			if r := recover(); r != nil {
				u.logger.Error("❌ ストリーミング処理でパニック", zap.Any("panic", r))
				emitter.fail(fmt.Errorf("%v", r))
			}
		}()

		if err := u.runStream(ctx, req, emitter); err != nil {
			if ctx.Err() != nil {
				u.logger.Info("ストリーミングが中断されました", zap.Error(ctx.Err()))
				return
			}
			u.logger.Error("❌ ストリーミング処理に失敗", zap.Error(err))
			emitter.fail(err)
		}
	}()

	return events
}

func (u *routeSuggestionUsecaseImpl) runStream(ctx context.Context, req *model.SuggestRouteRequest, s *streamEmitter) error {
	run, err := u.newRun(req)
	if err != nil {
		return err
	}
	u.logger.Info("🚀 ルート提案開始（ストリーミング）", zap.String("request_id", run.requestID), zap.String("query", req.Query))

	// Step 1: 目的地抽出
	if !s.stepStart(stepIndexExtraction, model.StepNameExtraction) {
		return ctx.Err()
	}
	stepStart := u.now()
	run.extraction = model.NewEmptyExtraction(req.Query)
	for token, extraction := range u.extractor.ExtractStream(ctx, req.Query, u.cfg.UseRAG) {
		if extraction != nil {
			run.extraction = *extraction
			continue
		}
		if !s.thinking(stepIndexExtraction, token) {
			return ctx.Err()
		}
	}
	u.recordLLMStep(run, model.StepNameExtraction, u.llm.ModelNameFast(), stepStart)
	observeStep("extraction", stepStart, u.now())
	if !s.stepComplete(stepIndexExtraction, model.StepNameExtraction, "", run.extraction) {
		return ctx.Err()
	}

	// Step 2: ルート候補生成
	if !s.stepStart(stepIndexGeneration, model.StepNameGeneration) {
		return ctx.Err()
	}
	stepStart = u.now()
	u.generate(run)
	observeStep("generation", stepStart, u.now())
	if !s.stepComplete(stepIndexGeneration, model.StepNameGeneration, fmt.Sprintf("%d件の候補を生成", len(run.candidates)), nil) {
		return ctx.Err()
	}

	// Step 3: ルート評価
	if !s.stepStart(stepIndexEvaluation, model.StepNameEvaluation) {
		return ctx.Err()
	}
	if len(run.candidates) == 0 {
		if !s.stepComplete(stepIndexEvaluation, model.StepNameEvaluation, "候補がないため評価をスキップしました", nil) {
			return ctx.Err()
		}
	} else {
		rc := u.routingContext(ctx, run)
		stepStart = u.now()
		for token, rec := range u.evaluator.EvaluateStream(ctx, rc) {
			if rec != nil {
				run.rec = rec
				continue
			}
			if !s.thinking(stepIndexEvaluation, token) {
				return ctx.Err()
			}
		}
		u.recordLLMStep(run, model.StepNameEvaluation, u.llm.ModelName(), stepStart)
		observeStep("evaluation", stepStart, u.now())
		if !s.stepComplete(stepIndexEvaluation, model.StepNameEvaluation, "", run.rec) {
			return ctx.Err()
		}
	}

	resp := u.buildResponse(run)
	if !s.send(model.StreamEvent{Event: model.StreamEventRoutes, Data: resp}) {
		return ctx.Err()
	}
	s.send(model.StreamEvent{Event: model.StreamEventDone})

	u.logger.Info("✅ ルート提案完了（ストリーミング）",
		zap.String("request_id", run.requestID),
		zap.Int("routes", len(resp.Routes)),
	)
	return nil
}
