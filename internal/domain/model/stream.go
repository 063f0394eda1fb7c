package model

import "time"

// StreamEventType ストリーミングイベントの種類
type StreamEventType string

const (
	StreamEventStepStart    StreamEventType = "step_start"
	StreamEventThinking     StreamEventType = "thinking"
	StreamEventStepComplete StreamEventType = "step_complete"
	StreamEventRoutes       StreamEventType = "routes"
	StreamEventDone         StreamEventType = "done"
	StreamEventError        StreamEventType = "error"
)

// StreamEvent SSEで配信するイベント
type StreamEvent struct {
	Event     StreamEventType `json:"event"`
	EventID   string          `json:"event_id"`
	StepName  string          `json:"step_name,omitempty"`
	StepIndex *int            `json:"step_index,omitempty"`
	Content   string          `json:"content,omitempty"`
	Data      any             `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// IsTerminal は done / error のように配信を終えるイベントかどうかを返す
func (e StreamEvent) IsTerminal() bool {
	return e.Event == StreamEventDone || e.Event == StreamEventError
}

// パイプラインのステップ名
const (
	StepNameExtraction = "目的地抽出"
	StepNameGeneration = "ルート候補生成"
	StepNameEvaluation = "ルート評価"
)
