package ai

import (
	"context"
	"iter"
	"strings"
)

const (
	mockModel     = "mock-model"
	mockModelFast = "mock-model-fast"
)

// 固定応答
const (
	mockExtractionResponse = "```json\n" + `{"waypoints": [{"name": "箱根温泉", "type": "final", "order": 0, "purpose": null, "duration_hint": null}], "facility_types": ["温泉"], "amenities": ["EV充電"], "atmosphere": ["静か"], "activities": ["リフレッシュ"], "time_constraints": null, "distance_preference": null, "original_query": ""}` + "\n```"

	mockEvaluationResponse = "```json\n" + `{"ranking": ["A", "B", "C"], "recommended_id": "A", "explanation": "ルートAは静かな環境で、希望の到着時刻に余裕を持って到着できます。充電設備も完備しており、翌朝の移動にも安心です。", "confidence": 0.85, "follow_up_question": null, "reasoning_steps": ["ユーザーは静かな場所を希望", "ルートAは到着時刻に余裕あり", "充電設備があるためバッテリー残量の心配なし"]}` + "\n```"

	mockDefaultResponse = "APIキーが設定されていないため、モックレスポンスを返しています。実際のAI機能を使用するには、環境変数を設定してください。"
)

// MockClient はプロンプトの内容に応じて固定の応答を返すクライアント。
// フォールバックチェーンの最後の砦として常に成功する
type MockClient struct{}

var _ ChatClient = (*MockClient)(nil)

// NewMockClient は新しいMockClientインスタンスを作成
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Provider() Provider    { return ProviderMock }
func (c *MockClient) IsAvailable() bool     { return true }
func (c *MockClient) ModelName() string     { return mockModel }
func (c *MockClient) ModelNameFast() string { return mockModelFast }
func (c *MockClient) Close() error          { return nil }

func (c *MockClient) Chat(_ context.Context, messages []Message, _ ChatOptions) (string, error) {
	return MockResponse(messages), nil
}

func (c *MockClient) ChatFast(_ context.Context, messages []Message, _ *float64) (string, error) {
	return MockResponse(messages), nil
}

// ChatStream は応答を1文字ずつ返す
func (c *MockClient) ChatStream(ctx context.Context, messages []Message, _ ChatOptions) iter.Seq2[string, error] {
	response := MockResponse(messages)
	return func(yield func(string, error) bool) {
		for _, r := range response {
			if ctx.Err() != nil {
				return
			}
			if !yield(string(r), nil) {
				return
			}
		}
	}
}

func (c *MockClient) HealthCheck(_ context.Context) HealthStatus {
	return HealthStatus{Provider: ProviderMock, Healthy: true, LatencyMs: 0.1}
}

// MockResponse はメッセージ内容に基づいた固定応答を返す
func MockResponse(messages []Message) string {
	last, system := lastContent(messages)

	// 目的地抽出
	if strings.Contains(last, "目的地情報を抽出") || strings.Contains(system, "waypoints") {
		return mockExtractionResponse
	}
	// ルート評価
	if strings.Contains(strings.ToLower(last), "route") || strings.Contains(last, "ルート") {
		return mockEvaluationResponse
	}
	return mockDefaultResponse
}
