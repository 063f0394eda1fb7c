package ai

import (
	"context"
	"errors"
	"iter"
)

// Provider LLMプロバイダーの種別
type Provider string

const (
	ProviderCloud Provider = "cloud" // OpenAI互換クラウドAPI
	ProviderLocal Provider = "local" // Ollama
	ProviderMock  Provider = "mock"  // 固定応答
)

// ErrNotConfigured は必要な設定（APIキーなど）がない場合のエラー
var ErrNotConfigured = errors.New("LLMクライアントが設定されていません")

// Role メッセージの話者
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message チャットメッセージ
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage はシステムメッセージを作る
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage はユーザーメッセージを作る
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatOptions はチャット呼び出しのオプション。ゼロ値はクライアントの既定値を使う
type ChatOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Temperature は ChatOptions.Temperature 用のポインタを返す
func Temperature(v float64) *float64 {
	return &v
}

// HealthStatus ヘルスチェック結果
type HealthStatus struct {
	Provider        Provider `json:"provider"`
	Healthy         bool     `json:"healthy"`
	LatencyMs       float64  `json:"latency_ms"`
	Error           string   `json:"error,omitempty"`
	AvailableModels []string `json:"available_models,omitempty"`
}

// ChatClient LLMクライアントの共通インターフェース。
// 実装は CloudClient, OllamaClient, MockClient と、それらを束ねる FallbackClient
type ChatClient interface {
	Provider() Provider
	IsAvailable() bool
	ModelName() string
	ModelNameFast() string

	// Chat はチャット補完を実行する
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
	// ChatFast は高速・低コストなモデルでチャット補完を実行する
	ChatFast(ctx context.Context, messages []Message, temperature *float64) (string, error)
	// ChatStream はトークンを順に返す。エラーが起きた場合は ("", err) を最後に返して終わる。
	// 一度しか走査できない
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions) iter.Seq2[string, error]

	HealthCheck(ctx context.Context) HealthStatus
	Close() error
}

// lastContent は最後のメッセージと最初のメッセージ（システムプロンプト）の本文を返す
func lastContent(messages []Message) (last, first string) {
	if len(messages) == 0 {
		return "", ""
	}
	return messages[len(messages)-1].Content, messages[0].Content
}
