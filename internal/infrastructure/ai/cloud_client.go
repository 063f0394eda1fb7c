package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// CloudClient はOpenAI互換のチャット補完API（Qwen/DashScope など）のクライアント
type CloudClient struct {
	client      openai.Client
	apiKey      string
	model       string
	modelFast   string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

var _ ChatClient = (*CloudClient)(nil)

// NewCloudClient は新しいCloudClientインスタンスを作成
func NewCloudClient(cfg config.CloudConfig, l *zap.Logger) *CloudClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(timeout),
		// リトライはフォールバックチェーンに任せる
		option.WithMaxRetries(0),
	)

	return &CloudClient{
		client:      client,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		modelFast:   cfg.ModelFast,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.OrNop(l),
	}
}

func (c *CloudClient) Provider() Provider    { return ProviderCloud }
func (c *CloudClient) IsAvailable() bool     { return c.apiKey != "" }
func (c *CloudClient) ModelName() string     { return c.model }
func (c *CloudClient) ModelNameFast() string { return c.modelFast }
func (c *CloudClient) Close() error          { return nil }

func (c *CloudClient) buildParams(messages []Message, opts ChatOptions) openai.ChatCompletionNewParams {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	temperature := c.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Messages:    toOpenAIMessages(messages),
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	return params
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(m.Content))
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(m.Content))
		default:
			result = append(result, openai.UserMessage(m.Content))
		}
	}
	return result
}

// Chat はチャット補完を実行する
func (c *CloudClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("クラウドAPIキーがありません: %w", ErrNotConfigured)
	}

	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(messages, opts))
	if err != nil {
		return "", fmt.Errorf("クラウドAPIの呼び出しに失敗: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("クラウドAPIから有効な応答が返されませんでした")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatFast は高速モデルでチャット補完を実行する
func (c *CloudClient) ChatFast(ctx context.Context, messages []Message, temperature *float64) (string, error) {
	return c.Chat(ctx, messages, ChatOptions{Model: c.modelFast, Temperature: temperature})
}

// ChatStream はSSEストリームのトークンを順に返す
func (c *CloudClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if c.apiKey == "" {
			yield("", fmt.Errorf("クラウドAPIキーがありません: %w", ErrNotConfigured))
			return
		}

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(messages, opts))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			if !yield(content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("クラウドAPIのストリーミングに失敗: %w", err))
		}
	}
}

// HealthCheck は短いpingを送って応答時間を測る
func (c *CloudClient) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{Provider: ProviderCloud}
	if c.apiKey == "" {
		status.Error = "APIキーが設定されていません"
		return status
	}

	start := time.Now()
	_, err := c.Chat(ctx, []Message{UserMessage("ping")}, ChatOptions{MaxTokens: 5})
	if err != nil {
		c.logger.Warn("⚠️ クラウドAPIのヘルスチェックに失敗", zap.Error(err))
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	status.LatencyMs = latencyMs(start)
	status.AvailableModels = []string{c.model, c.modelFast}
	return status
}

func latencyMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
