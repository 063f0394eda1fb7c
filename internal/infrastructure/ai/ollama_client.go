package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// OllamaClient はローカルのOllamaサーバーとの通信を担当するクライアント
type OllamaClient struct {
	baseURL     string
	model       string
	modelFast   string
	numCtx      int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger

	// 直近のヘルスチェック結果。未確認の間は利用可能とみなす
	unavailable atomic.Bool
}

var _ ChatClient = (*OllamaClient)(nil)

// NewOllamaClient は新しいOllamaClientインスタンスを作成
func NewOllamaClient(cfg config.OllamaConfig, l *zap.Logger) *OllamaClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		modelFast:   cfg.ModelFast,
		numCtx:      cfg.NumCtx,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.OrNop(l),
	}
}

// ollamaChatRequest は /api/chat へのリクエスト構造体
type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaChatResponse は /api/chat のレスポンス（ストリームの各行も同じ形）
type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// ollamaTagsResponse は /api/tags のレスポンス
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *OllamaClient) Provider() Provider    { return ProviderLocal }
func (c *OllamaClient) IsAvailable() bool     { return !c.unavailable.Load() }
func (c *OllamaClient) ModelName() string     { return c.model }
func (c *OllamaClient) ModelNameFast() string { return c.modelFast }

func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *OllamaClient) newChatRequest(ctx context.Context, messages []Message, opts ChatOptions, stream bool) (*http.Request, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	temperature := c.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	req := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options: ollamaOptions{
			Temperature: temperature,
			NumCtx:      c.numCtx,
			NumPredict:  opts.MaxTokens,
		},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("リクエストのシリアライズに失敗: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// Chat はOllama経由でチャット補完を実行する
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	httpReq, err := c.newChatRequest(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Ollamaへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama呼び出しエラー (status: %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("レスポンスのパースに失敗: %w", err)
	}
	return chatResp.Message.Content, nil
}

// ChatFast は高速モデルでチャット補完を実行する
func (c *OllamaClient) ChatFast(ctx context.Context, messages []Message, temperature *float64) (string, error) {
	return c.Chat(ctx, messages, ChatOptions{Model: c.modelFast, Temperature: temperature})
}

// ChatStream はNDJSONのストリームからトークンを順に返す。壊れた行は読み飛ばす
func (c *OllamaClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		httpReq, err := c.newChatRequest(ctx, messages, opts, true)
		if err != nil {
			yield("", err)
			return
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("Ollamaへのリクエストに失敗: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			yield("", fmt.Errorf("Ollama呼び出しエラー (status: %d): %s", resp.StatusCode, string(body)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Message.Content != "" {
				if !yield(chunk.Message.Content, nil) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
			yield("", fmt.Errorf("ストリームの読み取りに失敗: %w", err))
		}
	}
}

// HealthCheck はサーバーの起動と必要なモデルの有無を確認する
func (c *OllamaClient) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{Provider: ProviderLocal}
	start := time.Now()

	models, err := c.listModels(ctx)
	if err != nil {
		c.unavailable.Store(true)
		status.Error = err.Error()
		return status
	}
	status.LatencyMs = latencyMs(start)
	status.AvailableModels = models

	if !containsModel(models, c.model) {
		c.unavailable.Store(true)
		status.Error = fmt.Sprintf("モデル '%s' が見つかりません。利用可能: %v", c.model, models)
		return status
	}

	c.unavailable.Store(false)
	status.Healthy = true
	return status
}

func (c *OllamaClient) listModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama (%s) に接続できません: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollamaがエラーを返しました (status: %d)", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("レスポンスのパースに失敗: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// containsModel は "qwen3:1.7b" のようなタグ付き名、またはタグなしの名前で一致を判定する
func containsModel(models []string, want string) bool {
	base, _, _ := strings.Cut(want, ":")
	for _, m := range models {
		if strings.Contains(m, want) || strings.Contains(m, base) {
			return true
		}
	}
	return false
}
