package ai

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
	"github.com/shokugyo/not-a-car/internal/infrastructure/metrics"
)

const (
	methodChat       = "chat"
	methodChatFast   = "chat_fast"
	methodChatStream = "chat_stream"
)

// FallbackClient は複数のクライアントを順番に試すデコレーター。
// 失敗したプロバイダーは ResetFailures が呼ばれるか全滅するまで以降の呼び出しでスキップする。
// 失敗の記録に有効期限はない
type FallbackClient struct {
	clients []ChatClient
	mock    *MockClient
	logger  *zap.Logger

	mu     sync.Mutex
	active ChatClient
	failed map[Provider]struct{}
}

var _ ChatClient = (*FallbackClient)(nil)

// ChainHealth はチェーン全体のヘルスチェック結果
type ChainHealth struct {
	ActiveProvider  Provider                  `json:"active_provider"`
	Healthy         bool                      `json:"healthy"`
	LatencyMs       float64                   `json:"latency_ms"`
	Error           string                    `json:"error,omitempty"`
	Providers       map[Provider]HealthStatus `json:"providers"`
	FailedProviders []Provider                `json:"failed_providers"`
}

// ChainStatus はチェーンの現在の状態
type ChainStatus struct {
	ActiveProvider     Provider   `json:"active_provider"`
	ActiveModel        string     `json:"active_model"`
	AvailableProviders []Provider `json:"available_providers"`
	FailedProviders    []Provider `json:"failed_providers"`
}

// NewFallbackClient はフォールバック順のクライアントからチェーンを作る。空ならモックだけになる
func NewFallbackClient(clients []ChatClient, l *zap.Logger) *FallbackClient {
	if len(clients) == 0 {
		clients = []ChatClient{NewMockClient()}
	}
	return &FallbackClient{
		clients: clients,
		mock:    NewMockClient(),
		logger:  logger.OrNop(l),
		active:  clients[0],
		failed:  make(map[Provider]struct{}),
	}
}

func (f *FallbackClient) activeClient() ChatClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *FallbackClient) Provider() Provider    { return f.activeClient().Provider() }
func (f *FallbackClient) IsAvailable() bool     { return f.activeClient().IsAvailable() }
func (f *FallbackClient) ModelName() string     { return f.activeClient().ModelName() }
func (f *FallbackClient) ModelNameFast() string { return f.activeClient().ModelNameFast() }

// Clients はフォールバック順のクライアント一覧
func (f *FallbackClient) Clients() []ChatClient {
	return f.clients
}

func (f *FallbackClient) isFailed(p Provider) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.failed[p]
	return ok
}

func (f *FallbackClient) markFailed(p Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[p] = struct{}{}
}

func (f *FallbackClient) setActive(c ChatClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = c
}

func (f *FallbackClient) clearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = make(map[Provider]struct{})
}

// ResetFailures は失敗の記録を消し、先頭のクライアントをアクティブに戻す
func (f *FallbackClient) ResetFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = make(map[Provider]struct{})
	f.active = f.clients[0]
}

// FailedProviders は失敗として記録されているプロバイダーを名前順で返す
func (f *FallbackClient) FailedProviders() []Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	providers := make([]Provider, 0, len(f.failed))
	for p := range f.failed {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// Status はチェーンの現在の状態を返す
func (f *FallbackClient) Status() ChainStatus {
	active := f.activeClient()
	available := make([]Provider, 0, len(f.clients))
	for _, c := range f.clients {
		available = append(available, c.Provider())
	}
	return ChainStatus{
		ActiveProvider:     active.Provider(),
		ActiveModel:        active.ModelName(),
		AvailableProviders: available,
		FailedProviders:    f.FailedProviders(),
	}
}

func observe(p Provider, method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(string(p), method, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(string(p), method).Observe(time.Since(start).Seconds())
}

func (f *FallbackClient) fallThrough(p Provider, method string, err error) {
	f.logger.Warn("⚠️ プロバイダーが失敗したため次を試します",
		zap.String("provider", string(p)), zap.String("method", method), zap.Error(err))
	metrics.LLMFallbackTotal.WithLabelValues(string(p), method).Inc()
	f.markFailed(p)
}

func (f *FallbackClient) useMockFloor(method string) {
	f.logger.Error("❌ 全プロバイダーが失敗したため、失敗記録をリセットしてモック応答を返します",
		zap.String("method", method))
	metrics.LLMMockFloorTotal.WithLabelValues(method).Inc()
	f.clearFailures()
}

// call は失敗していないクライアントを順に試す
func (f *FallbackClient) call(ctx context.Context, method string, fn func(ChatClient) (string, error)) (string, error) {
	for _, client := range f.clients {
		p := client.Provider()
		if f.isFailed(p) {
			continue
		}

		start := time.Now()
		result, err := fn(client)
		observe(p, method, start, err)
		if err == nil {
			f.setActive(client)
			return result, nil
		}
		// 呼び出し元のキャンセルはプロバイダーの失敗として扱わない
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.fallThrough(p, method, err)
	}

	f.useMockFloor(method)
	return fn(f.mock)
}

// Chat はフォールバック付きでチャット補完を実行する
func (f *FallbackClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	return f.call(ctx, methodChat, func(c ChatClient) (string, error) {
		return c.Chat(ctx, messages, opts)
	})
}

// ChatFast はフォールバック付きで高速チャット補完を実行する
func (f *FallbackClient) ChatFast(ctx context.Context, messages []Message, temperature *float64) (string, error) {
	return f.call(ctx, methodChatFast, func(c ChatClient) (string, error) {
		return c.ChatFast(ctx, messages, temperature)
	})
}

// ChatStream はフォールバック付きでストリーミングする。
// 1本のストリームは1つのプロバイダーで完結させ、途中で失敗した場合は次のプロバイダーで最初からやり直す。
// すでに返したトークンは取り消さない
func (f *FallbackClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, client := range f.clients {
			p := client.Provider()
			if f.isFailed(p) {
				continue
			}

			start := time.Now()
			var streamErr error
			for token, err := range client.ChatStream(ctx, messages, opts) {
				if err != nil {
					streamErr = err
					break
				}
				f.setActive(client)
				if !yield(token, nil) {
					return
				}
			}
			observe(p, methodChatStream, start, streamErr)

			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if streamErr == nil {
				f.setActive(client)
				return
			}
			f.fallThrough(p, methodChatStream, streamErr)
		}

		f.useMockFloor(methodChatStream)
		for token, err := range f.mock.ChatStream(ctx, messages, opts) {
			if !yield(token, err) {
				return
			}
		}
	}
}

// HealthCheck はアクティブなプロバイダーのヘルスチェック結果を返す
func (f *FallbackClient) HealthCheck(ctx context.Context) HealthStatus {
	chain := f.CheckChainHealth(ctx)
	return chain.Providers[chain.ActiveProvider]
}

// CheckChainHealth は全プロバイダーのヘルスチェックを並行して実行する
func (f *FallbackClient) CheckChainHealth(ctx context.Context) ChainHealth {
	results := make([]HealthStatus, len(f.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range f.clients {
		g.Go(func() error {
			results[i] = client.HealthCheck(gctx)
			return nil
		})
	}
	_ = g.Wait()

	providers := make(map[Provider]HealthStatus, len(results))
	for i, client := range f.clients {
		status := results[i]
		status.Provider = client.Provider()
		providers[client.Provider()] = status
	}

	active := f.activeClient().Provider()
	activeHealth := providers[active]
	return ChainHealth{
		ActiveProvider:  active,
		Healthy:         activeHealth.Healthy,
		LatencyMs:       activeHealth.LatencyMs,
		Error:           activeHealth.Error,
		Providers:       providers,
		FailedProviders: f.FailedProviders(),
	}
}

// Close は全クライアントを閉じる
func (f *FallbackClient) Close() error {
	var firstErr error
	for _, c := range f.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
