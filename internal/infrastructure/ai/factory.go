package ai

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// NewClientFromConfig は設定からLLMクライアントを作る。
// フォールバックが有効な場合はプロバイダー設定に応じた順でチェーンを組み、最後に必ずモックを置く
func NewClientFromConfig(cfg *config.Config, l *zap.Logger) (ChatClient, error) {
	l = logger.OrNop(l)

	if !cfg.LLM.FallbackEnabled {
		return newSingleClient(cfg, l)
	}

	chain := buildChain(cfg, l)
	chain = append(chain, NewMockClient())

	providers := make([]string, 0, len(chain))
	for _, c := range chain {
		providers = append(providers, string(c.Provider()))
	}
	l.Info("✅ LLMフォールバックチェーンを構築しました", zap.Strings("providers", providers))

	return NewFallbackClient(chain, l), nil
}

func buildChain(cfg *config.Config, l *zap.Logger) []ChatClient {
	hasKey := cfg.HasCloudAPIKey()
	cloud := func() ChatClient { return NewCloudClient(cfg.LLM.Cloud, l) }
	local := func() ChatClient { return NewOllamaClient(cfg.LLM.Ollama, l) }

	var chain []ChatClient
	switch cfg.LLM.Provider {
	case config.ProviderCloud:
		if hasKey {
			chain = append(chain, cloud())
		}
		chain = append(chain, local())
	case config.ProviderLocal:
		chain = append(chain, local())
		if hasKey {
			chain = append(chain, cloud())
		}
	case config.ProviderAuto:
		if hasKey {
			chain = append(chain, cloud())
		}
		chain = append(chain, local())
	case config.ProviderMock:
		// モックのみ
	}
	return chain
}

func newSingleClient(cfg *config.Config, l *zap.Logger) (ChatClient, error) {
	switch cfg.LLM.Provider {
	case config.ProviderCloud:
		if !cfg.HasCloudAPIKey() {
			return nil, fmt.Errorf("llm.provider=cloud ですがAPIキーがありません: %w", ErrNotConfigured)
		}
		return NewCloudClient(cfg.LLM.Cloud, l), nil
	case config.ProviderLocal:
		return NewOllamaClient(cfg.LLM.Ollama, l), nil
	case config.ProviderAuto:
		if cfg.HasCloudAPIKey() {
			return NewCloudClient(cfg.LLM.Cloud, l), nil
		}
		return NewOllamaClient(cfg.LLM.Ollama, l), nil
	default:
		return NewMockClient(), nil
	}
}
