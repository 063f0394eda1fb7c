package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
)

// llmChain はフォールバックチェーンの管理操作
type llmChain interface {
	CheckChainHealth(ctx context.Context) ai.ChainHealth
	Status() ai.ChainStatus
	ResetFailures()
}

// LLMHandler はLLMプロバイダーの状態確認API
type LLMHandler struct {
	client ai.ChatClient
}

// NewLLMHandler は新しいLLMHandlerインスタンスを作成
func NewLLMHandler(client ai.ChatClient) *LLMHandler {
	return &LLMHandler{client: client}
}

// GetHealth は全プロバイダーのヘルスチェック結果を返す
// GET /api/v1/llm/health
func (h *LLMHandler) GetHealth(c *gin.Context) {
	chain, ok := h.client.(llmChain)
	if !ok {
		status := h.client.HealthCheck(c.Request.Context())
		c.JSON(statusCode(status.Healthy), ai.ChainHealth{
			ActiveProvider:  h.client.Provider(),
			Healthy:         status.Healthy,
			LatencyMs:       status.LatencyMs,
			Error:           status.Error,
			Providers:       map[ai.Provider]ai.HealthStatus{h.client.Provider(): status},
			FailedProviders: []ai.Provider{},
		})
		return
	}

	health := chain.CheckChainHealth(c.Request.Context())
	c.JSON(statusCode(health.Healthy), health)
}

// GetStatus はアクティブなプロバイダーと失敗記録を返す
// GET /api/v1/llm/status
func (h *LLMHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// PostReset は失敗記録を消して先頭のプロバイダーに戻す
// POST /api/v1/llm/reset
func (h *LLMHandler) PostReset(c *gin.Context) {
	if chain, ok := h.client.(llmChain); ok {
		chain.ResetFailures()
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "プロバイダーの失敗記録をリセットしました",
		"status":  h.status(),
	})
}

func (h *LLMHandler) status() ai.ChainStatus {
	if chain, ok := h.client.(llmChain); ok {
		return chain.Status()
	}
	return ai.ChainStatus{
		ActiveProvider:     h.client.Provider(),
		ActiveModel:        h.client.ModelName(),
		AvailableProviders: []ai.Provider{h.client.Provider()},
		FailedProviders:    []ai.Provider{},
	}
}

func statusCode(healthy bool) int {
	if healthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
