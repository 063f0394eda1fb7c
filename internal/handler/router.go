package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// NewRouter はAPIのルーティングを設定したginエンジンを返す
func NewRouter(suggestion *RouteSuggestionHandler, llm *LLMHandler, health *HealthHandler, l *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.OrNop(l)))

	r.GET("/health", health.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		routes := v1.Group("/routes")
		routes.POST("/suggest", suggestion.PostSuggestRoute)
		routes.POST("/suggest/stream", suggestion.PostSuggestRouteStream)

		llmGroup := v1.Group("/llm")
		llmGroup.GET("/health", llm.GetHealth)
		llmGroup.GET("/status", llm.GetStatus)
		llmGroup.POST("/reset", llm.PostReset)
	}

	return r
}

// requestLogger はリクエストごとにステータスと処理時間を記録する
func requestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
