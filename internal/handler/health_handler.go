package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shokugyo/not-a-car/internal/domain/repository"
)

const serviceName = "not-a-car"

// DatabasePinger は車両状態DBの疎通確認
type DatabasePinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler は死活監視用のハンドラー
type HealthHandler struct {
	locations repository.LocationRepository
	routes    repository.RouteCacheRepository
	db        DatabasePinger
}

// NewHealthHandler は新しいHealthHandlerインスタンスを作成。DBを使わない場合 db は nil
func NewHealthHandler(locations repository.LocationRepository, routes repository.RouteCacheRepository, db DatabasePinger) *HealthHandler {
	return &HealthHandler{locations: locations, routes: routes, db: db}
}

// GetHealth は読み込み済みの地点数とルート数、DBの状態を返す。
// DBは任意の依存なので、つながらなくても200を返す
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	database := "disabled"
	if h.db != nil {
		database = "ok"
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			database = "unavailable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"locations": h.locations.Count(),
		"routes":    h.routes.Count(),
		"database":  database,
	})
}
