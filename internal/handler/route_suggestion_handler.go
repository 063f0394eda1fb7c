package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
	"github.com/shokugyo/not-a-car/internal/usecase"
)

// RouteSuggestionHandler はルート提案APIのハンドラー
type RouteSuggestionHandler struct {
	suggestionUseCase usecase.RouteSuggestionUsecase
	logger            *zap.Logger
}

// NewRouteSuggestionHandler は新しいRouteSuggestionHandlerインスタンスを作成
func NewRouteSuggestionHandler(suggestionUseCase usecase.RouteSuggestionUsecase, l *zap.Logger) *RouteSuggestionHandler {
	return &RouteSuggestionHandler{
		suggestionUseCase: suggestionUseCase,
		logger:            logger.OrNop(l),
	}
}

// PostSuggestRoute は自然文のリクエストからルートを提案するエンドポイント
// POST /api/v1/routes/suggest
func (h *RouteSuggestionHandler) PostSuggestRoute(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	response, err := h.suggestionUseCase.SuggestRoute(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "バリデーションエラー",
				"details": err.Error(),
			})
			return
		}
		h.logger.Error("❌ ルート提案に失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "ルート提案の生成に失敗しました",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// PostSuggestRouteStream は処理の途中経過をSSEで配信するエンドポイント
// POST /api/v1/routes/suggest/stream
func (h *RouteSuggestionHandler) PostSuggestRouteStream(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.suggestionUseCase.SuggestRouteStream(c.Request.Context(), req)
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Event), ev)
		return !ev.IsTerminal()
	})
}

func (h *RouteSuggestionHandler) bindRequest(c *gin.Context) (*model.SuggestRouteRequest, bool) {
	var req model.SuggestRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return nil, false
	}
	if err := validateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
		return nil, false
	}
	return &req, true
}

// validateRequest はリクエストの詳細バリデーションを行う
func validateRequest(req *model.SuggestRouteRequest) error {
	if req.Origin != nil {
		if req.Origin.Latitude < -90 || req.Origin.Latitude > 90 {
			return &ValidationError{Field: "origin.latitude", Message: "緯度は-90から90の範囲で指定してください"}
		}
		if req.Origin.Longitude < -180 || req.Origin.Longitude > 180 {
			return &ValidationError{Field: "origin.longitude", Message: "経度は-180から180の範囲で指定してください"}
		}
	}
	return nil
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
