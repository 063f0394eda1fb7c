package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

// TestRouteSuggestLive は設定されたLLMプロバイダーでルート提案APIを通しで実行する
func TestRouteSuggestLive(t *testing.T) {
	cfg := requireLiveEnvironment(t)
	router := setupLiveRouter(t, cfg)

	queries := []string{
		"静かな温泉でゆっくりしたい",
		"箱根を経由して河口湖に行きたい",
		"EV充電できる道の駅で車中泊",
	}
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			body, _ := json.Marshal(model.SuggestRouteRequest{Query: query})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/routes/suggest", strings.NewReader(string(body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp model.SuggestRouteResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Routes)
			assert.NotEmpty(t, resp.Processing.RequestID)

			for _, route := range resp.Routes {
				assert.Positive(t, route.TotalDistance)
				assert.NotEmpty(t, route.Waypoints)
				t.Logf("✅ %s: %s (%.1fkm, %d分, 推奨=%v)", route.ID, route.Name, route.TotalDistance, route.TotalDuration, route.Recommended)
			}
		})
	}
}

// TestLLMHealthLive はフォールバックチェーンの各プロバイダーの状態を確認する
func TestLLMHealthLive(t *testing.T) {
	cfg := requireLiveEnvironment(t)
	router := setupLiveRouter(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/llm/health", nil))
	t.Logf("LLM health (%d): %s", w.Code, w.Body.String())

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Contains(t, health, "providers")
}
