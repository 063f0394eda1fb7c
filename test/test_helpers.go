package test

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zaptest"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/domain/service"
	"github.com/shokugyo/not-a-car/internal/handler"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/infrastructure/database"
	repoImpl "github.com/shokugyo/not-a-car/internal/repository"
	"github.com/shokugyo/not-a-car/internal/usecase"
)

// requireLiveEnvironment は LIVE_TEST=1 のときだけ実行する。
// 実際のLLMやデータベースに接続するため通常のテストでは省略する
func requireLiveEnvironment(t *testing.T) *config.Config {
	t.Helper()
	_ = godotenv.Load("../.env")
	if os.Getenv("LIVE_TEST") != "1" {
		t.Skip("LIVE_TEST=1 が設定されていないためスキップ")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		t.Fatalf("設定の読み込みに失敗: %v", err)
	}
	cfg.Data.LocationsPath = "../data/locations.json"
	cfg.Data.RouteCachePath = "../data/route_cache.json"
	return cfg
}

// setupLiveRouter は本番と同じ構成でルーターを組み立てる
func setupLiveRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := zaptest.NewLogger(t)

	locations := repoImpl.NewLocationIndex(cfg.Data.LocationsPath, l)
	if !locations.Load() {
		t.Fatalf("地点データの読み込みに失敗: %s", cfg.Data.LocationsPath)
	}
	routes := repoImpl.NewRouteCache(cfg.Data.RouteCachePath, l)
	routes.Load()

	llm, err := ai.NewClientFromConfig(cfg, l)
	if err != nil {
		t.Fatalf("LLMクライアントの初期化に失敗: %v", err)
	}
	t.Cleanup(func() { _ = llm.Close() })

	var (
		vehicles repository.VehicleStateRepository
		db       handler.DatabasePinger
	)
	if cfg.Database.URL != "" {
		pg, err := database.NewPostgreSQLClient(t.Context(), cfg.Database.URL)
		if err != nil {
			t.Fatalf("PostgreSQL初期化失敗: %v", err)
		}
		t.Cleanup(func() { _ = pg.Close() })
		vehicles = repoImpl.NewPostgresVehicleStateRepository(pg)
		db = pg
	}

	suggestionUseCase := usecase.NewRouteSuggestionUsecase(
		llm,
		service.NewDestinationExtractor(llm, service.NewKnowledgeSearch(locations), cfg.Routing, l),
		service.NewRouteCandidateGenerator(locations, routes, l),
		service.NewRouteEvaluator(llm, l),
		service.NewRouteBuilderHelper(locations),
		vehicles,
		cfg.Routing,
		l,
	)

	return handler.NewRouter(
		handler.NewRouteSuggestionHandler(suggestionUseCase, l),
		handler.NewLLMHandler(llm),
		handler.NewHealthHandler(locations, routes, db),
		l,
	)
}
