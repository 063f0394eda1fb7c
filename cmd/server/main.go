package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/domain/service"
	"github.com/shokugyo/not-a-car/internal/handler"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/infrastructure/database"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
	repoImpl "github.com/shokugyo/not-a-car/internal/repository"
	"github.com/shokugyo/not-a-car/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("❌ サーバーが異常終了しました", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 静的データ
	locations := repoImpl.NewLocationIndex(cfg.Data.LocationsPath, l)
	if !locations.Load() {
		l.Warn("⚠️ 地点データを読み込めませんでした。候補は生成されません", zap.String("path", cfg.Data.LocationsPath))
	}
	routes := repoImpl.NewRouteCache(cfg.Data.RouteCachePath, l)
	if !routes.Load() {
		l.Warn("⚠️ 事前計算ルートを読み込めませんでした。距離は概算になります", zap.String("path", cfg.Data.RouteCachePath))
	}

	// LLM
	llm, err := ai.NewClientFromConfig(cfg, l)
	if err != nil {
		return fmt.Errorf("LLMクライアントの初期化に失敗: %w", err)
	}
	defer llm.Close()

	// 車両状態（DATABASE_URLがあれば）
	var (
		vehicles repository.VehicleStateRepository
		db       handler.DatabasePinger
	)
	if cfg.Database.URL != "" {
		pg, err := database.NewPostgreSQLClient(ctx, cfg.Database.URL)
		if err != nil {
			l.Warn("⚠️ PostgreSQLに接続できません。既定の車両状態を使用します", zap.Error(err))
		} else {
			defer pg.Close()
			vehicles = repoImpl.NewPostgresVehicleStateRepository(pg)
			db = pg
			l.Info("✅ PostgreSQL connection successful")
		}
	}

	// Dependency injection
	knowledge := service.NewKnowledgeSearch(locations)
	suggestionUseCase := usecase.NewRouteSuggestionUsecase(
		llm,
		service.NewDestinationExtractor(llm, knowledge, cfg.Routing, l),
		service.NewRouteCandidateGenerator(locations, routes, l),
		service.NewRouteEvaluator(llm, l),
		service.NewRouteBuilderHelper(locations),
		vehicles,
		cfg.Routing,
		l,
	)

	gin.SetMode(cfg.Server.GinMode)
	router := handler.NewRouter(
		handler.NewRouteSuggestionHandler(suggestionUseCase, l),
		handler.NewLLMHandler(llm),
		handler.NewHealthHandler(locations, routes, db),
		l,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("🚀 not-a-car server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("llm_provider", string(llm.Provider())),
			zap.Int("locations", locations.Count()),
			zap.Int("routes", routes.Count()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}
