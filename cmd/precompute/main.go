package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
	"github.com/shokugyo/not-a-car/internal/infrastructure/maps"
)

// 公開OSRMサーバーの利用規約に合わせて1秒に1リクエスト弱
const requestInterval = 1100 * time.Millisecond

func main() {
	_ = godotenv.Load()

	allPairs := flag.Bool("all-pairs", false, "全地点間のルートを計算する（既定は東京駅からのみ）")
	appendMode := flag.Bool("append", false, "既存のキャッシュに追記する（計算済みのペアは取り直して上書き）")
	locationsPath := flag.String("locations", "data/locations.json", "地点データのパス")
	outputPath := flag.String("output", "data/route_cache.json", "出力先のパス")
	osrmURL := flag.String("osrm", envOr("OSRM_BASE_URL", maps.DefaultOSRMBaseURL), "OSRM routeサービスのURL")
	logLevel := flag.String("log-level", "info", "ログレベル")
	flag.Parse()

	l, err := logger.New(*logLevel, "console")
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := &precomputer{
		fetcher: maps.NewOSRMProvider(*osrmURL),
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		logger:  l,
		now:     time.Now,
	}
	opts := options{
		AllPairs:      *allPairs,
		Append:        *appendMode,
		LocationsPath: *locationsPath,
		OutputPath:    *outputPath,
	}

	summary, err := p.run(ctx, opts)
	if err != nil {
		l.Fatal("❌ 事前計算に失敗", zap.Error(err))
	}
	fmt.Printf("✅ %d件のルートを書き出しました（取得 %d件 / 失敗 %d件）: %s\n",
		summary.Total, summary.Fetched, summary.Failed, *outputPath)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
