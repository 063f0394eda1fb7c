package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/repository"
)

const (
	modeFromOrigin = "from_origin"
	modeAllPairs   = "all_pairs"
)

// routeFetcher は2地点間の車ルートを取得する
type routeFetcher interface {
	GetDrivingRoute(ctx context.Context, origin, destination *model.Location) (*model.CachedRoute, error)
}

type options struct {
	AllPairs      bool
	Append        bool
	LocationsPath string
	OutputPath    string
}

type summary struct {
	Total   int
	Fetched int
	Failed  int
}

type precomputer struct {
	fetcher routeFetcher
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// run は対象ペアのルートを取得してキャッシュファイルに書き出す。
// 追記モードでは既存のルートも取り直して上書きし、取得に失敗したペアは既存のルートを残す。
// 個別のペアの失敗はログに残して続行する
func (p *precomputer) run(ctx context.Context, opts options) (summary, error) {
	var s summary

	index := repository.NewLocationIndex(opts.LocationsPath, p.logger)
	if !index.Load() {
		return s, fmt.Errorf("地点データの読み込みに失敗: %s", opts.LocationsPath)
	}

	var existing []*model.CachedRoute
	if opts.Append {
		if _, err := os.Stat(opts.OutputPath); err == nil {
			file, err := repository.ReadRouteCacheFile(opts.OutputPath)
			if err != nil {
				return s, fmt.Errorf("既存キャッシュの読み込みに失敗: %w", err)
			}
			existing = file.Routes
		}
	}

	pairs, err := buildPairs(index, opts.AllPairs)
	if err != nil {
		return s, err
	}

	var fetched []*model.CachedRoute
	for i, pair := range pairs {
		if err := p.limiter.Wait(ctx); err != nil {
			return s, fmt.Errorf("事前計算が中断されました: %w", err)
		}

		route, err := p.fetcher.GetDrivingRoute(ctx, pair[0], pair[1])
		if err != nil {
			s.Failed++
			p.logger.Warn("⚠️ ルートの取得に失敗",
				zap.String("origin", pair[0].ID),
				zap.String("destination", pair[1].ID),
				zap.Error(err),
			)
			continue
		}
		fetched = append(fetched, route)
		s.Fetched++
		p.logger.Info(fmt.Sprintf("[%d/%d] %s → %s", i+1, len(pairs), pair[0].Name, pair[1].Name),
			zap.Float64("distance_km", route.DistanceKm),
			zap.Int("duration_minutes", route.DurationMinutes),
		)
	}

	routes := repository.MergeRoutes(existing, fetched)
	s.Total = len(routes)

	mode := modeFromOrigin
	if opts.AllPairs {
		mode = modeAllPairs
	}
	if err := repository.WriteRouteCacheFile(opts.OutputPath, mode, routes, p.now()); err != nil {
		return s, fmt.Errorf("キャッシュの書き出しに失敗: %w", err)
	}
	return s, nil
}

// buildPairs は計算対象の有向ペアを返す。既定は東京駅から他の全地点
func buildPairs(index *repository.LocationIndex, allPairs bool) ([][2]*model.Location, error) {
	all := index.GetAll()
	var pairs [][2]*model.Location

	if allPairs {
		for _, from := range all {
			for _, to := range all {
				if from.ID != to.ID {
					pairs = append(pairs, [2]*model.Location{from, to})
				}
			}
		}
		return pairs, nil
	}

	origin, ok := index.GetByID(model.DefaultOriginID)
	if !ok {
		return nil, fmt.Errorf("出発地点 %s が地点データにありません", model.DefaultOriginID)
	}
	for _, to := range all {
		if to.ID != origin.ID {
			pairs = append(pairs, [2]*model.Location{origin, to})
		}
	}
	return pairs, nil
}
