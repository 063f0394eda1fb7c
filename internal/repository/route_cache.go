package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// RouteCacheFileVersion はキャッシュファイルのフォーマットバージョン
const RouteCacheFileVersion = "1.1.0"

// RouteCacheFile は route_cache.json の形式
type RouteCacheFile struct {
	Version     string               `json:"version"`
	GeneratedAt string               `json:"generated_at"`
	Mode        string               `json:"mode"`
	TotalRoutes int                  `json:"total_routes"`
	Routes      []*model.CachedRoute `json:"routes"`
}

// RouteCache は事前計算ルートのメモリ内キャッシュ。
// キーは "origin_id:destination_id" の有向ペアで、逆方向は別エントリ
type RouteCache struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	routes    map[string]*model.CachedRoute
	keys      []string
	loaded    bool
	attempted bool
}

var _ repository.RouteCacheRepository = (*RouteCache)(nil)

// NewRouteCache はファイルパスを指定してキャッシュを作る。読み込みは Load で行う
func NewRouteCache(path string, l *zap.Logger) *RouteCache {
	return &RouteCache{
		path:   path,
		logger: logger.OrNop(l),
		routes: make(map[string]*model.CachedRoute),
	}
}

// NewRouteCacheFromRoutes は与えられたルートでロード済みのキャッシュを作る
func NewRouteCacheFromRoutes(routes []*model.CachedRoute, l *zap.Logger) *RouteCache {
	c := NewRouteCache("", l)
	for _, r := range routes {
		c.put(r)
	}
	c.loaded = true
	c.attempted = true
	return c
}

func routeKey(originID, destinationID string) string {
	return originID + ":" + destinationID
}

func (c *RouteCache) put(r *model.CachedRoute) {
	key := routeKey(r.OriginID, r.DestinationID)
	if _, ok := c.routes[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.routes[key] = r
}

// Load はキャッシュファイルを読み込む。一度成功した後は何もしない。
// ファイルがない・壊れている場合はfalseを返し、キャッシュは空のまま使える
func (c *RouteCache) Load() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *RouteCache) loadLocked() bool {
	c.attempted = true
	if c.loaded {
		return true
	}

	file, err := ReadRouteCacheFile(c.path)
	if err != nil {
		c.logger.Warn("⚠️ ルートキャッシュを読み込めませんでした", zap.String("path", c.path), zap.Error(err))
		return false
	}

	c.routes = make(map[string]*model.CachedRoute, len(file.Routes))
	c.keys = nil
	for _, r := range file.Routes {
		if r == nil || r.OriginID == "" || r.DestinationID == "" {
			continue
		}
		c.put(r)
	}
	c.loaded = true
	c.logger.Info("✅ ルートキャッシュを読み込みました", zap.Int("count", len(c.keys)), zap.String("path", c.path))
	return true
}

func (c *RouteCache) ensureLoaded() {
	c.mu.RLock()
	attempted := c.attempted
	c.mu.RUnlock()
	if attempted {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attempted {
		c.loadLocked()
	}
}

// Get は有向ペアのルートを返す
func (c *RouteCache) Get(originID, destinationID string) (*model.CachedRoute, bool) {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routes[routeKey(originID, destinationID)]
	return r, ok
}

// GetFromDefaultOrigin は既定の出発地（東京駅）からのルートを返す
func (c *RouteCache) GetFromDefaultOrigin(destinationID string) (*model.CachedRoute, bool) {
	return c.Get(model.DefaultOriginID, destinationID)
}

// HasRoute は有向ペアのルートがあるか
func (c *RouteCache) HasRoute(originID, destinationID string) bool {
	_, ok := c.Get(originID, destinationID)
	return ok
}

// GetAllFromOrigin は指定した出発地からの全ルートを返す
func (c *RouteCache) GetAllFromOrigin(originID string) []*model.CachedRoute {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()

	prefix := originID + ":"
	results := []*model.CachedRoute{}
	for _, key := range c.keys {
		if strings.HasPrefix(key, prefix) {
			results = append(results, c.routes[key])
		}
	}
	return results
}

// Count はルート件数
func (c *RouteCache) Count() int {
	c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// ReadRouteCacheFile はキャッシュファイルをそのまま読み込む
func ReadRouteCacheFile(path string) (*RouteCacheFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	var file RouteCacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	return &file, nil
}

// MergeRoutes は既存ルートに新しいルートを重ねる。同じキーは新しい方で上書きし、
// 結果はキー順に並べる
func MergeRoutes(existing, updates []*model.CachedRoute) []*model.CachedRoute {
	merged := make(map[string]*model.CachedRoute, len(existing)+len(updates))
	for _, r := range existing {
		merged[routeKey(r.OriginID, r.DestinationID)] = r
	}
	for _, r := range updates {
		merged[routeKey(r.OriginID, r.DestinationID)] = r
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	routes := make([]*model.CachedRoute, 0, len(keys))
	for _, k := range keys {
		routes = append(routes, merged[k])
	}
	return routes
}

// WriteRouteCacheFile はルート一覧をキャッシュファイルとして書き出す
func WriteRouteCacheFile(path, mode string, routes []*model.CachedRoute, now time.Time) error {
	file := RouteCacheFile{
		Version:     RouteCacheFileVersion,
		GeneratedAt: now.Format(time.RFC3339),
		Mode:        mode,
		TotalRoutes: len(routes),
		Routes:      routes,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONの生成に失敗: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}
	return nil
}
