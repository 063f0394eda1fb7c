package repository

import "github.com/shokugyo/not-a-car/internal/domain/model"

// RouteCacheRepository は事前計算ルートの読み取りインターフェース。
// キーは完全一致のみで、見つからない場合は呼び出し側で概算する
type RouteCacheRepository interface {
	Load() bool
	Get(originID, destinationID string) (*model.CachedRoute, bool)
	GetFromDefaultOrigin(destinationID string) (*model.CachedRoute, bool)
	HasRoute(originID, destinationID string) bool
	GetAllFromOrigin(originID string) []*model.CachedRoute
	Count() int
}
