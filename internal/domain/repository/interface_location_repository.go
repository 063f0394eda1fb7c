package repository

import "github.com/shokugyo/not-a-car/internal/domain/model"

// LocationRepository は座標キャッシュ（地名辞書）の読み取りインターフェース。
// 実装はプロセス起動時に一度だけロードされ、以後は読み取り専用で共有される
type LocationRepository interface {
	Load() bool
	GetByID(id string) (*model.Location, bool)
	GetByName(name string) (*model.Location, bool)
	SearchByName(query string) []*model.Location
	SearchByType(t model.LocationType) []*model.Location
	SearchByTags(tags []string) []*model.Location
	Search(q model.SearchQuery) []model.SearchResult
	GetAll() []*model.Location
	Count() int
}
