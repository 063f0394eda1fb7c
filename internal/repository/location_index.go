package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/helper"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

const defaultSearchLimit = 10

// スコアの重み
const (
	scoreExactName     = 15.0
	scorePartialName   = 8.0
	scoreFacilityType  = 10.0
	scoreFacilityTag   = 5.0
	scoreAmenityTag    = 3.0
	scoreEVCharging    = 5.0
	scoreQuiet         = 4.0
	scoreGoodScenery   = 3.0
	scoreNature        = 3.0
	goodSceneryMinimum = 4.0
)

var (
	quietTerms   = []string{"静か"}
	sceneryTerms = []string{"景色", "眺め", "絶景", "景観"}
	natureTerms  = []string{"自然"}
)

// locationsFile は locations.json の形式
type locationsFile struct {
	Locations []model.Location `json:"locations"`
}

// LocationIndex は座標キャッシュ（地名辞書）のメモリ内インデックス。
// Load が一度成功した後は読み取り専用で、複数のリクエストから同時に参照してよい
type LocationIndex struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	attempted bool

	locations       map[string]*model.Location // id -> Location
	order           []string                   // 挿入順のid
	nameIndex       map[string][]string        // 小文字の名前・別名 -> ids
	nameKeys        []string                   // nameIndex の挿入順キー
	typeIndex       map[model.LocationType][]string
	tagIndex        map[string][]string // 小文字のタグ・設備 -> ids
	tagKeys         []string
	prefectureIndex map[string][]string
}

// NewLocationIndex はファイルパスを指定してインデックスを作る。読み込みは Load で行う
func NewLocationIndex(path string, l *zap.Logger) *LocationIndex {
	idx := &LocationIndex{path: path, logger: logger.OrNop(l)}
	idx.reset()
	return idx
}

// NewLocationIndexFromLocations は与えられた場所でロード済みのインデックスを作る
func NewLocationIndexFromLocations(locations []model.Location, l *zap.Logger) *LocationIndex {
	idx := &LocationIndex{logger: logger.OrNop(l)}
	idx.reset()
	for i := range locations {
		loc := locations[i]
		loc.ApplyDefaults()
		idx.add(&loc)
	}
	idx.loaded = true
	idx.attempted = true
	return idx
}

var _ repository.LocationRepository = (*LocationIndex)(nil)

func (idx *LocationIndex) reset() {
	idx.locations = make(map[string]*model.Location)
	idx.order = nil
	idx.nameIndex = make(map[string][]string)
	idx.nameKeys = nil
	idx.typeIndex = make(map[model.LocationType][]string)
	idx.tagIndex = make(map[string][]string)
	idx.tagKeys = nil
	idx.prefectureIndex = make(map[string][]string)
}

// Load はデータファイルを読み込んでインデックスを構築する。
// 一度成功した後は何もしない。ファイルがない・壊れている場合はログを出してfalseを返し、
// インデックスは空のまま使える状態に保つ
func (idx *LocationIndex) Load() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.loadLocked()
}

func (idx *LocationIndex) loadLocked() bool {
	idx.attempted = true
	if idx.loaded {
		return true
	}

	locations, err := readLocationsFile(idx.path)
	if err != nil {
		idx.logger.Warn("⚠️ 座標キャッシュを読み込めませんでした", zap.String("path", idx.path), zap.Error(err))
		return false
	}

	idx.reset()
	for i := range locations {
		loc := locations[i]
		loc.ApplyDefaults()
		idx.add(&loc)
	}
	idx.loaded = true
	idx.logger.Info("✅ 座標キャッシュを読み込みました", zap.Int("count", len(idx.order)), zap.String("path", idx.path))
	return true
}

func readLocationsFile(path string) ([]model.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	var file locationsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	for i, loc := range file.Locations {
		if loc.ID == "" || loc.Name == "" {
			return nil, fmt.Errorf("locations[%d]: id と name は必須です", i)
		}
	}
	return file.Locations, nil
}

func (idx *LocationIndex) add(loc *model.Location) {
	if _, exists := idx.locations[loc.ID]; exists {
		idx.logger.Warn("⚠️ 重複したIDをスキップしました", zap.String("id", loc.ID))
		return
	}
	idx.locations[loc.ID] = loc
	idx.order = append(idx.order, loc.ID)

	idx.addName(loc.Name, loc.ID)
	for _, alias := range loc.Aliases {
		idx.addName(alias, loc.ID)
	}

	idx.typeIndex[loc.Type] = append(idx.typeIndex[loc.Type], loc.ID)

	for _, tag := range loc.Tags {
		idx.addTag(tag, loc.ID)
	}
	// 設備もタグとして扱う
	for _, facility := range loc.Facilities {
		idx.addTag(facility, loc.ID)
	}

	idx.prefectureIndex[loc.Prefecture] = append(idx.prefectureIndex[loc.Prefecture], loc.ID)
}

func (idx *LocationIndex) addName(name, id string) {
	key := strings.ToLower(name)
	if _, ok := idx.nameIndex[key]; !ok {
		idx.nameKeys = append(idx.nameKeys, key)
	}
	idx.nameIndex[key] = appendUnique(idx.nameIndex[key], id)
}

func (idx *LocationIndex) addTag(tag, id string) {
	key := strings.ToLower(tag)
	if _, ok := idx.tagIndex[key]; !ok {
		idx.tagKeys = append(idx.tagKeys, key)
	}
	idx.tagIndex[key] = appendUnique(idx.tagIndex[key], id)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// ensureLoaded は未ロードなら一度だけ読み込みを試みる
func (idx *LocationIndex) ensureLoaded() {
	idx.mu.RLock()
	attempted := idx.attempted
	idx.mu.RUnlock()
	if attempted {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.attempted {
		idx.loadLocked()
	}
}

// GetByID はIDで場所を取得する
func (idx *LocationIndex) GetByID(id string) (*model.Location, bool) {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	loc, ok := idx.locations[id]
	return loc, ok
}

// GetByName は名前または別名の完全一致（大文字小文字無視）で場所を取得する
func (idx *LocationIndex) GetByName(name string) (*model.Location, bool) {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := idx.nameIndex[strings.ToLower(name)]
	if len(ids) == 0 {
		return nil, false
	}
	loc, ok := idx.locations[ids[0]]
	return loc, ok
}

// SearchByName は名前・別名の部分一致（双方向）で検索する
func (idx *LocationIndex) SearchByName(query string) []*model.Location {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	var results []*model.Location
	for _, key := range idx.nameKeys {
		if !helper.MatchesEither(key, query) {
			continue
		}
		for _, id := range idx.nameIndex[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			results = append(results, idx.locations[id])
		}
	}
	return results
}

// SearchByType は種別で検索する
func (idx *LocationIndex) SearchByType(t model.LocationType) []*model.Location {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lookupLocked(idx.typeIndex[t])
}

// SearchByTags はタグ・設備の部分一致によるOR検索。空の入力には空の結果を返す
func (idx *LocationIndex) SearchByTags(tags []string) []*model.Location {
	if len(tags) == 0 {
		return []*model.Location{}
	}
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matched := make(map[string]struct{})
	for _, tag := range tags {
		for _, key := range idx.tagKeys {
			if helper.MatchesEither(key, tag) {
				for _, id := range idx.tagIndex[key] {
					matched[id] = struct{}{}
				}
			}
		}
	}

	results := []*model.Location{}
	for _, id := range idx.order {
		if _, ok := matched[id]; ok {
			results = append(results, idx.locations[id])
		}
	}
	return results
}

// GetAll は全件を読み込み順で返す
func (idx *LocationIndex) GetAll() []*model.Location {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lookupLocked(idx.order)
}

// Count は登録件数
func (idx *LocationIndex) Count() int {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.order)
}

func (idx *LocationIndex) lookupLocked(ids []string) []*model.Location {
	results := make([]*model.Location, 0, len(ids))
	for _, id := range ids {
		if loc, ok := idx.locations[id]; ok {
			results = append(results, loc)
		}
	}
	return results
}

// scoreBoard はスコアと理由を最初に加点された順で保持する
type scoreBoard struct {
	order   []string
	scores  map[string]float64
	reasons map[string][]string
}

func newScoreBoard() *scoreBoard {
	return &scoreBoard{
		scores:  make(map[string]float64),
		reasons: make(map[string][]string),
	}
}

func (b *scoreBoard) add(id string, score float64, reason string) {
	if _, ok := b.scores[id]; !ok {
		b.order = append(b.order, id)
	}
	b.scores[id] += score
	b.reasons[id] = append(b.reasons[id], reason)
}

// Search はLLMの抽出結果を元にした複合検索。
// 各ルールのスコアを場所ごとに加算し、降順に並べてLimit件返す。
// 都道府県が指定されていればスコアに関係なくそれ以外を除外する
func (idx *LocationIndex) Search(q model.SearchQuery) []model.SearchResult {
	idx.ensureLoaded()
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	board := newScoreBoard()

	// 地名マッチ（最重要）
	for _, place := range q.PlaceNames {
		placeLower := strings.ToLower(place)
		exactIDs := idx.nameIndex[placeLower]
		for _, id := range exactIDs {
			board.add(id, scoreExactName, "地名完全一致: "+place)
		}
		for _, key := range idx.nameKeys {
			if !helper.MatchesEither(key, placeLower) {
				continue
			}
			for _, id := range idx.nameIndex[key] {
				if containsID(exactIDs, id) {
					continue
				}
				board.add(id, scorePartialName, "地名部分一致: "+place)
			}
		}
	}

	// 施設種別マッチ
	for _, facilityType := range q.FacilityTypes {
		ftLower := strings.ToLower(facilityType)
		for _, kw := range model.FacilityTypeKeywords {
			if !helper.MatchesEither(kw.Keyword, ftLower) {
				continue
			}
			for _, id := range idx.typeIndex[kw.Type] {
				board.add(id, scoreFacilityType, "施設種別: "+facilityType)
			}
		}
		for _, key := range idx.tagKeys {
			if !helper.MatchesEither(key, ftLower) {
				continue
			}
			for _, id := range idx.tagIndex[key] {
				board.add(id, scoreFacilityTag, "タグ: "+facilityType)
			}
		}
	}

	// 設備マッチ
	for _, amenity := range q.Amenities {
		amLower := strings.ToLower(amenity)
		for _, key := range idx.tagKeys {
			if !helper.MatchesEither(key, amLower) {
				continue
			}
			for _, id := range idx.tagIndex[key] {
				board.add(id, scoreAmenityTag, "設備: "+amenity)
			}
		}
		if strings.Contains(amLower, "充電") || strings.Contains(amLower, "ev") {
			for _, id := range idx.order {
				if idx.locations[id].EVCharging {
					board.add(id, scoreEVCharging, "EV充電設備あり")
				}
			}
		}
	}

	// 雰囲気マッチ
	for _, atmosphere := range q.Atmosphere {
		atmLower := strings.ToLower(atmosphere)
		for _, id := range idx.order {
			loc := idx.locations[id]
			if containsAny(atmLower, quietTerms) && loc.NoiseLevel == model.NoiseLevelLow {
				board.add(id, scoreQuiet, "静かな環境")
			}
			if containsAny(atmLower, sceneryTerms) && loc.SceneryScore >= goodSceneryMinimum {
				board.add(id, scoreGoodScenery, "景観が良い")
			}
			if _, ok := model.NatureLocationTypes[loc.Type]; ok && containsAny(atmLower, natureTerms) {
				board.add(id, scoreNature, "自然豊か")
			}
		}
	}

	results := make([]model.SearchResult, 0, len(board.order))
	for _, id := range board.order {
		loc := idx.locations[id]
		if q.Prefecture != "" && loc.Prefecture != q.Prefecture {
			continue
		}
		results = append(results, model.SearchResult{
			Location:     loc,
			Score:        board.scores[id],
			MatchReasons: board.reasons[id],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
