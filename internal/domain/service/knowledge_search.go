package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
)

const (
	paddingRelevance     = 0.3
	highSceneryThreshold = 4.5
	noContextMessage     = "（該当する地点情報が見つかりませんでした）"
	contextHeader        = "## 候補地点情報\n"
)

var queryDelimiter = regexp.MustCompile(`[\s、。・]+`)

// クエリに含まれていれば単独のキーワードとして扱う語
var knowledgeKeywords = []string{
	"温泉", "キャンプ", "道の駅", "RVパーク", "車中泊", "充電",
	"海", "山", "湖", "川", "滝", "森", "紅葉", "桜", "夜景",
	"静か", "景色", "絶景", "自然", "リラックス", "観光",
	"富士山", "箱根", "河口湖", "軽井沢", "日光", "草津",
}

// LocationKnowledge LLMのコンテキストに渡す地点の知識
type LocationKnowledge struct {
	ID               string
	Name             string
	Prefecture       string
	Type             model.LocationType
	Description      string
	Specialties      []string
	BestSeason       string
	Tips             string
	Facilities       []string
	EVCharging       bool
	OvernightParking bool
	SceneryScore     float64
	Relevance        float64 // 0-1
}

func newLocationKnowledge(loc *model.Location, relevance float64) LocationKnowledge {
	return LocationKnowledge{
		ID:               loc.ID,
		Name:             loc.Name,
		Prefecture:       loc.Prefecture,
		Type:             loc.Type,
		Description:      loc.Description,
		Specialties:      loc.Specialties,
		BestSeason:       loc.BestSeason,
		Tips:             loc.Tips,
		Facilities:       loc.Facilities,
		EVCharging:       loc.EVCharging,
		OvernightParking: loc.OvernightParking,
		SceneryScore:     loc.SceneryScore,
		Relevance:        relevance,
	}
}

// ContextString はプロンプトに埋め込む複数行の説明を返す
func (k LocationKnowledge) ContextString() string {
	lines := []string{
		fmt.Sprintf("【%s】（%s）", k.Name, k.Prefecture),
		fmt.Sprintf("  種別: %s", model.GetLocationTypeJapaneseName(k.Type)),
	}
	if k.Description != "" {
		lines = append(lines, "  概要: "+k.Description)
	}
	if len(k.Specialties) > 0 {
		lines = append(lines, "  名物: "+strings.Join(k.Specialties, ", "))
	}
	if k.BestSeason != "" {
		lines = append(lines, "  おすすめ時期: "+k.BestSeason)
	}
	if k.Tips != "" {
		lines = append(lines, "  ヒント: "+k.Tips)
	}

	var features []string
	if k.EVCharging {
		features = append(features, "EV充電可")
	}
	if k.OvernightParking {
		features = append(features, "車中泊可")
	}
	if k.SceneryScore >= highSceneryThreshold {
		features = append(features, "景観◎")
	}
	if len(features) > 0 {
		lines = append(lines, "  特徴: "+strings.Join(features, ", "))
	}
	return strings.Join(lines, "\n")
}

// KnowledgeSearch は地名辞書に対するキーワード検索でRAG用のコンテキストを作る
type KnowledgeSearch struct {
	locations repository.LocationRepository
	cache     *cache.Cache
}

// NewKnowledgeSearch は新しい検索サービスを生成する。
// 地名辞書はロード後に変わらないので、生成したコンテキストは一定時間メモ化する
func NewKnowledgeSearch(locations repository.LocationRepository) *KnowledgeSearch {
	return &KnowledgeSearch{
		locations: locations,
		cache:     cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Search はクエリに関連する地点を関連度順に最大n件返す。
// ヒットが足りない場合は残りの地点を関連度0.3で補う
func (s *KnowledgeSearch) Search(query string, n int, requireEV, requireOvernight bool) []LocationKnowledge {
	keywords := extractKeywords(query)
	all := s.locations.GetAll()

	accept := func(loc *model.Location) bool {
		if requireEV && !loc.EVCharging {
			return false
		}
		if requireOvernight && !loc.OvernightParking {
			return false
		}
		return true
	}

	type scored struct {
		loc       *model.Location
		relevance float64
	}
	var hits []scored
	for _, loc := range all {
		if !accept(loc) {
			continue
		}
		text := searchableText(loc)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{loc: loc, relevance: min(1.0, float64(score)/float64(len(keywords)))})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].relevance > hits[j].relevance
	})

	results := make([]LocationKnowledge, 0, n)
	seen := make(map[string]struct{})
	for _, h := range hits {
		if len(results) >= n {
			break
		}
		results = append(results, newLocationKnowledge(h.loc, h.relevance))
		seen[h.loc.ID] = struct{}{}
	}

	for _, loc := range all {
		if len(results) >= n {
			break
		}
		if _, ok := seen[loc.ID]; ok || !accept(loc) {
			continue
		}
		results = append(results, newLocationKnowledge(loc, paddingRelevance))
	}
	return results
}

// ContextForLLM は検索結果をプロンプト用の文字列にまとめる。
// 1文字あたり1.5トークンとして maxTokens を超えない範囲で地点を追加する
func (s *KnowledgeSearch) ContextForLLM(query string, n, maxTokens int) string {
	key := fmt.Sprintf("%s|%d|%d", query, n, maxTokens)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string)
	}

	results := s.Search(query, n, false, false)
	if len(results) == 0 {
		return noContextMessage
	}

	parts := []string{contextHeader}
	current := float64(utf8.RuneCountInString(contextHeader))
	for _, r := range results {
		block := r.ContextString()
		estimated := float64(utf8.RuneCountInString(block)) * 1.5
		if current+estimated > float64(maxTokens) {
			break
		}
		parts = append(parts, block, "")
		current += estimated
	}

	result := strings.Join(parts, "\n")
	s.cache.Set(key, result, cache.DefaultExpiration)
	return result
}

// AvailableLocationsSummary は種別ごとの地点名一覧（各5件まで）を返す
func (s *KnowledgeSearch) AvailableLocationsSummary() string {
	var typeOrder []model.LocationType
	byType := make(map[model.LocationType][]string)
	for _, loc := range s.locations.GetAll() {
		if _, ok := byType[loc.Type]; !ok {
			typeOrder = append(typeOrder, loc.Type)
		}
		byType[loc.Type] = append(byType[loc.Type], loc.Name)
	}

	lines := []string{"## 利用可能な地点一覧\n"}
	for _, t := range typeOrder {
		names := byType[t]
		line := fmt.Sprintf("- %s: %s", t, strings.Join(names[:min(5, len(names))], ", "))
		if len(names) > 5 {
			line += fmt.Sprintf(" 他%d件", len(names)-5)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func extractKeywords(query string) []string {
	tokens := queryDelimiter.Split(query, -1)
	for _, kw := range knowledgeKeywords {
		if strings.Contains(query, kw) && !containsString(tokens, kw) {
			tokens = append(tokens, kw)
		}
	}

	keywords := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			keywords = append(keywords, t)
		}
	}
	return keywords
}

func searchableText(loc *model.Location) string {
	return strings.ToLower(strings.Join([]string{
		loc.Name,
		loc.Prefecture,
		strings.Join(loc.Aliases, " "),
		strings.Join(loc.Tags, " "),
		loc.Description,
		strings.Join(loc.Specialties, " "),
		strings.Join(loc.Facilities, " "),
	}, " "))
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
