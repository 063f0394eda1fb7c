package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/repository"
)

func knowledgeIDs(results []LocationKnowledge) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestKnowledgeSearch_Search(t *testing.T) {
	ks := NewKnowledgeSearch(newTestLocationIndex())

	results := ks.Search("箱根の温泉", 3, false, false)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"hakone", "tokyo_station", "kawaguchiko"}, knowledgeIDs(results))
	// キーワードは「箱根の温泉」「温泉」「箱根」の3つで、箱根は2つにヒット
	assert.InDelta(t, 2.0/3.0, results[0].Relevance, 1e-9)
	assert.Equal(t, paddingRelevance, results[1].Relevance)
}

func TestKnowledgeSearch_Filters(t *testing.T) {
	ks := NewKnowledgeSearch(newTestLocationIndex())

	ev := ks.Search("湖", 5, true, false)
	assert.Equal(t, []string{"hakone", "kawaguchiko", "michinoeki_fujiyoshida"}, knowledgeIDs(ev))
	assert.Equal(t, 1.0, ev[0].Relevance)
	assert.Equal(t, paddingRelevance, ev[2].Relevance)

	overnight := ks.Search("湖", 5, false, true)
	assert.Equal(t, []string{"okutama", "michinoeki_fujiyoshida"}, knowledgeIDs(overnight))
}

func TestLocationKnowledge_ContextString(t *testing.T) {
	loc, ok := newTestLocationIndex().GetByID("hakone")
	require.True(t, ok)

	expected := strings.Join([]string{
		"【箱根】（神奈川県）",
		"  種別: 温泉",
		"  概要: 芦ノ湖と温泉街で知られる観光地",
		"  名物: 黒たまご",
		"  おすすめ時期: 秋",
		"  特徴: EV充電可, 景観◎",
	}, "\n")
	assert.Equal(t, expected, newLocationKnowledge(loc, 1).ContextString())

	okutama, _ := newTestLocationIndex().GetByID("okutama")
	assert.Equal(t, "【奥多摩】（東京都）\n  種別: 山\n  特徴: 車中泊可", newLocationKnowledge(okutama, 1).ContextString())
}

func TestKnowledgeSearch_ContextForLLM(t *testing.T) {
	ks := NewKnowledgeSearch(newTestLocationIndex())

	large := ks.ContextForLLM("温泉", 5, 2000)
	assert.True(t, strings.HasPrefix(large, contextHeader))
	assert.Contains(t, large, "【箱根】（神奈川県）")

	small := ks.ContextForLLM("温泉", 5, 10)
	assert.Equal(t, contextHeader, small, "予算を超える地点は含めない")
	assert.Less(t, len(small), len(large))

	assert.Equal(t, large, ks.ContextForLLM("温泉", 5, 2000))

	empty := NewKnowledgeSearch(repository.NewLocationIndexFromLocations(nil, nil))
	assert.Equal(t, noContextMessage, empty.ContextForLLM("温泉", 5, 800))
}

func TestKnowledgeSearch_AvailableLocationsSummary(t *testing.T) {
	summary := NewKnowledgeSearch(newTestLocationIndex()).AvailableLocationsSummary()
	assert.True(t, strings.HasPrefix(summary, "## 利用可能な地点一覧\n"))
	assert.Contains(t, summary, "- onsen: 箱根")
	assert.Contains(t, summary, "- lake: 河口湖")

	var onsens []model.Location
	for i := 1; i <= 7; i++ {
		onsens = append(onsens, model.Location{
			ID: fmt.Sprintf("onsen_%d", i), Name: fmt.Sprintf("温泉%d", i), Type: model.LocationTypeOnsen,
		})
	}
	many := NewKnowledgeSearch(repository.NewLocationIndexFromLocations(onsens, nil)).AvailableLocationsSummary()
	assert.Contains(t, many, "- onsen: 温泉1, 温泉2, 温泉3, 温泉4, 温泉5 他2件")
}
