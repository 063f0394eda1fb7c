package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/config"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
)

func newTestExtractor(llm ai.ChatClient) *DestinationExtractor {
	return NewDestinationExtractor(llm, NewKnowledgeSearch(newTestLocationIndex()), config.Default().Routing, nil)
}

func TestDestinationExtractor_ExtractWithMock(t *testing.T) {
	extractor := newTestExtractor(ai.NewMockClient())

	extraction := extractor.Extract(context.Background(), "静かな温泉でリフレッシュしたい", true)

	require.Len(t, extraction.Waypoints, 1)
	assert.Equal(t, "箱根温泉", extraction.Waypoints[0].Name)
	assert.Equal(t, model.WaypointTypeFinal, extraction.Waypoints[0].Type)
	assert.Nil(t, extraction.Waypoints[0].Purpose)
	assert.Equal(t, []string{"温泉"}, extraction.FacilityTypes)
	assert.Equal(t, []string{"EV充電"}, extraction.Amenities)
	assert.Equal(t, []string{"静か"}, extraction.Atmosphere)
	assert.Equal(t, []string{"リフレッシュ"}, extraction.Activities)
	assert.Equal(t, "静かな温泉でリフレッシュしたい", extraction.OriginalQuery)
}

func TestDestinationExtractor_Prompt(t *testing.T) {
	stub := &stubLLM{response: `{"waypoints": []}`}
	extractor := newTestExtractor(stub)

	extractor.Extract(context.Background(), "箱根の温泉に行きたい", true)
	require.Len(t, stub.messages, 2)
	assert.Equal(t, ai.RoleSystem, stub.messages[0].Role)
	assert.Contains(t, stub.messages[0].Content, "waypoints")
	assert.Contains(t, stub.messages[0].Content, "## 候補地点情報")
	assert.Contains(t, stub.messages[0].Content, "【箱根】（神奈川県）")
	assert.Contains(t, stub.messages[1].Content, "目的地情報を抽出")
	assert.Contains(t, stub.messages[1].Content, "箱根の温泉に行きたい")

	extractor.Extract(context.Background(), "箱根の温泉に行きたい", false)
	assert.NotContains(t, stub.messages[0].Content, "## 候補地点情報")
}

func TestDestinationExtractor_Parse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		check    func(t *testing.T, e model.DestinationExtraction)
	}{
		{
			name:     "言語指定なしのコードブロック",
			response: "結果です\n```\n{\"waypoints\": [{\"name\": \"河口湖\", \"type\": \"final\", \"order\": 0}], \"atmosphere\": [\"静か\"]}\n```\n以上",
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []string{"河口湖"}, e.PlaceNames())
				assert.Equal(t, []string{"静か"}, e.Atmosphere)
				assert.Equal(t, []string{}, e.FacilityTypes)
			},
		},
		{
			name:     "先に別のコードブロックがあってもjsonブロックを使う",
			response: "例:\n```\n{\"waypoints\": \"例\"}\n```\n結果:\n```json\n{\"waypoints\": [{\"name\": \"箱根\", \"type\": \"final\", \"order\": 0}]}\n```",
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []string{"箱根"}, e.PlaceNames())
			},
		},
		{
			name:     "コードブロックなしのJSON",
			response: `{"waypoints": [], "facility_types": ["道の駅"], "time_constraints": "夜までに"}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Empty(t, e.Waypoints)
				assert.Equal(t, []string{"道の駅"}, e.FacilityTypes)
				require.NotNil(t, e.TimeConstraints)
				assert.Equal(t, "夜までに", *e.TimeConstraints)
			},
		},
		{
			name: "不正な経由地と重複したorderは捨てる",
			response: "```json\n" + `{"waypoints": [
				{"name": "箱根", "type": "required", "order": 0, "duration_hint": "1時間"},
				{"name": "", "type": "final", "order": 1},
				{"name": "河口湖", "type": "unknown", "order": 1},
				{"name": "河口湖", "type": "final", "order": 1.5},
				{"name": "河口湖", "type": "final", "order": -1},
				"河口湖",
				{"name": "河口湖", "type": "final", "order": 1},
				{"name": "富士山", "type": "final", "order": 1}
			]}` + "\n```",
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []string{"箱根", "河口湖"}, e.PlaceNames())
				require.NotNil(t, e.Waypoints[0].DurationHint)
				assert.Equal(t, "1時間", *e.Waypoints[0].DurationHint)
			},
		},
		{
			name:     "typeのない経由地は最終目的地を奪わない",
			response: `{"waypoints": [{"name": "箱根", "order": 0}, {"name": "河口湖", "type": "final", "order": 1}]}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []string{"河口湖"}, e.PlaceNames())
				final, ok := e.FinalWaypoint()
				require.True(t, ok)
				assert.Equal(t, "河口湖", final.Name)
				assert.Equal(t, model.WaypointTypeFinal, final.Type)
			},
		},
		{
			name:     "orderのない経由地は捨てる",
			response: `{"waypoints": [{"name": "奥多摩", "type": "final"}, {"name": "箱根", "type": "final", "order": 0}]}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []string{"箱根"}, e.PlaceNames())
			},
		},
		{
			name:     "nameだけの経由地は捨てる",
			response: `{"waypoints": [{"name": "奥多摩"}]}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Empty(t, e.Waypoints)
			},
		},
		{
			name:     "nullのリストは空にする",
			response: `{"waypoints": null, "facility_types": null, "amenities": null}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, []model.ExtractedWaypoint{}, e.Waypoints)
				assert.Equal(t, []string{}, e.FacilityTypes)
				assert.Equal(t, []string{}, e.Amenities)
			},
		},
		{
			name:     "JSONでない",
			response: "すみません、よくわかりませんでした",
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, model.NewEmptyExtraction("クエリ"), e)
			},
		},
		{
			name:     "リストの型が違う",
			response: `{"waypoints": [], "facility_types": "温泉"}`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, model.NewEmptyExtraction("クエリ"), e)
			},
		},
		{
			name:     "配列",
			response: `[{"name": "箱根"}]`,
			check: func(t *testing.T, e model.DestinationExtraction) {
				assert.Equal(t, model.NewEmptyExtraction("クエリ"), e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := newTestExtractor(&stubLLM{response: tt.response})
			e := extractor.Extract(context.Background(), "クエリ", false)
			assert.Equal(t, "クエリ", e.OriginalQuery)
			tt.check(t, e)
		})
	}
}

func TestDestinationExtractor_LLMError(t *testing.T) {
	extractor := newTestExtractor(&stubLLM{err: errors.New("connection refused")})
	assert.Equal(t, model.NewEmptyExtraction("箱根"), extractor.Extract(context.Background(), "箱根", true))
}

func TestDestinationExtractor_ExtractStream(t *testing.T) {
	extractor := newTestExtractor(ai.NewMockClient())

	var tokens strings.Builder
	var results []*model.DestinationExtraction
	for token, extraction := range extractor.ExtractStream(context.Background(), "温泉に行きたい", true) {
		if extraction != nil {
			assert.Empty(t, token)
			results = append(results, extraction)
			continue
		}
		tokens.WriteString(token)
	}

	require.Len(t, results, 1, "最終結果は1回だけ")
	assert.Equal(t, []string{"箱根温泉"}, results[0].PlaceNames())
	assert.Contains(t, tokens.String(), "箱根温泉")
}

func TestDestinationExtractor_ExtractStreamErrorAndBreak(t *testing.T) {
	extractor := newTestExtractor(&stubLLM{err: errors.New("stream failed")})
	var last *model.DestinationExtraction
	for _, extraction := range extractor.ExtractStream(context.Background(), "箱根", false) {
		last = extraction
	}
	require.NotNil(t, last)
	assert.Empty(t, last.Waypoints)

	count := 0
	for range newTestExtractor(ai.NewMockClient()).ExtractStream(context.Background(), "箱根", false) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
