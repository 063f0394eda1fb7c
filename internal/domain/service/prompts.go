package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
)

const promptTimeLayout = "2006-01-02 15:04"

const destinationExtractionSystem = `あなたは車両ルート計画のアシスタントです。
ユーザーの自然言語の要望から、行き先と経由地、施設や雰囲気の希望を抽出してください。

## 経由地の種類
- required: 必ず立ち寄る場所（「〜経由で」「〜を通って」）
- optional: できれば立ち寄りたい場所（「できれば」「時間があれば」）
- final: 最終目的地

## 出力形式
必ず以下のJSON形式で回答してください。他のテキストは含めないでください。

` + "```json" + `
{
  "waypoints": [
    {"name": "箱根", "type": "required", "order": 0, "purpose": "観光", "duration_hint": "1時間"},
    {"name": "河口湖", "type": "final", "order": 1, "purpose": null, "duration_hint": null}
  ],
  "facility_types": ["温泉"],
  "amenities": ["EV充電"],
  "atmosphere": ["静か"],
  "activities": ["リフレッシュ"],
  "time_constraints": null,
  "distance_preference": null
}
` + "```" + `

## 注意事項
- orderは訪問順に0から振ってください
- 場所が特定できない場合はwaypointsを空配列にしてください
- 地名は候補地点情報にある名前を優先してください
`

const routeEvaluationSystem = `あなたは車両ルート提案AIアシスタントです。
ユーザーの要望と複数のルート候補を分析し、最適なルートを推奨してください。

## 評価基準（優先度順）
1. ユーザーの希望到着時刻との適合性
2. ユーザーの好み（静かさ、施設など）との一致度
3. バッテリー残量と充電スポットの有無
4. コストパフォーマンス（高速料金、距離）
5. 景観・環境の質

## 出力形式
必ず以下のJSON形式で回答してください。他のテキストは含めないでください。

` + "```json" + `
{
  "ranking": ["A", "B", "C"],
  "recommended_id": "A",
  "explanation": "推奨理由を日本語で2-3文で記載",
  "confidence": 0.85,
  "follow_up_question": null,
  "reasoning_steps": ["思考過程1", "思考過程2", "思考過程3"]
}
` + "```" + `

## 注意事項
- explanationは必ず日本語で記載してください
- confidenceは0.0〜1.0の範囲で、推奨の確信度を表します
- 情報が不足している場合はfollow_up_questionに質問を記載してください
- reasoning_stepsには評価の思考過程を箇条書きで記載してください
`

// BuildDestinationExtractionPrompt は目的地抽出用のメッセージを組み立てる。
// locationContext が空でなければシステムプロンプトの末尾に候補地点情報として付与する
func BuildDestinationExtractionPrompt(query, locationContext string) []ai.Message {
	system := destinationExtractionSystem
	if locationContext != "" {
		system += "\n" + locationContext
	}
	user := fmt.Sprintf("以下のリクエストから目的地情報を抽出してください。\n\nリクエスト: %s", query)
	return []ai.Message{ai.SystemMessage(system), ai.UserMessage(user)}
}

// BuildRouteEvaluationPrompt はルート評価用のメッセージを組み立てる
func BuildRouteEvaluationPrompt(rc model.RoutingContext) []ai.Message {
	var b strings.Builder

	arrival := "指定なし"
	if rc.UserRequest.DesiredArrival != nil {
		arrival = rc.UserRequest.DesiredArrival.Format(promptTimeLayout)
	}
	preferences := "特になし"
	if len(rc.UserRequest.Preferences) > 0 {
		preferences = strings.Join(rc.UserRequest.Preferences, ", ")
	}

	b.WriteString("## ユーザーリクエスト\n")
	fmt.Fprintf(&b, "- 要望: %s\n", rc.UserRequest.Text)
	fmt.Fprintf(&b, "- 希望到着時刻: %s\n", arrival)
	fmt.Fprintf(&b, "- 好み: %s\n\n", preferences)

	vs := rc.VehicleState
	b.WriteString("## 車両状態\n")
	fmt.Fprintf(&b, "- バッテリー残量: %.1f%%\n", vs.BatteryLevel)
	fmt.Fprintf(&b, "- 走行可能距離: %.1fkm\n", vs.RangeKm)
	fmt.Fprintf(&b, "- 現在のモード: %s\n", vs.CurrentMode)
	fmt.Fprintf(&b, "- 現在位置: (%.4f, %.4f)\n\n", vs.Latitude, vs.Longitude)

	b.WriteString("## 現在時刻\n")
	b.WriteString(rc.CurrentTime.Format(promptTimeLayout))
	b.WriteString("\n\n")

	b.WriteString("## ルート候補\n")
	for _, r := range rc.RouteCandidates {
		writeRouteCandidate(&b, r)
	}

	b.WriteString("\n上記の情報を分析し、最適なルートを推奨してください。\n")

	return []ai.Message{ai.SystemMessage(routeEvaluationSystem), ai.UserMessage(b.String())}
}

func writeRouteCandidate(b *strings.Builder, r model.RouteFeatures) {
	charging := "なし"
	if r.ChargingAvailable {
		charging = "あり"
	}
	facilities := "なし"
	if len(r.NearbyFacilities) > 0 {
		facilities = strings.Join(r.NearbyFacilities, ", ")
	}

	fmt.Fprintf(b, "\n### ルート %s: %s\n", r.ID, r.DestinationName)
	fmt.Fprintf(b, "- 到着予定時刻: %s\n", formatPromptTime(r.ETA))
	fmt.Fprintf(b, "- 距離: %.1fkm / 所要時間: %d分\n", r.DistanceKm, r.DurationMinutes)
	fmt.Fprintf(b, "- 高速料金: %d円\n", r.TollFee)
	fmt.Fprintf(b, "- 充電スポット: %s\n", charging)
	fmt.Fprintf(b, "- 騒音レベル: %s\n", r.NoiseLevel)
	fmt.Fprintf(b, "- 景観スコア: %.1f/5.0\n", r.SceneryScore)
	fmt.Fprintf(b, "- 周辺施設: %s\n", facilities)
}

func formatPromptTime(t time.Time) string {
	if t.IsZero() {
		return "不明"
	}
	return t.Format(promptTimeLayout)
}
