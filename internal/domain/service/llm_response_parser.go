package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareFencePattern = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

const extractionSchemaJSON = `{
  "type": "object",
  "properties": {
    "waypoints": {"type": ["array", "null"]},
    "facility_types": {"type": ["array", "null"], "items": {"type": "string"}},
    "amenities": {"type": ["array", "null"], "items": {"type": "string"}},
    "atmosphere": {"type": ["array", "null"], "items": {"type": "string"}},
    "activities": {"type": ["array", "null"], "items": {"type": "string"}},
    "time_constraints": {"type": ["string", "null"]},
    "distance_preference": {"type": ["string", "null"]}
  }
}`

const waypointSchemaJSON = `{
  "type": "object",
  "required": ["name", "type", "order"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "type": {"enum": ["required", "optional", "final"]},
    "order": {"type": "integer", "minimum": 0},
    "purpose": {"type": ["string", "null"]},
    "duration_hint": {"type": ["string", "null"]}
  }
}`

const recommendationSchemaJSON = `{
  "type": "object",
  "required": ["ranking", "recommended_id", "explanation", "confidence"],
  "properties": {
    "ranking": {"type": "array", "items": {"type": "string"}},
    "recommended_id": {"type": "string", "minLength": 1},
    "explanation": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "follow_up_question": {"type": ["string", "null"]},
    "reasoning_steps": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var (
	extractionSchema     = mustSchema(extractionSchemaJSON)
	waypointSchema       = mustSchema(waypointSchemaJSON)
	recommendationSchema = mustSchema(recommendationSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("JSONスキーマが不正です: %v", err))
	}
	return schema
}

// extractJSONText はLLMの応答から最初のjsonブロックを取り出す。
// なければ最初のコードブロック、それもなければ全体を返す
func extractJSONText(response string) string {
	if m := jsonFencePattern.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	if m := bareFencePattern.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	return strings.TrimSpace(response)
}

// decodeJSONObject は応答をJSONオブジェクトとしてデコードする
func decodeJSONObject(response string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSONText(response)), &data); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	if data == nil {
		return nil, errors.New("JSONオブジェクトではありません")
	}
	return data, nil
}

// validateAgainst はスキーマ違反をまとめて1つのエラーにする
func validateAgainst(schema *gojsonschema.Schema, v any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("スキーマ検証に失敗: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			errs[i] = e.String()
		}
		return fmt.Errorf("スキーマに一致しません: %s", strings.Join(errs, "; "))
	}
	return nil
}

// remarshal は検証済みの値を型付きの構造体に詰め替える
func remarshal(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
