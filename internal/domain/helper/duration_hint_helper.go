package helper

import (
	"regexp"
	"strconv"
)

var (
	minutesHintPattern = regexp.MustCompile(`(\d+)\s*分`)
	hoursHintPattern   = regexp.MustCompile(`(\d+)\s*時間`)
)

// ParseDurationHint は「30分程度」「1時間」のような滞在時間のヒントを分に変換する
func ParseDurationHint(hint string) (int, bool) {
	if m := minutesHintPattern.FindStringSubmatch(hint); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	if m := hoursHintPattern.FindStringSubmatch(hint); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v * 60, true
		}
	}
	return 0, false
}
