package service

import (
	"github.com/b1411/abai-kpi-api/internal/models"
)

// neutralScore is assigned when an answer carries signal but no polarity:
// free text (sentiment analysis deferred) and multiple-choice questions with
// no configured positive options.
const neutralScore = 50.0

// NormalizeAnswer converts one raw feedback answer into a 0-100 score
// according to the question's declared type. The second return value is false
// for malformed or out-of-range answers; such answers are excluded from
// aggregation entirely and never count toward response totals.
//
// Raw values arrive JSON-decoded, so numbers are float64 and index lists are
// []interface{}. Integral floats are accepted wherever an integer is expected.
func NormalizeAnswer(value interface{}, question models.Question) (float64, bool) {
	switch question.Type {
	case models.QuestionYesNo:
		b, ok := value.(bool)
		if !ok {
			return 0, false
		}
		if b {
			return 100, true
		}
		return 0, true

	case models.QuestionRating1To5, models.QuestionEmotionalScale:
		return normalizeScale(value, 1, 5)

	case models.QuestionRating1To10:
		return normalizeScale(value, 1, 10)

	case models.QuestionSingleChoice:
		optionsCount := len(question.Options)
		if optionsCount < 2 {
			return 0, false
		}
		index, ok := asInt(value)
		if !ok || index < 0 || index > optionsCount-1 {
			return 0, false
		}
		return float64(index) / float64(optionsCount-1) * 100, true

	case models.QuestionMultipleChoice:
		selected, ok := asIntSlice(value)
		if !ok {
			return 0, false
		}
		if len(question.PositiveOptions) == 0 {
			return neutralScore, true
		}
		positive := make(map[int]struct{}, len(question.PositiveOptions))
		for _, idx := range question.PositiveOptions {
			positive[idx] = struct{}{}
		}
		hits := 0
		for _, idx := range selected {
			if _, ok := positive[idx]; ok {
				hits++
			}
		}
		return float64(hits) / float64(len(question.PositiveOptions)) * 100, true

	case models.QuestionText:
		s, ok := value.(string)
		if !ok || s == "" {
			return 0, false
		}
		return neutralScore, true

	default:
		return 0, false
	}
}

// normalizeScale maps an integer in [min, max] linearly onto [0, 100].
func normalizeScale(value interface{}, min, max int) (float64, bool) {
	v, ok := asInt(value)
	if !ok || v < min || v > max {
		return 0, false
	}
	return float64(v-min) / float64(max-min) * 100, true
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func asIntSlice(value interface{}) ([]int, bool) {
	switch v := value.(type) {
	case []int:
		return v, true
	case []interface{}:
		out := make([]int, 0, len(v))
		for _, item := range v {
			n, ok := asInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}
