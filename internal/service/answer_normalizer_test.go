package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b1411/abai-kpi-api/internal/models"
)

func question(qt models.QuestionType) models.Question {
	return models.Question{ID: "q1", Type: qt}
}

func TestNormalizeAnswerYesNo(t *testing.T) {
	q := question(models.QuestionYesNo)

	score, ok := NormalizeAnswer(true, q)
	assert.True(t, ok)
	assert.Equal(t, 100.0, score)

	score, ok = NormalizeAnswer(false, q)
	assert.True(t, ok)
	assert.Equal(t, 0.0, score)

	_, ok = NormalizeAnswer("yes", q)
	assert.False(t, ok)
}

func TestNormalizeAnswerRating1To5(t *testing.T) {
	q := question(models.QuestionRating1To5)

	cases := map[int]float64{1: 0, 2: 25, 3: 50, 4: 75, 5: 100}
	for raw, want := range cases {
		score, ok := NormalizeAnswer(raw, q)
		assert.True(t, ok)
		assert.InDelta(t, want, score, 0.0001)
	}

	_, ok := NormalizeAnswer(0, q)
	assert.False(t, ok)
	_, ok = NormalizeAnswer(6, q)
	assert.False(t, ok)
	_, ok = NormalizeAnswer(3.5, q)
	assert.False(t, ok)
}

func TestNormalizeAnswerRating1To10(t *testing.T) {
	q := question(models.QuestionRating1To10)

	score, ok := NormalizeAnswer(1, q)
	assert.True(t, ok)
	assert.Equal(t, 0.0, score)

	score, ok = NormalizeAnswer(10, q)
	assert.True(t, ok)
	assert.Equal(t, 100.0, score)

	score, ok = NormalizeAnswer(float64(7), q)
	assert.True(t, ok)
	assert.InDelta(t, 66.6667, score, 0.001)

	_, ok = NormalizeAnswer(11, q)
	assert.False(t, ok)
}

func TestNormalizeAnswerEmotionalScale(t *testing.T) {
	q := question(models.QuestionEmotionalScale)

	score, ok := NormalizeAnswer(3, q)
	assert.True(t, ok)
	assert.Equal(t, 50.0, score)

	_, ok = NormalizeAnswer(6, q)
	assert.False(t, ok)
}

func TestNormalizeAnswerSingleChoice(t *testing.T) {
	q := question(models.QuestionSingleChoice)
	q.Options = []string{"bad", "fine", "great"}

	score, ok := NormalizeAnswer(0, q)
	assert.True(t, ok)
	assert.Equal(t, 0.0, score)

	score, ok = NormalizeAnswer(1, q)
	assert.True(t, ok)
	assert.Equal(t, 50.0, score)

	score, ok = NormalizeAnswer(2, q)
	assert.True(t, ok)
	assert.Equal(t, 100.0, score)

	_, ok = NormalizeAnswer(3, q)
	assert.False(t, ok)
	_, ok = NormalizeAnswer(-1, q)
	assert.False(t, ok)

	// Fewer than two options gives the index no spread to map onto.
	q.Options = []string{"only"}
	_, ok = NormalizeAnswer(0, q)
	assert.False(t, ok)
}

func TestNormalizeAnswerMultipleChoice(t *testing.T) {
	q := question(models.QuestionMultipleChoice)
	q.Options = []string{"a", "b", "c", "d"}
	q.PositiveOptions = []int{0, 2}

	score, ok := NormalizeAnswer([]interface{}{float64(0), float64(2)}, q)
	assert.True(t, ok)
	assert.Equal(t, 100.0, score)

	score, ok = NormalizeAnswer([]int{0, 1}, q)
	assert.True(t, ok)
	assert.Equal(t, 50.0, score)

	score, ok = NormalizeAnswer([]int{1, 3}, q)
	assert.True(t, ok)
	assert.Equal(t, 0.0, score)

	_, ok = NormalizeAnswer("not a list", q)
	assert.False(t, ok)

	// No configured positive options: participation counts, polarity unknown.
	q.PositiveOptions = nil
	score, ok = NormalizeAnswer([]int{1}, q)
	assert.True(t, ok)
	assert.Equal(t, neutralScore, score)
}

func TestNormalizeAnswerText(t *testing.T) {
	q := question(models.QuestionText)

	score, ok := NormalizeAnswer("the lessons were engaging", q)
	assert.True(t, ok)
	assert.Equal(t, neutralScore, score)

	_, ok = NormalizeAnswer("", q)
	assert.False(t, ok)
	_, ok = NormalizeAnswer(42, q)
	assert.False(t, ok)
}

func TestNormalizeAnswerUnknownType(t *testing.T) {
	_, ok := NormalizeAnswer(1, question("MYSTERY"))
	assert.False(t, ok)
}
