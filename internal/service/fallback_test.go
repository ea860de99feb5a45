package service

import (
	"testing"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackQuestions_WellFormed(t *testing.T) {
	qs := FallbackQuestions(12, 0)
	require.Len(t, qs, 12)

	for i := range qs {
		require.NoError(t, domain.ValidateQuestion(&qs[i]))
		assert.Equal(t, domain.SourceFallback, qs[i].Source)
		assert.True(t, qs[i].Choices[0].IsCorrect)
	}
}

func TestFallbackQuestions_Deterministic(t *testing.T) {
	assert.Equal(t, FallbackQuestions(7, 2), FallbackQuestions(7, 2))
}

func TestFallbackQuestions_CyclesWithReviewSuffix(t *testing.T) {
	qs := FallbackQuestions(len(fallbackTemplates)+1, 0)

	last := qs[len(qs)-1]
	assert.Equal(t, fallbackTemplates[0].question+" (review 2)", last.Question)
	assert.NotEqual(t, qs[0].Question, last.Question)
}

func TestFallbackQuestions_OffsetContinuesSequence(t *testing.T) {
	all := FallbackQuestions(8, 0)
	tail := FallbackQuestions(3, 5)
	assert.Equal(t, all[5:], tail)
}

func TestFallbackQuestions_NonPositive(t *testing.T) {
	assert.Empty(t, FallbackQuestions(0, 0))
	assert.Empty(t, FallbackQuestions(-1, 0))
}
