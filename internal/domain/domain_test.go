package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		matches int
		want    float64
		cat     Category
	}{
		{0, 0.5, CategoryRelevant},
		{1, 0.6, CategoryRelevant},
		{2, 0.7, CategoryHighlyRelevant},
		{4, 0.9, CategoryHighlyRelevant},
		{5, 1.0, CategoryHighlyRelevant},
		{12, 1.0, CategoryHighlyRelevant},
	}

	for _, tt := range tests {
		score := KeywordScore(tt.matches)
		assert.Equal(t, tt.want, score, "matches=%d", tt.matches)
		assert.Equal(t, tt.cat, CategoryForScore(score), "matches=%d", tt.matches)
	}
}

func TestCategoryForScore(t *testing.T) {
	assert.Equal(t, CategoryModeratelyRelevant, CategoryForScore(0))
	assert.Equal(t, CategoryModeratelyRelevant, CategoryForScore(0.49))
	assert.Equal(t, CategoryRelevant, CategoryForScore(0.5))
	assert.Equal(t, CategoryRelevant, CategoryForScore(0.69))
	assert.Equal(t, CategoryHighlyRelevant, CategoryForScore(0.7))
	assert.Equal(t, CategoryHighlyRelevant, CategoryForScore(1))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusUnread.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusUnread.CanTransitionTo(StatusDismissed))
	assert.False(t, StatusUnread.CanTransitionTo(StatusUnread))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusUnread))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusDismissed))
	assert.False(t, StatusDismissed.CanTransitionTo(StatusConfirmed))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, st)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("")
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, f)

	f, err = ParseFrequency("DAILY")
	require.NoError(t, err)
	assert.Equal(t, FrequencyDaily, f)

	_, err = ParseFrequency("hourly")
	assert.ErrorIs(t, err, ErrInvalidJournal)
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"hydrogen", "co2 capture"}, ParseKeywords(" hydrogen, ,co2 capture,"))
	assert.Empty(t, ParseKeywords(""))
}

func TestPaperPage_HasMore(t *testing.T) {
	p := PaperPage{Papers: make([]Recommendation, 2), Total: 5, Offset: 2}
	assert.True(t, p.HasMore())

	p.Offset = 3
	assert.False(t, p.HasMore())
}
