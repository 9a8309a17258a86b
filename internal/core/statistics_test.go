package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

func votesOf(values ...string) map[domain.UserID]domain.Vote {
	out := make(map[domain.UserID]domain.Vote, len(values))
	for i, v := range values {
		out[domain.UserID(rune('a'+i))] = domain.Vote{Value: v, SubmittedAt: time.Now()}
	}
	return out
}

func TestComputeStatistics(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	s := func(v string) *string { return &v }

	tests := []struct {
		name  string
		votes []string
		want  domain.Statistics
	}{
		{
			name:  "no votes",
			votes: nil,
			want:  domain.Statistics{},
		},
		{
			name:  "two numeric votes",
			votes: []string{"5", "8"},
			want:  domain.Statistics{Average: f(6.5), Min: f(5), Max: f(8), Range: f(3), Mode: s("5")},
		},
		{
			name:  "numeric beats non-numeric on tie",
			votes: []string{"?", "5"},
			want:  domain.Statistics{Average: f(5), Min: f(5), Max: f(5), Range: f(0), Mode: s("5")},
		},
		{
			name:  "only non-numeric votes",
			votes: []string{"coffee", "?"},
			want:  domain.Statistics{Mode: s("?")},
		},
		{
			name:  "most frequent wins over tie-break",
			votes: []string{"13", "13", "3", "?", "?", "?"},
			want:  domain.Statistics{Average: f(29.0 / 3), Min: f(3), Max: f(13), Range: f(10), Mode: s("?")},
		},
		{
			name:  "fractional card",
			votes: []string{"0.5", "1", "1"},
			want:  domain.Statistics{Average: f(2.5 / 3), Min: f(0.5), Max: f(1), Range: f(0.5), Mode: s("1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatistics(votesOf(tt.votes...))
			if tt.want.Average != nil {
				require.NotNil(t, got.Average)
				assert.InDelta(t, *tt.want.Average, *got.Average, 1e-9)
				got.Average, tt.want.Average = nil, nil
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStatistics_AverageIsNotRounded(t *testing.T) {
	got := ComputeStatistics(votesOf("1", "2", "2"))
	require.NotNil(t, got.Average)
	assert.InDelta(t, 5.0/3, *got.Average, 1e-9)
	assert.NotEqual(t, 1.67, *got.Average)
}

func TestComputeStatistics_NullIffNoNumeric(t *testing.T) {
	got := ComputeStatistics(votesOf("XL", "M", "?"))
	assert.Nil(t, got.Average)
	assert.Nil(t, got.Min)
	assert.Nil(t, got.Max)
	assert.Nil(t, got.Range)
	require.NotNil(t, got.Mode)
	assert.Equal(t, "?", *got.Mode)
}

func TestModeTieBreak(t *testing.T) {
	tests := []struct {
		votes []string
		want  string
	}{
		{[]string{"8", "5"}, "5"},
		{[]string{"?", "5"}, "5"},
		{[]string{"coffee", "?"}, "?"},
		{[]string{"XL", "M", "S"}, "M"},
		{[]string{"21", "3", "13"}, "3"},
	}
	for _, tt := range tests {
		got := ComputeStatistics(votesOf(tt.votes...))
		require.NotNil(t, got.Mode)
		assert.Equal(t, tt.want, *got.Mode, "votes %v", tt.votes)
	}
}
