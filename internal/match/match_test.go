package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khidma/internal/core"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"محمد", "محمود", 1},
		{"أحمد", "", 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Distance(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestBest(t *testing.T) {
	candidates := []Candidate{
		{ID: "1", Name: "محمد علي"},
		{ID: "2", Name: "محمود علي"},
		{ID: "3", Name: "سارة حسن"},
	}

	got, ok := Best("  محمد علي ", candidates)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, 0, got.Distance)

	got, ok = Best("سارة حسين", candidates)
	require.True(t, ok)
	assert.Equal(t, "3", got.ID)
	assert.Equal(t, 1, got.Distance)

	_, ok = Best("عبد الرحمن إبراهيم", candidates)
	assert.False(t, ok, "names further than the threshold should not match")

	_, ok = Best("محمد", nil)
	assert.False(t, ok)
}

func TestBestThresholdBoundary(t *testing.T) {
	candidates := []Candidate{{ID: "x", Name: "abcdefghij"}}

	_, ok := Best("abcde", candidates)
	assert.True(t, ok, "distance 5 is accepted")

	_, ok = Best("abcd", candidates)
	assert.False(t, ok, "distance 6 is rejected")
}

func TestSponsor(t *testing.T) {
	sponsors := []core.Sponsor{
		{ID: "s1", Name: "أحمد محمد السيد"},
		{ID: "s2", Name: "منى"},
	}

	s, conf := Sponsor("أحمد محمد", sponsors)
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, ConfidenceMatched, conf)

	s, conf = Sponsor("منى عبد الله", sponsors)
	require.NotNil(t, s)
	assert.Equal(t, "s2", s.ID)
	assert.Equal(t, ConfidenceMatched, conf)

	s, conf = Sponsor("خالد", sponsors)
	assert.Nil(t, s)
	assert.Equal(t, ConfidenceUnmatched, conf)

	s, _ = Sponsor("  ", sponsors)
	assert.Nil(t, s, "an empty sender never matches")
}

func TestCandidates(t *testing.T) {
	got := Candidates([]core.Sponsor{{ID: "a", Name: "x"}})
	assert.Equal(t, []Candidate{{ID: "a", Name: "x"}}, got)
}
