package queue

import (
	"math"
	"testing"

	"github.com/Sullygrrr/digger/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreWeights(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		likes   int
		topTags []string
		want    float64
	}{
		{
			name:    "no tags no likes",
			tags:    nil,
			likes:   0,
			topTags: []string{"lofi"},
			want:    0.02 * 0.7,
		},
		{
			name:    "two matching tags moderate likes",
			tags:    []string{"lofi", "trap"},
			likes:   10,
			topTags: []string{"lofi", "trap"},
			want:    0.20*0.7 + 0.1*0.3, // 0.17
		},
		{
			name:    "no overlap but very popular",
			tags:    []string{"pop"},
			likes:   200,
			topTags: []string{"lofi", "trap"},
			want:    0.02*0.7 + 1.0*0.3, // 0.314
		},
		{
			name:    "four matches capped weight",
			tags:    []string{"a", "b", "c", "d"},
			likes:   100,
			topTags: []string{"a", "b", "c", "d"},
			want:    0.40*0.7 + 1.0*0.3,
		},
		{
			name:    "case-insensitive matching",
			tags:    []string{"LoFi"},
			likes:   0,
			topTags: []string{"lofi"},
			want:    0.08 * 0.7,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			track := &model.Track{Tags: tc.tags, Likes: tc.likes}
			got := Score(track, tc.topTags)
			if !almostEqual(got, tc.want) {
				t.Fatalf("Score() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScorePopularityCanOutweighWeakTagMatch(t *testing.T) {
	topTags := []string{"lofi", "trap"}
	a := &model.Track{Tags: []string{"lofi", "trap"}, Likes: 10}
	b := &model.Track{Tags: []string{"pop"}, Likes: 200}

	if Score(b, topTags) <= Score(a, topTags) {
		t.Fatalf("expected popular track %v to outrank tag match %v",
			Score(b, topTags), Score(a, topTags))
	}
}

func TestScoreDeterministicAndBounded(t *testing.T) {
	track := &model.Track{Tags: []string{"lofi", "jazz", "chill"}, Likes: 42}
	topTags := []string{"lofi", "chill", "house", "dnb"}

	first := Score(track, topTags)
	for i := 0; i < 100; i++ {
		if got := Score(track, topTags); got != first {
			t.Fatalf("Score() not deterministic: %v != %v", got, first)
		}
	}
	if first < 0 || first > 1 {
		t.Fatalf("Score() = %v, outside [0,1]", first)
	}
}

func TestScoreMonotonicInMatchingTags(t *testing.T) {
	topTags := []string{"a", "b", "c", "d"}
	prev := -1.0
	for matches := 0; matches <= 4; matches++ {
		track := &model.Track{Tags: topTags[:matches], Likes: 50}
		got := Score(track, topTags)
		if got < prev {
			t.Fatalf("score decreased at %d matches: %v < %v", matches, got, prev)
		}
		prev = got
	}
}
