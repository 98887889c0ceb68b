package queue

import (
	"strings"

	"github.com/Sullygrrr/digger/model"
)

const (
	// maxLikesForBonus caps the popularity contribution; anything past 100
	// likes scores the same.
	maxLikesForBonus = 100
	// likesWeight is the share of the final score driven by popularity,
	// the rest comes from tag overlap.
	likesWeight = 0.3
)

// tagWeights maps the number of matched preferred tags to a base weight.
var tagWeights = [5]float64{0.02, 0.08, 0.20, 0.30, 0.40}

func tagScore(track *model.Track, topTags []string) float64 {
	matching := 0
	for _, t := range track.Tags {
		lower := strings.ToLower(t)
		for _, top := range topTags {
			if lower == strings.ToLower(top) {
				matching++
				break
			}
		}
	}
	if matching >= len(tagWeights) {
		matching = len(tagWeights) - 1
	}
	return tagWeights[matching]
}

func likeScore(likes int) float64 {
	if likes > maxLikesForBonus {
		likes = maxLikesForBonus
	}
	if likes < 0 {
		likes = 0
	}
	return float64(likes) / maxLikesForBonus
}

// Score rates how desirable a track is for a user whose strongest tags are
// topTags (at most four). The result is deterministic and in [0,1]; any
// randomized tie-breaking is the caller's business.
func Score(track *model.Track, topTags []string) float64 {
	return tagScore(track, topTags)*(1-likesWeight) + likeScore(track.Likes)*likesWeight
}
