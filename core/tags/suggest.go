package tags

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	popularTagsKey = "tags:popular"
	// maxSuggestions limits how many completions one prefix query returns.
	maxSuggestions = 5
	// scanBatch is how many tags one popularity scan pulls at a time.
	scanBatch = 500
)

// Suggester tracks global tag usage in a Redis sorted set and serves prefix
// completions ordered by popularity.
type Suggester struct {
	client *redis.Client
}

// NewSuggester creates a Suggester over the shared Redis client.
func NewSuggester(client *redis.Client) *Suggester {
	return &Suggester{client: client}
}

// Record adjusts the global usage counter of each tag by delta. Counters
// that fall to zero or below are removed so dead tags stop surfacing.
func (s *Suggester) Record(ctx context.Context, tagList []string, delta int) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	for _, raw := range tagList {
		tag := Normalize(raw)
		if tag == "" {
			continue
		}
		score, err := s.client.ZIncrBy(ctx, popularTagsKey, float64(delta), tag).Result()
		if err != nil {
			return fmt.Errorf("failed to record tag %q: %w", tag, err)
		}
		if score <= 0 {
			if err := s.client.ZRem(ctx, popularTagsKey, tag).Err(); err != nil {
				return fmt.Errorf("failed to prune tag %q: %w", tag, err)
			}
		}
	}
	return nil
}

// Suggest returns up to five known tags starting with prefix, most used
// first. An empty prefix yields nothing.
func (s *Suggester) Suggest(ctx context.Context, prefix string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	prefix = Normalize(prefix)
	if prefix == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// Walk the set from most popular down, keeping prefix matches.
	var matches []string
	for offset := int64(0); ; offset += scanBatch {
		batch, err := s.client.ZRevRange(ctx, popularTagsKey, offset, offset+scanBatch-1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read popular tags: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, tag := range batch {
			if len(tag) >= len(prefix) && tag[:len(prefix)] == prefix {
				matches = append(matches, tag)
				if len(matches) >= maxSuggestions {
					return matches, nil
				}
			}
		}
		if int64(len(batch)) < scanBatch {
			break
		}
	}
	return matches, nil
}
