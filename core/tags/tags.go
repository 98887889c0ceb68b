package tags

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxTags is the most tags a single track may carry.
	MaxTags = 8
	// MaxTagLength is the longest a single tag may be after normalization.
	MaxTagLength = 20
)

var validTag = regexp.MustCompile(`^[a-z0-9 .\-_]+$`)

var (
	ErrTooManyTags = errors.New("too many tags")
	ErrEmptyTag    = errors.New("empty tag")
)

// Normalize lowercases and trims a tag. Affinity counters and track tags are
// always stored in this form.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Validate checks a single normalized tag against the length and charset rules.
func Validate(tag string) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if len(tag) > MaxTagLength {
		return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagLength)
	}
	if !validTag.MatchString(tag) {
		return fmt.Errorf("tag %q contains invalid characters", tag)
	}
	return nil
}

// NormalizeSet normalizes a track's tag list, drops duplicates while keeping
// order, and validates each entry.
func NormalizeSet(raw []string) ([]string, error) {
	if len(raw) > MaxTags {
		return nil, ErrTooManyTags
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		n := Normalize(t)
		if seen[n] {
			continue
		}
		if err := Validate(n); err != nil {
			return nil, err
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
