package model

import "regexp"

// PlatformLinks maps a streaming platform to the track's external URL there.
// Only the four supported platforms may appear.
type PlatformLinks struct {
	Spotify    string `json:"spotify,omitempty"`
	Deezer     string `json:"deezer,omitempty"`
	AppleMusic string `json:"appleMusic,omitempty"`
	YouTube    string `json:"youtube,omitempty"`
}

var platformPatterns = map[string]*regexp.Regexp{
	"spotify":    regexp.MustCompile(`^https://open\.spotify\.com/track/[a-zA-Z0-9]+`),
	"deezer":     regexp.MustCompile(`^https://(www\.)?deezer\.com/[a-z]{2}/track/[0-9]+`),
	"appleMusic": regexp.MustCompile(`^https://music\.apple\.com/[a-z]{2}/album/[^/]+/[0-9]+\?i=[0-9]+`),
	"youtube":    regexp.MustCompile(`^https://(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[a-zA-Z0-9_-]+`),
}

// ValidatePlatformURL reports whether url is a well-formed track link for the
// given platform. Unknown platforms are always invalid.
func ValidatePlatformURL(platform, url string) bool {
	pattern, ok := platformPatterns[platform]
	if !ok {
		return false
	}
	return pattern.MatchString(url)
}

// Validate checks every non-empty link against its platform pattern and
// returns the name of the first invalid one, or "" if all are fine.
func (p PlatformLinks) Validate() string {
	checks := []struct {
		name string
		url  string
	}{
		{"spotify", p.Spotify},
		{"deezer", p.Deezer},
		{"appleMusic", p.AppleMusic},
		{"youtube", p.YouTube},
	}
	for _, c := range checks {
		if c.url != "" && !ValidatePlatformURL(c.name, c.url) {
			return c.name
		}
	}
	return ""
}
