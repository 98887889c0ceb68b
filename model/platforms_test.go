package model

import "testing"

func TestValidatePlatformURL(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		url      string
		want     bool
	}{
		{"spotify ok", "spotify", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", true},
		{"spotify wrong host", "spotify", "https://spotify.com/track/abc", false},
		{"deezer ok", "deezer", "https://www.deezer.com/fr/track/3135556", true},
		{"deezer no locale", "deezer", "https://www.deezer.com/track/3135556", false},
		{"apple ok", "appleMusic", "https://music.apple.com/fr/album/song-name/1440833098?i=1440833548", true},
		{"apple missing i", "appleMusic", "https://music.apple.com/fr/album/song-name/1440833098", false},
		{"youtube watch ok", "youtube", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"youtube short ok", "youtube", "https://youtu.be/dQw4w9WgXcQ", true},
		{"youtube other path", "youtube", "https://www.youtube.com/playlist?list=x", false},
		{"unknown platform", "soundcloud", "https://soundcloud.com/x/y", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidatePlatformURL(tc.platform, tc.url); got != tc.want {
				t.Fatalf("ValidatePlatformURL(%s, %s) = %v, want %v", tc.platform, tc.url, got, tc.want)
			}
		})
	}
}

func TestPlatformLinksValidate(t *testing.T) {
	ok := PlatformLinks{
		Spotify: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
		YouTube: "https://youtu.be/dQw4w9WgXcQ",
	}
	if bad := ok.Validate(); bad != "" {
		t.Fatalf("expected valid links, got invalid %q", bad)
	}

	broken := PlatformLinks{Deezer: "https://example.com/track/1"}
	if bad := broken.Validate(); bad != "deezer" {
		t.Fatalf("expected deezer flagged, got %q", bad)
	}

	empty := PlatformLinks{}
	if bad := empty.Validate(); bad != "" {
		t.Fatalf("empty links should validate, got %q", bad)
	}
}
