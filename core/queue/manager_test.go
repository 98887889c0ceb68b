package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Sullygrrr/digger/model"
)

type fakeStore struct {
	candidates []*model.Track
	liked      map[string]bool
	candErr    error
	likedErr   error
}

func (f *fakeStore) Candidates(ctx context.Context, excludeUserID int64) ([]*model.Track, error) {
	if f.candErr != nil {
		return nil, f.candErr
	}
	return f.candidates, nil
}

func (f *fakeStore) LikedTrackIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	if f.likedErr != nil {
		return nil, f.likedErr
	}
	if f.liked == nil {
		return map[string]bool{}, nil
	}
	return f.liked, nil
}

type fakeAffinity struct {
	tags []model.TagCount
	err  error
}

func (f *fakeAffinity) TopTags(ctx context.Context, userID int64, n int) ([]model.TagCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.tags) > n {
		return f.tags[:n], nil
	}
	return f.tags, nil
}

type fakeMedia struct {
	missing map[string]bool
	err     error
}

func (f *fakeMedia) FileExists(ctx context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.missing[key], nil
}

// gateMedia blocks the first caller until release is closed, so a test can
// interleave a Reset with an in-flight refill pass.
type gateMedia struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateMedia) FileExists(ctx context.Context, key string) (bool, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return true, nil
}

func makeTracks(n int) []*model.Track {
	out := make([]*model.Track, n)
	for i := 0; i < n; i++ {
		out[i] = &model.Track{
			ID:       fmt.Sprintf("track-%02d", i),
			UserID:   100,
			Title:    fmt.Sprintf("Track %d", i),
			AudioURL: fmt.Sprintf("audio/track-%02d.mp3", i),
			Tags:     []string{"lofi"},
			Likes:    i,
		}
	}
	return out
}

func testConfig() Config {
	return Config{Size: 10, TopTags: 4, SeenProbability: 0, LikeProbability: 0, Jitter: 0.1}
}

func newTestManager(store Store, affinity AffinitySource, media MediaChecker, cfg Config) *Manager {
	return NewManager(1, store, affinity, media, cfg, rand.New(rand.NewSource(42)))
}

func TestFillCapsBufferAtTargetSize(t *testing.T) {
	store := &fakeStore{candidates: makeTracks(30)}
	m := newTestManager(store, &fakeAffinity{}, &fakeMedia{}, testConfig())

	m.Fill(context.Background())

	if got := m.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}
	if st := m.State(); st != StateReady {
		t.Fatalf("State() = %s, want %s", st, StateReady)
	}
}

func TestFillRanksByScoreWithoutJitter(t *testing.T) {
	store := &fakeStore{candidates: []*model.Track{
		{ID: "weak", AudioURL: "a/weak", Tags: []string{"pop"}, Likes: 0},
		{ID: "strong", AudioURL: "a/strong", Tags: []string{"lofi", "trap"}, Likes: 100},
		{ID: "middle", AudioURL: "a/middle", Tags: []string{"lofi"}, Likes: 20},
	}}
	affinity := &fakeAffinity{tags: []model.TagCount{{Tag: "lofi", Count: 5}, {Tag: "trap", Count: 2}}}
	cfg := testConfig()
	cfg.Jitter = 0
	m := newTestManager(store, affinity, &fakeMedia{}, cfg)

	m.Fill(context.Background())

	ids := m.BufferedIDs()
	want := []string{"strong", "middle", "weak"}
	if len(ids) != len(want) {
		t.Fatalf("BufferedIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("BufferedIDs() = %v, want %v", ids, want)
		}
	}
}

func TestFillExcludesLikedTracks(t *testing.T) {
	tracks := makeTracks(5)
	store := &fakeStore{
		candidates: tracks,
		liked:      map[string]bool{"track-01": true, "track-03": true},
	}
	cfg := testConfig()
	// Even with seen re-admission wide open, liked stays excluded.
	cfg.SeenProbability = 1.0
	m := newTestManager(store, &fakeAffinity{}, &fakeMedia{}, cfg)

	for i := 0; i < 5; i++ {
		m.Fill(context.Background())
		for _, id := range m.BufferedIDs() {
			if store.liked[id] {
				t.Fatalf("liked track %s admitted to the buffer", id)
			}
		}
	}
}

func TestFillSkipsServedTracks(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 2
	store := &fakeStore{candidates: makeTracks(2)}
	m := newTestManager(store, &fakeAffinity{}, &fakeMedia{}, cfg)

	m.Fill(context.Background())
	if got := m.Len(); got != 2 {
		t.Fatalf("Len() after first fill = %d, want 2", got)
	}

	first := m.Advance()
	second := m.Advance()
	if first == nil || second == nil {
		t.Fatalf("Advance() returned nil before buffer drained")
	}
	if first.ID == second.ID {
		t.Fatalf("Advance() served the same track twice: %s", first.ID)
	}

	// With zero seen probability, nothing in the exhausted pool can come back.
	m.Fill(context.Background())
	if got := m.Len(); got != 0 {
		t.Fatalf("Len() after pool exhausted = %d, want 0", got)
	}
	if next := m.Advance(); next != nil {
		t.Fatalf("Advance() on empty buffer = %v, want nil", next)
	}
}

func TestFillEmptyPool(t *testing.T) {
	m := newTestManager(&fakeStore{}, &fakeAffinity{}, &fakeMedia{}, testConfig())

	m.Fill(context.Background())

	if got := m.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	if st := m.State(); st != StateReady {
		t.Fatalf("State() = %s, want %s", st, StateReady)
	}
}

func TestFillStoreErrorLeavesBufferUntouched(t *testing.T) {
	store := &fakeStore{candErr: errors.New("connection refused")}
	m := newTestManager(store, &fakeAffinity{}, &fakeMedia{}, testConfig())

	m.Fill(context.Background())

	if got := m.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	if st := m.State(); st != StateReady {
		t.Fatalf("State() = %s, want %s", st, StateReady)
	}
}

func TestFillSkipsCandidatesWithMissingAudio(t *testing.T) {
	tracks := makeTracks(4)
	store := &fakeStore{candidates: tracks}
	media := &fakeMedia{missing: map[string]bool{tracks[1].AudioURL: true}}
	m := newTestManager(store, &fakeAffinity{}, media, testConfig())

	m.Fill(context.Background())

	if got := m.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	for _, id := range m.BufferedIDs() {
		if id == tracks[1].ID {
			t.Fatalf("track with missing audio admitted: %s", id)
		}
	}
}

func TestResetDiscardsInflightRefill(t *testing.T) {
	store := &fakeStore{candidates: makeTracks(3)}
	gate := &gateMedia{entered: make(chan struct{}), release: make(chan struct{})}
	m := newTestManager(store, &fakeAffinity{}, gate, testConfig())

	done := make(chan struct{})
	go func() {
		m.Fill(context.Background())
		close(done)
	}()

	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("refill pass never reached media validation")
	}

	m.Reset()
	close(gate.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("refill pass never finished")
	}

	if got := m.Len(); got != 0 {
		t.Fatalf("Len() = %d after Reset, stale refill results were kept", got)
	}
	if st := m.State(); st != StateLoading {
		t.Fatalf("State() = %s after Reset, want %s", st, StateLoading)
	}
}

func TestSeedInitial(t *testing.T) {
	track := &model.Track{ID: "seed", AudioURL: "audio/seed.mp3", Tags: []string{"lofi"}}
	m := newTestManager(&fakeStore{}, &fakeAffinity{}, &fakeMedia{}, testConfig())

	m.SeedInitial(context.Background(), track)

	if cur := m.Current(); cur == nil || cur.ID != "seed" {
		t.Fatalf("Current() = %v, want seed track", cur)
	}
	if st := m.State(); st != StateReady {
		t.Fatalf("State() = %s, want %s", st, StateReady)
	}
}

func TestSeedInitialRejectsMissingAudio(t *testing.T) {
	track := &model.Track{ID: "seed", AudioURL: "audio/gone.mp3"}
	media := &fakeMedia{missing: map[string]bool{"audio/gone.mp3": true}}
	m := newTestManager(&fakeStore{}, &fakeAffinity{}, media, testConfig())

	m.SeedInitial(context.Background(), track)

	if got := m.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	if st := m.State(); st != StateReady {
		t.Fatalf("State() = %s, want %s", st, StateReady)
	}
}

func TestPreferredTagsTrackRefill(t *testing.T) {
	affinity := &fakeAffinity{tags: []model.TagCount{
		{Tag: "lofi", Count: 5},
		{Tag: "trap", Count: 2},
	}}
	m := newTestManager(&fakeStore{candidates: makeTracks(3)}, affinity, &fakeMedia{}, testConfig())

	m.Fill(context.Background())

	got := m.PreferredTags()
	if len(got) != 2 || got[0].Tag != "lofi" || got[1].Tag != "trap" {
		t.Fatalf("PreferredTags() = %v, want lofi then trap", got)
	}
}

func TestAdvanceConsumesHeadFirst(t *testing.T) {
	cfg := testConfig()
	cfg.Jitter = 0
	store := &fakeStore{candidates: []*model.Track{
		{ID: "a", AudioURL: "x/a", Tags: []string{"lofi"}, Likes: 50},
		{ID: "b", AudioURL: "x/b", Tags: []string{"pop"}, Likes: 0},
	}}
	affinity := &fakeAffinity{tags: []model.TagCount{{Tag: "lofi", Count: 3}}}
	m := newTestManager(store, affinity, &fakeMedia{}, cfg)

	m.Fill(context.Background())

	if cur := m.Current(); cur == nil || cur.ID != "a" {
		t.Fatalf("Current() = %v, want track a", cur)
	}
	if next := m.Advance(); next == nil || next.ID != "a" {
		t.Fatalf("Advance() = %v, want track a", next)
	}
	if cur := m.Current(); cur == nil || cur.ID != "b" {
		t.Fatalf("Current() after Advance = %v, want track b", cur)
	}
}
