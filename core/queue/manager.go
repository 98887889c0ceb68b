package queue

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/model"
)

// Store is the slice of the catalog the queue needs: the candidate pool and
// the caller's liked set.
type Store interface {
	Candidates(ctx context.Context, excludeUserID int64) ([]*model.Track, error)
	LikedTrackIDs(ctx context.Context, userID int64) (map[string]bool, error)
}

// AffinitySource yields a user's strongest tags.
type AffinitySource interface {
	TopTags(ctx context.Context, userID int64, n int) ([]model.TagCount, error)
}

// MediaChecker validates that a stored object is actually fetchable.
type MediaChecker interface {
	FileExists(ctx context.Context, key string) (bool, error)
}

// State describes the queue lifecycle: Loading until the first refill or
// seed completes, then Ready, with Refilling overlapping Ready while a
// background pass runs.
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateRefilling State = "refilling"
)

// Config tunes one user's discovery queue.
type Config struct {
	Size            int     // target buffer length
	TopTags         int     // how many affinity tags feed the scorer
	SeenProbability float64 // chance an already-served track passes the filter again
	LikeProbability float64 // chance an already-liked track is re-offered (0 = never)
	Jitter          float64 // half-width of the uniform rank perturbation
}

// DefaultConfig matches the production feed tuning.
func DefaultConfig() Config {
	return Config{
		Size:            10,
		TopTags:         4,
		SeenProbability: 0.0005,
		LikeProbability: 0,
		Jitter:          0.1,
	}
}

// refillTimeout bounds one background refill pass.
const refillTimeout = 30 * time.Second

// Manager keeps a bounded look-ahead buffer of validated tracks for one user
// session. The buffer is consumed from the head and refilled asynchronously;
// refills are append-only and generation-checked so a Reset discards any
// in-flight results.
type Manager struct {
	userID   int64
	store    Store
	affinity AffinitySource
	media    MediaChecker
	cfg      Config

	mu         sync.Mutex
	rng        *rand.Rand
	buffer     []*model.Track
	seen       map[string]bool
	topTags    []model.TagCount
	generation uint64
	loading    bool
	refilling  bool
}

// NewManager creates a queue manager for one user. Passing a nil rng gets a
// time-seeded one; tests inject a fixed seed.
func NewManager(userID int64, store Store, affinity AffinitySource, media MediaChecker, cfg Config, rng *rand.Rand) *Manager {
	if cfg.Size <= 0 {
		cfg = DefaultConfig()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		userID:   userID,
		store:    store,
		affinity: affinity,
		media:    media,
		cfg:      cfg,
		rng:      rng,
		seen:     make(map[string]bool),
		loading:  true,
	}
}

// Current returns the head of the buffer without consuming it.
func (m *Manager) Current() *model.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buffer) == 0 {
		return nil
	}
	return m.buffer[0]
}

// State reports the queue lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.loading:
		return StateLoading
	case m.refilling:
		return StateRefilling
	default:
		return StateReady
	}
}

// PreferredTags returns the affinity tags used by the most recent refill.
func (m *Manager) PreferredTags() []model.TagCount {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TagCount, len(m.topTags))
	copy(out, m.topTags)
	return out
}

// Advance pops and returns the head of the buffer, or nil when empty. When
// the remaining buffer drops below half the target size a background refill
// is kicked off; the caller is never blocked on it.
func (m *Manager) Advance() *model.Track {
	m.mu.Lock()
	var next *model.Track
	if len(m.buffer) > 0 {
		next = m.buffer[0]
		m.buffer = m.buffer[1:]
	}
	needsRefill := len(m.buffer) < m.cfg.Size/2
	m.mu.Unlock()

	if needsRefill {
		go m.refill()
	}
	return next
}

// SeedInitial installs a track chosen out-of-band (e.g. from the liked list)
// as the sole buffer entry, after validating its audio is fetchable. On
// validation failure the buffer is simply left empty.
func (m *Manager) SeedInitial(ctx context.Context, track *model.Track) {
	ok, err := m.media.FileExists(ctx, track.AudioURL)
	if err != nil || !ok {
		logger.Warn("seed track rejected, audio missing",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		m.mu.Lock()
		m.buffer = nil
		m.loading = false
		m.generation++
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.buffer = []*model.Track{track}
	m.loading = false
	m.generation++
	m.mu.Unlock()
}

// Reset clears the buffer and the seen set and invalidates any in-flight
// refill. Used when the user re-enters discovery fresh.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.buffer = nil
	m.seen = make(map[string]bool)
	m.loading = true
	m.generation++
	m.mu.Unlock()
}

// Fill runs one synchronous refill pass if the buffer is short. Used on
// first load; later passes run in the background via Advance.
func (m *Manager) Fill(ctx context.Context) {
	m.refillPass(ctx)
}

func (m *Manager) refill() {
	ctx, cancel := context.WithTimeout(context.Background(), refillTimeout)
	defer cancel()
	m.refillPass(ctx)
}

// scored pairs a candidate with its perturbed rank key for one pass.
type scored struct {
	track *model.Track
	rank  float64
}

func (m *Manager) refillPass(ctx context.Context) {
	m.mu.Lock()
	if m.refilling || len(m.buffer) >= m.cfg.Size {
		m.loading = false
		m.mu.Unlock()
		return
	}
	m.refilling = true
	startGen := m.generation
	wanted := m.cfg.Size - len(m.buffer)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refilling = false
		m.mu.Unlock()
	}()

	topTags, err := m.affinity.TopTags(ctx, m.userID, m.cfg.TopTags)
	if err != nil {
		logger.Error("refill aborted, affinity lookup failed",
			logger.Int64("userId", m.userID), logger.ErrorField(err))
		m.finishPass(startGen, nil, nil)
		return
	}
	likedIDs, err := m.store.LikedTrackIDs(ctx, m.userID)
	if err != nil {
		logger.Error("refill aborted, liked set lookup failed",
			logger.Int64("userId", m.userID), logger.ErrorField(err))
		m.finishPass(startGen, nil, nil)
		return
	}
	candidates, err := m.store.Candidates(ctx, m.userID)
	if err != nil {
		logger.Error("refill aborted, candidate fetch failed",
			logger.Int64("userId", m.userID), logger.ErrorField(err))
		m.finishPass(startGen, nil, nil)
		return
	}

	tagNames := make([]string, len(topTags))
	for i, tc := range topTags {
		tagNames[i] = tc.Tag
	}

	// Filter, score and rank under the lock: the seen set and the rng are
	// shared state, and the pass must see a consistent snapshot.
	m.mu.Lock()
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if likedIDs[c.ID] {
			// Liked tracks are (almost always) gone from discovery.
			if m.cfg.LikeProbability <= 0 || m.rng.Float64() >= m.cfg.LikeProbability {
				continue
			}
		} else if m.seen[c.ID] && m.rng.Float64() >= m.cfg.SeenProbability {
			continue
		}
		jitter := m.rng.Float64()*2*m.cfg.Jitter - m.cfg.Jitter
		ranked = append(ranked, scored{track: c, rank: Score(c, tagNames) + jitter})
	}
	m.mu.Unlock()

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].rank > ranked[j].rank
	})

	// Walk the ranked list validating audio objects; broken files are
	// skipped, not retried. Secondary media never blocks admission.
	admitted := make([]*model.Track, 0, wanted)
	for _, s := range ranked {
		if len(admitted) >= wanted {
			break
		}
		ok, err := m.media.FileExists(ctx, s.track.AudioURL)
		if err != nil {
			logger.Warn("media check failed, skipping candidate",
				logger.String("trackId", s.track.ID), logger.ErrorField(err))
			continue
		}
		if !ok {
			logger.Debug("candidate skipped, audio object missing",
				logger.String("trackId", s.track.ID))
			continue
		}
		admitted = append(admitted, s.track)
	}

	m.finishPass(startGen, admitted, topTags)
}

// finishPass appends the admitted tracks if the session generation is
// unchanged; results of a pass that straddled a Reset are discarded.
func (m *Manager) finishPass(startGen uint64, admitted []*model.Track, topTags []model.TagCount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != startGen {
		logger.Debug("discarding stale refill results", logger.Int64("userId", m.userID))
		return
	}
	if topTags != nil {
		m.topTags = topTags
	}
	for _, t := range admitted {
		if len(m.buffer) >= m.cfg.Size {
			break
		}
		m.buffer = append(m.buffer, t)
		m.seen[t.ID] = true
	}
	m.loading = false
}

// Len returns the current buffer length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// BufferedIDs returns the ids currently queued, head first.
func (m *Manager) BufferedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.buffer))
	for i, t := range m.buffer {
		ids[i] = t.ID
	}
	return ids
}
