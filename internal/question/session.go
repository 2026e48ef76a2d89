package question

import (
	"errors"
	"math/rand"
	"sync"
)

// ErrEmptyPool is returned when selection is attempted on a pool with no
// entries. Callers must resolve a non-empty tier before picking.
var ErrEmptyPool = errors.New("question pool is empty")

type usageKey struct {
	category   string
	difficulty string
	index      int
}

// Session tracks which pool indices have already been served to one client
// session so offline draws do not repeat within a dedup epoch. State is scoped
// to a single session identifier and passed through provisioning calls; it is
// never shared across sessions or persisted.
type Session struct {
	ID string

	mu   sync.Mutex
	used map[usageKey]struct{}
	rng  *rand.Rand
}

// NewSession creates usage-tracking state for one client session.
func NewSession(id string) *Session {
	return &Session{
		ID:   id,
		used: make(map[usageKey]struct{}),
		rng:  rand.New(rand.NewSource(rand.Int63())),
	}
}

// newSeededSession pins the random source for deterministic tests.
func newSeededSession(id string, seed int64) *Session {
	s := NewSession(id)
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

// Pick selects an unused index from a (category, difficulty) pool of the
// given size. Draws are uniform; an index already served this epoch is
// rejected and redrawn, up to 2×size attempts. When the retries are exhausted
// the pool is considered saturated: the usage set is cleared (a fresh dedup
// epoch begins) and the next draw is accepted unconditionally. The accepted
// key is recorded before returning.
func (s *Session) Pick(category, difficulty string, size int) (int, error) {
	if size <= 0 {
		return 0, ErrEmptyPool
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 2*size; attempt++ {
		idx := s.rng.Intn(size)
		key := usageKey{category: category, difficulty: difficulty, index: idx}
		if _, taken := s.used[key]; taken {
			continue
		}
		s.used[key] = struct{}{}
		return idx, nil
	}

	// Saturated: start a fresh epoch. Earlier picks may repeat from here on.
	s.used = make(map[usageKey]struct{})
	idx := s.rng.Intn(size)
	s.used[usageKey{category: category, difficulty: difficulty, index: idx}] = struct{}{}
	return idx, nil
}

// UsedCount reports how many keys the current epoch holds.
func (s *Session) UsedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}
