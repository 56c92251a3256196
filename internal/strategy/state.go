package strategy

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

// Persister saves the full state map durably. Satisfied by the storage
// package; tests pass nil for in-memory-only behavior.
type Persister interface {
	Save(states map[int64]models.StrategyState) error
}

// StateStore is the keyed StrategyState owner: one entry per user, written
// only by the engine after a successful cycle. Not ambient globals on
// purpose; everything flows through Get/Set.
type StateStore struct {
	mu        sync.RWMutex
	states    map[int64]models.StrategyState
	persister Persister
	log       zerolog.Logger
}

// NewStateStore creates a store seeded with previously persisted states.
func NewStateStore(seed map[int64]models.StrategyState, persister Persister, log zerolog.Logger) *StateStore {
	states := make(map[int64]models.StrategyState, len(seed))
	for k, v := range seed {
		states[k] = v
	}
	return &StateStore{
		states:    states,
		persister: persister,
		log:       log.With().Str("component", "state").Logger(),
	}
}

// Get returns the state for a user.
func (s *StateStore) Get(userID int64) (models.StrategyState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	return st, ok
}

// Set records the state for a user and persists the map. Persistence failure
// is logged, not propagated: the in-memory state is already consistent and
// the next successful cycle retries the write.
func (s *StateStore) Set(userID int64, state models.StrategyState) {
	s.mu.Lock()
	s.states[userID] = state
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.Save(snapshot); err != nil {
		s.log.Error().Err(err).Int64("user", userID).Msg("failed to persist strategy state")
	}
}

// LastCycle returns the most recent cycle time across all users.
func (s *StateStore) LastCycle() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, st := range s.states {
		if st.LastCycleAt.After(last) {
			last = st.LastCycleAt
		}
	}
	return last, !last.IsZero()
}

// All returns a copy of every recorded state.
func (s *StateStore) All() map[int64]models.StrategyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *StateStore) snapshotLocked() map[int64]models.StrategyState {
	out := make(map[int64]models.StrategyState, len(s.states))
	for k, v := range s.states {
		out[k] = v
	}
	return out
}
