package store

import (
	"sort"
	"sync"

	"github.com/nholding/tradeflow/internal/domain"
)

// MemStore is the in-memory Store backend specified by §4.4: a top-level map
// guarded by a read/write lock (so new-trade insertion never blocks reads of
// unrelated trades) fronting one mutex-guarded event slice per trade (so
// appends to one trade never block reads or writes on another).
type MemStore struct {
	mu     sync.RWMutex
	trades map[domain.TradeID]*tradeHistory
}

type tradeHistory struct {
	mu     sync.Mutex
	events []domain.TradeEvent
}

// NewMemStore returns an empty, ready-to-use MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		trades: make(map[domain.TradeID]*tradeHistory),
	}
}

func (s *MemStore) Create(id domain.TradeID, initial domain.TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[id]; exists {
		return &domain.AlreadyExistsError{ID: id}
	}
	s.trades[id] = &tradeHistory{events: []domain.TradeEvent{initial}}
	return nil
}

func (s *MemStore) lookup(id domain.TradeID) (*tradeHistory, error) {
	s.mu.RLock()
	th, ok := s.trades[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.NotFoundError{ID: id}
	}
	return th, nil
}

func (s *MemStore) Append(id domain.TradeID, event domain.TradeEvent) error {
	th, err := s.lookup(id)
	if err != nil {
		return err
	}

	th.mu.Lock()
	defer th.mu.Unlock()

	expected := uint64(len(th.events))
	if event.Version != expected {
		return &domain.VersionConflictError{ID: id, Got: event.Version, Expected: expected}
	}
	th.events = append(th.events, event)
	return nil
}

// Mutate holds th.mu for the whole read-fn-append sequence, so two
// concurrent Mutate calls on the same id are fully serialized: the second
// caller's fn only starts once the first has either committed its event or
// failed, and always sees the resulting latest event.
func (s *MemStore) Mutate(id domain.TradeID, fn func(domain.TradeEvent) (domain.TradeEvent, error)) error {
	th, err := s.lookup(id)
	if err != nil {
		return err
	}

	th.mu.Lock()
	defer th.mu.Unlock()

	latest := th.events[len(th.events)-1]
	next, err := fn(latest)
	if err != nil {
		return err
	}

	expected := uint64(len(th.events))
	if next.Version != expected {
		return &domain.VersionConflictError{ID: id, Got: next.Version, Expected: expected}
	}
	th.events = append(th.events, next)
	return nil
}

func (s *MemStore) History(id domain.TradeID) ([]domain.TradeEvent, error) {
	th, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	th.mu.Lock()
	defer th.mu.Unlock()

	out := make([]domain.TradeEvent, len(th.events))
	for i, ev := range th.events {
		ev.Details = ev.Details.Clone()
		out[i] = ev
	}
	return out, nil
}

// Latest returns the most recent event for id, with Details cloned so the
// caller can never mutate the immutable stored event through the returned
// value.
func (s *MemStore) Latest(id domain.TradeID) (domain.TradeEvent, error) {
	th, err := s.lookup(id)
	if err != nil {
		return domain.TradeEvent{}, err
	}

	th.mu.Lock()
	defer th.mu.Unlock()

	latest := th.events[len(th.events)-1]
	latest.Details = latest.Details.Clone()
	return latest, nil
}

// ListIDs returns every known identifier. The unsorted order is Go's
// randomized map iteration order — deliberately not creation order, so that
// no caller comes to depend on an ordering the spec leaves unspecified
// (§9).
func (s *MemStore) ListIDs(sorted bool) ([]domain.TradeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.TradeID, 0, len(s.trades))
	for id := range s.trades {
		ids = append(ids, id)
	}

	if sorted {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return ids, nil
}

func (s *MemStore) Delete(id domain.TradeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[id]; !ok {
		return &domain.NotFoundError{ID: id}
	}
	delete(s.trades, id)
	return nil
}

var _ Store = (*MemStore)(nil)
