// Package engine is the façade clients hold (C5, §4.5): it orchestrates the
// validator, the state machine, and the store, and exposes the public
// operations plus the diff engine. Every state-changing operation here is
// atomic with respect to a single TradeID — it either appends exactly one
// new event, visible to subsequent reads, or leaves the store untouched.
package engine

import (
	"time"

	"github.com/nholding/tradeflow/internal/diff"
	"github.com/nholding/tradeflow/internal/domain"
	"github.com/nholding/tradeflow/internal/idgen"
	"github.com/nholding/tradeflow/internal/statemachine"
	"github.com/nholding/tradeflow/internal/store"
	"github.com/nholding/tradeflow/internal/validate"
)

// Clock abstracts time.Now so tests can pin timestamps; an Engine built with
// New uses the real clock.
type Clock func() time.Time

// Engine is safe for concurrent use by multiple goroutines; all
// serialization happens inside the Store.
type Engine struct {
	store store.Store
	ids   *idgen.Generator
	now   Clock
}

// New builds an Engine over the given Store using the real wall clock.
func New(s store.Store) *Engine {
	return &Engine{store: s, ids: idgen.New(), now: time.Now}
}

// WithClock overrides the clock used to stamp new events — for tests only.
func (e *Engine) WithClock(now Clock) *Engine {
	e.now = now
	return e
}

// CreateTrade validates details and, if valid, mints a new TradeID and
// records version 0 with FromState == ToState == Draft.
func (e *Engine) CreateTrade(userID string, details domain.TradeDetails) (domain.TradeID, error) {
	if verr := validate.Validate(details, false); verr != nil {
		return 0, verr
	}

	id := e.ids.Next()
	event := domain.TradeEvent{
		UserID:    userID,
		Timestamp: e.now(),
		FromState: domain.Draft,
		ToState:   domain.Draft,
		Details:   details.Clone(),
		Version:   0,
	}

	if err := e.store.Create(id, event); err != nil {
		return 0, err
	}
	return id, nil
}

// mutate implements the algorithm of §4.5 step 1-6 for every state-changing
// operation except CreateTrade. action.NewDetails is nil except for Update. The
// whole read-transition-validate-append sequence runs inside the store's
// per-trade lock via Mutate, so two concurrent calls on the same id can
// never both read the same latest event.
func (e *Engine) mutate(id domain.TradeID, userID string, action domain.TradeAction) error {
	return e.store.Mutate(id, func(latest domain.TradeEvent) (domain.TradeEvent, error) {
		next, err := statemachine.Transition(latest.ToState, action)
		if err != nil {
			return domain.TradeEvent{}, err
		}

		details := latest.Details
		if action.Kind == domain.ActionUpdate {
			details = *action.NewDetails
		}

		if verr := validate.Validate(details, next == domain.Executed); verr != nil {
			return domain.TradeEvent{}, verr
		}

		return domain.TradeEvent{
			UserID:    userID,
			Timestamp: e.now(),
			FromState: latest.ToState,
			ToState:   next,
			Details:   details.Clone(),
			Version:   latest.Version + 1,
		}, nil
	})
}

func (e *Engine) Submit(userID string, id domain.TradeID) error {
	return e.mutate(id, userID, domain.Submit())
}

func (e *Engine) ApproveTrade(userID string, id domain.TradeID) error {
	return e.mutate(id, userID, domain.Approve())
}

func (e *Engine) Update(userID string, id domain.TradeID, newDetails domain.TradeDetails) error {
	return e.mutate(id, userID, domain.Update(newDetails))
}

func (e *Engine) CancelTrade(userID string, id domain.TradeID) error {
	return e.mutate(id, userID, domain.Cancel())
}

func (e *Engine) SendToCounterparty(userID string, id domain.TradeID) error {
	return e.mutate(id, userID, domain.SendToExecute())
}

func (e *Engine) BookTrade(userID string, id domain.TradeID) error {
	return e.mutate(id, userID, domain.Book())
}

// GetStatus returns the current state of a trade.
func (e *Engine) GetStatus(id domain.TradeID) (domain.TradeState, error) {
	latest, err := e.store.Latest(id)
	if err != nil {
		return 0, err
	}
	return latest.ToState, nil
}

// GetDetails returns the current details of a trade. The result is a clone
// of the stored event's details — events are immutable, so callers must
// never receive an alias into the store's internal state.
func (e *Engine) GetDetails(id domain.TradeID) (domain.TradeDetails, error) {
	latest, err := e.store.Latest(id)
	if err != nil {
		return domain.TradeDetails{}, err
	}
	return latest.Details.Clone(), nil
}

// GetHistory returns the full, version-ordered event list for a trade.
func (e *Engine) GetHistory(id domain.TradeID) ([]domain.TradeEvent, error) {
	return e.store.History(id)
}

// Diff compares the details at v1 and v2 of a trade's history.
func (e *Engine) Diff(id domain.TradeID, v1, v2 uint64) (diff.TradeDiff, error) {
	history, err := e.store.History(id)
	if err != nil {
		return diff.TradeDiff{}, err
	}

	max := uint64(len(history) - 1)
	if v1 > max {
		return diff.TradeDiff{}, &domain.BadVersionError{Version: v1, Max: max}
	}
	if v2 > max {
		return diff.TradeDiff{}, &domain.BadVersionError{Version: v2, Max: max}
	}

	differences := diff.Details(history[v1].Details, history[v2].Details)

	return diff.TradeDiff{
		TradeID:     id,
		FromVersion: v1,
		ToVersion:   v2,
		Differences: differences,
	}, nil
}

// ListTrades returns every known trade identifier.
func (e *Engine) ListTrades(sorted bool) ([]domain.TradeID, error) {
	return e.store.ListIDs(sorted)
}
