package engine

import (
	"reflect"
	"sync"
	"testing"

	"pgregory.net/rapid"

	"github.com/nholding/tradeflow/internal/domain"
	"github.com/nholding/tradeflow/internal/store"
	"github.com/nholding/tradeflow/internal/validate"
)

// actionKinds lists the six action kinds; drawAction picks one uniformly.
var actionKinds = []domain.ActionKind{
	domain.ActionSubmit, domain.ActionApprove, domain.ActionUpdate,
	domain.ActionCancel, domain.ActionSendToExecute, domain.ActionBook,
}

func drawAction(t *rapid.T) domain.TradeAction {
	kind := actionKinds[rapid.IntRange(0, len(actionKinds)-1).Draw(t, "actionKind")]
	switch kind {
	case domain.ActionSubmit:
		return domain.Submit()
	case domain.ActionApprove:
		return domain.Approve()
	case domain.ActionUpdate:
		return domain.Update(validDetails("100.00"))
	case domain.ActionCancel:
		return domain.Cancel()
	case domain.ActionSendToExecute:
		return domain.SendToExecute()
	default:
		return domain.Book()
	}
}

func applyAction(e *Engine, id domain.TradeID, a domain.TradeAction) error {
	switch a.Kind {
	case domain.ActionSubmit:
		return e.Submit("prop-user", id)
	case domain.ActionApprove:
		return e.ApproveTrade("prop-user", id)
	case domain.ActionUpdate:
		return e.Update("prop-user", id, *a.NewDetails)
	case domain.ActionCancel:
		return e.CancelTrade("prop-user", id)
	case domain.ActionSendToExecute:
		return e.SendToCounterparty("prop-user", id)
	default:
		return e.BookTrade("prop-user", id)
	}
}

// Invariant 1: every stored trade's event versions form {0,1,...,n-1} in
// order, and from_state[i] == to_state[i-1].
func TestPropertyVersionsAreDenseAndChained(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := newTestEngine()
		id, err := e.CreateTrade("prop-user", validDetails("100.00"))
		if err != nil {
			t.Fatalf("CreateTrade: %v", err)
		}

		steps := rapid.IntRange(0, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			_ = applyAction(e, id, drawAction(t)) // errors are expected and fine; invariant is about what IS stored
		}

		history, err := e.GetHistory(id)
		if err != nil {
			t.Fatalf("GetHistory: %v", err)
		}
		for i, ev := range history {
			if ev.Version != uint64(i) {
				t.Fatalf("event %d has version %d, want %d", i, ev.Version, i)
			}
			if i > 0 && ev.FromState != history[i-1].ToState {
				t.Fatalf("event %d FromState %s != event %d ToState %s", i, ev.FromState, i-1, history[i-1].ToState)
			}
		}
	})
}

// Invariant 2: once a trade's latest state is terminal, every subsequent
// mutating operation returns InvalidTransition and leaves history unchanged.
func TestPropertyTerminalStatesRejectFurtherMutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := newTestEngine()
		id, _ := e.CreateTrade("prop-user", validDetails("100.00"))

		// Drive to a terminal state via Cancel, which is reachable from
		// every non-terminal state.
		if err := e.Submit("prop-user", id); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := e.CancelTrade("prop-user", id); err != nil {
			t.Fatalf("CancelTrade: %v", err)
		}

		before, _ := e.GetHistory(id)

		action := drawAction(t)
		err := applyAction(e, id, action)
		if _, ok := err.(*domain.InvalidTransitionError); !ok {
			t.Fatalf("action %s after terminal state: got %T (%v), want InvalidTransitionError", action.Kind, err, err)
		}

		after, _ := e.GetHistory(id)
		if len(before) != len(after) {
			t.Fatalf("history changed after rejected mutation: %d -> %d", len(before), len(after))
		}
	})
}

// Invariant 3: diff(id, v1, v2).differences is empty iff the details are
// equal, and diff(id, a, b) has the same key set as diff(id, b, a) with
// before/after swapped.
func TestPropertyDiffEmptyIffEqualAndSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := newTestEngine()
		id, _ := e.CreateTrade("prop-user", validDetails("100.00"))

		steps := rapid.IntRange(0, 6).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			_ = applyAction(e, id, drawAction(t))
		}

		history, _ := e.GetHistory(id)
		if len(history) < 2 {
			return
		}
		v1 := uint64(rapid.IntRange(0, len(history)-1).Draw(t, "v1"))
		v2 := uint64(rapid.IntRange(0, len(history)-1).Draw(t, "v2"))

		fwd, err := e.Diff(id, v1, v2)
		if err != nil {
			t.Fatalf("Diff(%d,%d): %v", v1, v2, err)
		}
		bwd, err := e.Diff(id, v2, v1)
		if err != nil {
			t.Fatalf("Diff(%d,%d): %v", v2, v1, err)
		}

		detailsEqual := reflect.DeepEqual(history[v1].Details, history[v2].Details)
		if (len(fwd.Differences) == 0) != detailsEqual {
			t.Fatalf("Diff(%d,%d) has %d differences but details equal = %v", v1, v2, len(fwd.Differences), detailsEqual)
		}

		if len(fwd.Differences) != len(bwd.Differences) {
			t.Fatalf("diff key sets differ in size: %d vs %d", len(fwd.Differences), len(bwd.Differences))
		}
		for field, fd := range fwd.Differences {
			rd, ok := bwd.Differences[field]
			if !ok {
				t.Fatalf("field %s present in forward diff but not backward", field)
			}
			if fd.Before != rd.After || fd.After != rd.Before {
				t.Fatalf("field %s not symmetric: fwd=%+v bwd=%+v", field, fd, rd)
			}
		}
	})
}

// Invariant 4: K concurrent create-and-drive sequences on distinct new ids
// each reach the same final state as running the identical sequence alone.
func TestPropertyConcurrentSequencesAreIsolated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.NewMemStore()
		e := New(s)

		k := rapid.IntRange(2, 8).Draw(t, "k")
		sequences := make([][]domain.TradeAction, k)
		for i := range sequences {
			n := rapid.IntRange(0, 5).Draw(t, "seqLen")
			seq := make([]domain.TradeAction, n)
			for j := range seq {
				seq[j] = drawAction(t)
			}
			sequences[i] = seq
		}

		// Sequential baseline.
		wantStates := make([]domain.TradeState, k)
		for i, seq := range sequences {
			id, _ := e.CreateTrade("prop-user", validDetails("100.00"))
			for _, a := range seq {
				_ = applyAction(e, id, a)
			}
			st, _ := e.GetStatus(id)
			wantStates[i] = st
		}

		// Concurrent run against a fresh engine over the same store type.
		e2 := New(store.NewMemStore())
		ids := make([]domain.TradeID, k)
		for i := range ids {
			id, _ := e2.CreateTrade("prop-user", validDetails("100.00"))
			ids[i] = id
		}

		var wg sync.WaitGroup
		wg.Add(k)
		for i := 0; i < k; i++ {
			go func(i int) {
				defer wg.Done()
				for _, a := range sequences[i] {
					_ = applyAction(e2, ids[i], a)
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < k; i++ {
			got, err := e2.GetStatus(ids[i])
			if err != nil {
				t.Fatalf("GetStatus: %v", err)
			}
			if got != wantStates[i] {
				t.Fatalf("sequence %d: concurrent final state %s != sequential %s", i, got, wantStates[i])
			}
		}
	})
}

// Invariant 5: validate(d) is deterministic.
func TestPropertyValidateIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := validDetails("100.00")
		if rapid.Bool().Draw(t, "breakOrdering") {
			d.TradeDate, d.ValueDate = d.ValueDate, d.TradeDate
		}

		first := validate.Validate(d, false)
		for i := 0; i < 5; i++ {
			again := validate.Validate(d, false)
			if (first == nil) != (again == nil) {
				t.Fatal("validate was not deterministic across repeated calls")
			}
			if first != nil && again != nil && first.Kind != again.Kind {
				t.Fatalf("validate returned different kinds: %s vs %s", first.Kind, again.Kind)
			}
		}
	})
}
