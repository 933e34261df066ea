// Package statemachine is the pure, total transition function of §4.3: given
// a current TradeState and a TradeAction, it decides the next TradeState or
// rejects the move. It never touches the store or a clock.
package statemachine

import (
	"github.com/nholding/tradeflow/internal/domain"
)

type key struct {
	from   domain.TradeState
	action domain.ActionKind
}

// table is the complete transition map of §4.3. Any (from, action) pair not
// present here is illegal.
var table = map[key]domain.TradeState{
	{domain.Draft, domain.ActionSubmit}: domain.PendingApproval,
	{domain.Draft, domain.ActionUpdate}: domain.NeedsReapproval,
	{domain.Draft, domain.ActionCancel}: domain.Cancelled,

	{domain.PendingApproval, domain.ActionApprove}: domain.Approved,
	{domain.PendingApproval, domain.ActionUpdate}:  domain.NeedsReapproval,
	{domain.PendingApproval, domain.ActionCancel}:  domain.Cancelled,

	{domain.NeedsReapproval, domain.ActionApprove}: domain.Approved,
	{domain.NeedsReapproval, domain.ActionUpdate}:  domain.NeedsReapproval,
	{domain.NeedsReapproval, domain.ActionCancel}:  domain.Cancelled,

	{domain.Approved, domain.ActionUpdate}:        domain.NeedsReapproval,
	{domain.Approved, domain.ActionCancel}:        domain.Cancelled,
	{domain.Approved, domain.ActionSendToExecute}: domain.SentToCounterparty,

	{domain.SentToCounterparty, domain.ActionCancel}: domain.Cancelled,
	{domain.SentToCounterparty, domain.ActionBook}:   domain.Executed,

	// Executed and Cancelled are terminal: no entries, every action fails.
}

// Transition returns the next state for (current, action), or an
// *domain.InvalidTransitionError if the cell is not in the table — including
// every action attempted from a terminal state.
func Transition(current domain.TradeState, action domain.TradeAction) (domain.TradeState, error) {
	next, ok := table[key{current, action.Kind}]
	if !ok {
		return current, &domain.InvalidTransitionError{From: current, Action: action.Kind}
	}
	return next, nil
}
