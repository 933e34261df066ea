// Package domain holds the closed set of types that make up a trade: its
// identifier, its details, the states it can occupy, the actions that move
// it between states, and the immutable events that record each move.
//
// Nothing in this package touches the store, the validator, or the state
// machine — it is data only, plus the equality/ordering/rendering behavior
// §4.1 asks for.
package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TradeID is an opaque, process-unique identifier. It renders as a decimal
// string at every boundary (HTTP, logs); callers must not assume anything
// about its internal structure.
type TradeID uint64

func (id TradeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseTradeID parses the decimal string form produced by String.
func ParseTradeID(s string) (TradeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return TradeID(v), nil
}

// Direction is the side of a trade.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return "Unknown"
	}
}

// ParseDirection parses the canonical string form. ok is false for anything
// other than "Buy"/"Sell".
func ParseDirection(s string) (d Direction, ok bool) {
	switch s {
	case "Buy":
		return Buy, true
	case "Sell":
		return Sell, true
	default:
		return 0, false
	}
}

// TradeState is one of the seven lifecycle states of §3. The zero value is
// Draft, which is also the state every trade is created in.
type TradeState int

const (
	Draft TradeState = iota
	PendingApproval
	NeedsReapproval
	Approved
	SentToCounterparty
	Executed
	Cancelled
)

var tradeStateNames = [...]string{
	Draft:              "Draft",
	PendingApproval:    "PendingApproval",
	NeedsReapproval:    "NeedsReapproval",
	Approved:           "Approved",
	SentToCounterparty: "SentToCounterparty",
	Executed:           "Executed",
	Cancelled:          "Cancelled",
}

func (s TradeState) String() string {
	if int(s) < 0 || int(s) >= len(tradeStateNames) {
		return "Unknown"
	}
	return tradeStateNames[s]
}

// Terminal reports whether no further actions are legal from this state.
func (s TradeState) Terminal() bool {
	return s == Executed || s == Cancelled
}

// ActionKind identifies which of the six actions of §3 a TradeAction
// carries. Only ActionUpdate carries a payload (the replacement details).
type ActionKind int

const (
	ActionSubmit ActionKind = iota
	ActionApprove
	ActionUpdate
	ActionCancel
	ActionSendToExecute
	ActionBook
)

func (a ActionKind) String() string {
	switch a {
	case ActionSubmit:
		return "Submit"
	case ActionApprove:
		return "Approve"
	case ActionUpdate:
		return "Update"
	case ActionCancel:
		return "Cancel"
	case ActionSendToExecute:
		return "SendToExecute"
	case ActionBook:
		return "Book"
	default:
		return "Unknown"
	}
}

// TradeAction is a closed sum type: the Kind selects which variant it is,
// and NewDetails is populated only when Kind is ActionUpdate.
type TradeAction struct {
	Kind       ActionKind
	NewDetails *TradeDetails
}

func Submit() TradeAction        { return TradeAction{Kind: ActionSubmit} }
func Approve() TradeAction       { return TradeAction{Kind: ActionApprove} }
func Cancel() TradeAction        { return TradeAction{Kind: ActionCancel} }
func SendToExecute() TradeAction { return TradeAction{Kind: ActionSendToExecute} }
func Book() TradeAction          { return TradeAction{Kind: ActionBook} }

// Update builds the Update(new_details) action.
func Update(details TradeDetails) TradeAction {
	d := details.Clone()
	return TradeAction{Kind: ActionUpdate, NewDetails: &d}
}

// TradeDetails is the record described in §3. NotionalAmount and Strike are
// fixed-point decimals (shopspring/decimal) so the HTTP boundary can
// preserve exact precision per §6; Strike is nil until the trade reaches
// Executed, per the PrematureStrike rule.
type TradeDetails struct {
	TradingEntity    string
	Counterparty     string
	Direction        Direction
	NotionalCurrency string
	NotionalAmount   decimal.Decimal
	Underlying       []string
	TradeDate        time.Time
	ValueDate        time.Time
	DeliveryDate     time.Time
	Strike           *decimal.Decimal
}

// Clone returns a deep copy: the Underlying slice and the Strike pointer (if
// any) are independently owned, so mutating the clone never affects the
// original. TradeEvent.Details always holds a Clone, never an alias into a
// caller-supplied TradeDetails.
func (d TradeDetails) Clone() TradeDetails {
	out := d
	if d.Underlying != nil {
		out.Underlying = append([]string(nil), d.Underlying...)
	}
	if d.Strike != nil {
		s := *d.Strike
		out.Strike = &s
	}
	return out
}

// TradeEvent is one immutable snapshot in a trade's history (§3). Version 0
// is the creation event, with FromState == ToState == Draft.
type TradeEvent struct {
	UserID    string
	Timestamp time.Time
	FromState TradeState
	ToState   TradeState
	Details   TradeDetails
	Version   uint64
}
