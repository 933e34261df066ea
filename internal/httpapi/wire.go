package httpapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nholding/tradeflow/internal/diff"
	"github.com/nholding/tradeflow/internal/domain"
)

// detailsWire is the JSON representation of domain.TradeDetails accepted by
// POST/PUT bodies. Field names are the canonical boundary names of §6,
// verbatim. Dates are RFC3339; NotionalAmount and Strike are decimal
// strings, matching shopspring/decimal's JSON convention.
type detailsWire struct {
	TradingEntity    string   `json:"trading_entity"`
	Counterparty     string   `json:"counterparty"`
	Direction        string   `json:"direction"`
	NotionalCurrency string   `json:"notional_currency"`
	NotionalAmount   string   `json:"notional_amount"`
	Underlying       []string `json:"underlying"`
	TradeDate        string   `json:"trade_date"`
	ValueDate        string   `json:"value_date"`
	DeliveryDate     string   `json:"delivery_date"`
	Strike           *string  `json:"strike,omitempty"`
}

func (w detailsWire) toDomain() (domain.TradeDetails, error) {
	dir, ok := domain.ParseDirection(w.Direction)
	if !ok {
		return domain.TradeDetails{}, fmt.Errorf("invalid direction %q", w.Direction)
	}

	amount, err := decimal.NewFromString(w.NotionalAmount)
	if err != nil {
		return domain.TradeDetails{}, fmt.Errorf("invalid notionalAmount: %w", err)
	}

	tradeDate, err := parseDate(w.TradeDate)
	if err != nil {
		return domain.TradeDetails{}, fmt.Errorf("invalid tradeDate: %w", err)
	}
	valueDate, err := parseDate(w.ValueDate)
	if err != nil {
		return domain.TradeDetails{}, fmt.Errorf("invalid valueDate: %w", err)
	}
	deliveryDate, err := parseDate(w.DeliveryDate)
	if err != nil {
		return domain.TradeDetails{}, fmt.Errorf("invalid deliveryDate: %w", err)
	}

	var strike *decimal.Decimal
	if w.Strike != nil {
		s, err := decimal.NewFromString(*w.Strike)
		if err != nil {
			return domain.TradeDetails{}, fmt.Errorf("invalid strike: %w", err)
		}
		strike = &s
	}

	return domain.TradeDetails{
		TradingEntity:    w.TradingEntity,
		Counterparty:     w.Counterparty,
		Direction:        dir,
		NotionalCurrency: w.NotionalCurrency,
		NotionalAmount:   amount,
		Underlying:       w.Underlying,
		TradeDate:        tradeDate,
		ValueDate:        valueDate,
		DeliveryDate:     deliveryDate,
		Strike:           strike,
	}, nil
}

func fromDomain(d domain.TradeDetails) detailsWire {
	var strike *string
	if d.Strike != nil {
		s := d.Strike.String()
		strike = &s
	}
	return detailsWire{
		TradingEntity:    d.TradingEntity,
		Counterparty:     d.Counterparty,
		Direction:        d.Direction.String(),
		NotionalCurrency: d.NotionalCurrency,
		NotionalAmount:   d.NotionalAmount.String(),
		Underlying:       d.Underlying,
		TradeDate:        d.TradeDate.Format(time.RFC3339),
		ValueDate:        d.ValueDate.Format(time.RFC3339),
		DeliveryDate:     d.DeliveryDate.Format(time.RFC3339),
		Strike:           strike,
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// eventWire is the JSON representation of a domain.TradeEvent for GET
// .../history responses: `{ user_id, timestamp, from_state, to_state,
// details, version }` per §3, field names verbatim.
type eventWire struct {
	UserID    string      `json:"user_id"`
	Timestamp string      `json:"timestamp"`
	FromState string      `json:"from_state"`
	ToState   string      `json:"to_state"`
	Details   detailsWire `json:"details"`
	Version   uint64      `json:"version"`
}

func fromEvent(ev domain.TradeEvent) eventWire {
	return eventWire{
		UserID:    ev.UserID,
		Timestamp: ev.Timestamp.Format(time.RFC3339),
		FromState: ev.FromState.String(),
		ToState:   ev.ToState.String(),
		Details:   fromDomain(ev.Details),
		Version:   ev.Version,
	}
}

// diffWire is the JSON representation of a diff.TradeDiff for GET .../diff:
// `{ trade_id, from_version, to_version, differences }` per §4.5, field
// names verbatim.
type diffWire struct {
	TradeID     string                   `json:"trade_id"`
	FromVersion uint64                   `json:"from_version"`
	ToVersion   uint64                   `json:"to_version"`
	Differences map[string]fieldDiffWire `json:"differences"`
}

type fieldDiffWire struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

func fromDiff(d diff.TradeDiff) diffWire {
	differences := make(map[string]fieldDiffWire, len(d.Differences))
	for field, fd := range d.Differences {
		differences[field] = fieldDiffWire{Before: fd.Before, After: fd.After}
	}
	return diffWire{
		TradeID:     d.TradeID.String(),
		FromVersion: d.FromVersion,
		ToVersion:   d.ToVersion,
		Differences: differences,
	}
}
