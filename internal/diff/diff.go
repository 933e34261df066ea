// Package diff implements the field-level structural compare between two
// versions of a trade's details (§4.5). Fields are enumerated by hand,
// keyed by their canonical §6 boundary names, rather than compared via
// reflection — per the spec's own design note, this keeps the engine fast,
// deterministic, and free of runtime type metadata.
package diff

import (
	"github.com/shopspring/decimal"

	"github.com/nholding/tradeflow/internal/domain"
)

// FieldDiff is one entry in a TradeDiff: the value before and after, using
// `any` so callers can type-switch or simply render with fmt.
type FieldDiff struct {
	Before any
	After  any
}

// TradeDiff is the result of comparing two versions of a trade's details.
// Differences maps the canonical boundary field name to its before/after
// pair, covering exactly the fields whose values differ.
type TradeDiff struct {
	TradeID     domain.TradeID
	FromVersion uint64
	ToVersion   uint64
	Differences map[string]FieldDiff
}

// Details compares two TradeDetails and returns the field-level differences.
// It never reports transition metadata (user, timestamp, state) — those are
// attributes of the enclosing TradeEvent, not of TradeDetails, and are
// reported by callers separately.
func Details(before, after domain.TradeDetails) map[string]FieldDiff {
	out := make(map[string]FieldDiff)

	if before.TradingEntity != after.TradingEntity {
		out["trading_entity"] = FieldDiff{before.TradingEntity, after.TradingEntity}
	}
	if before.Counterparty != after.Counterparty {
		out["counterparty"] = FieldDiff{before.Counterparty, after.Counterparty}
	}
	if before.Direction != after.Direction {
		out["direction"] = FieldDiff{before.Direction, after.Direction}
	}
	if before.NotionalCurrency != after.NotionalCurrency {
		out["notional_currency"] = FieldDiff{before.NotionalCurrency, after.NotionalCurrency}
	}
	if !before.NotionalAmount.Equal(after.NotionalAmount) {
		out["notional_amount"] = FieldDiff{before.NotionalAmount, after.NotionalAmount}
	}
	if !stringSliceEqual(before.Underlying, after.Underlying) {
		out["underlying"] = FieldDiff{before.Underlying, after.Underlying}
	}
	if !before.TradeDate.Equal(after.TradeDate) {
		out["trade_date"] = FieldDiff{before.TradeDate, after.TradeDate}
	}
	if !before.ValueDate.Equal(after.ValueDate) {
		out["value_date"] = FieldDiff{before.ValueDate, after.ValueDate}
	}
	if !before.DeliveryDate.Equal(after.DeliveryDate) {
		out["delivery_date"] = FieldDiff{before.DeliveryDate, after.DeliveryDate}
	}
	if !strikeEqual(before.Strike, after.Strike) {
		// An absent strike is reported as an untyped nil, not a nil pointer.
		var fd FieldDiff
		if before.Strike != nil {
			fd.Before = before.Strike
		}
		if after.Strike != nil {
			fd.After = after.Strike
		}
		out["strike"] = fd
	}

	return out
}

func strikeEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
