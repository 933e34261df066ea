// Package validate implements the pure structural and ordering checks a
// TradeDetails must pass before the engine will store it (§4.2). Validate
// has no I/O and no time source; it is deterministic and safe to call from
// any goroutine without synchronization.
package validate

import (
	"github.com/nholding/tradeflow/internal/domain"
)

// Validate runs the structural and ordering checks on a TradeDetails.
// executed reports whether the event being validated puts the trade in
// Executed — it gates the PrematureStrike rule, since Strike must be absent
// unless the trade has reached Executed.
//
// When multiple checks fail, any one of the resulting errors may be
// returned; callers must not depend on which.
func Validate(d domain.TradeDetails, executed bool) *domain.ValidationError {
	if d.TradingEntity == "" {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "trading_entity"}
	}
	if d.Counterparty == "" {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "counterparty"}
	}
	if d.NotionalCurrency == "" {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "notional_currency"}
	}
	if d.TradeDate.IsZero() {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "trade_date"}
	}
	if d.ValueDate.IsZero() {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "value_date"}
	}
	if d.DeliveryDate.IsZero() {
		return &domain.ValidationError{Kind: domain.MissingField, Field: "delivery_date"}
	}

	if d.NotionalAmount.Sign() <= 0 {
		return &domain.ValidationError{Kind: domain.NonPositiveAmount}
	}

	if d.TradeDate.After(d.ValueDate) || d.ValueDate.After(d.DeliveryDate) {
		return &domain.ValidationError{Kind: domain.BadOrdering}
	}

	if !containsCurrency(d.Underlying, d.NotionalCurrency) {
		return &domain.ValidationError{Kind: domain.UnderlyingMissingNotional}
	}

	if d.Strike != nil && !executed {
		return &domain.ValidationError{Kind: domain.PrematureStrike}
	}

	return nil
}

func containsCurrency(underlying []string, currency string) bool {
	for _, u := range underlying {
		if u == currency {
			return true
		}
	}
	return false
}
