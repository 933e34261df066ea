package validate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nholding/tradeflow/internal/domain"
)

func validDetails() domain.TradeDetails {
	return domain.TradeDetails{
		TradingEntity:    "NH-LDN-01",
		Counterparty:     "ACME-BANK",
		Direction:        domain.Buy,
		NotionalCurrency: "GBP",
		NotionalAmount:   decimal.NewFromFloat(55.60),
		Underlying:       []string{"GBP", "EUR"},
		TradeDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValueDate:        time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		DeliveryDate:     time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateAcceptsValidDetails(t *testing.T) {
	if err := Validate(validDetails(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		break_ func(d *domain.TradeDetails)
		field string
	}{
		{"trading entity", func(d *domain.TradeDetails) { d.TradingEntity = "" }, "trading_entity"},
		{"counterparty", func(d *domain.TradeDetails) { d.Counterparty = "" }, "counterparty"},
		{"notional currency", func(d *domain.TradeDetails) { d.NotionalCurrency = "" }, "notional_currency"},
		{"trade date", func(d *domain.TradeDetails) { d.TradeDate = time.Time{} }, "trade_date"},
		{"value date", func(d *domain.TradeDetails) { d.ValueDate = time.Time{} }, "value_date"},
		{"delivery date", func(d *domain.TradeDetails) { d.DeliveryDate = time.Time{} }, "delivery_date"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := validDetails()
			c.break_(&d)
			err := Validate(d, false)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if err.Kind != domain.MissingField || err.Field != c.field {
				t.Fatalf("got %+v, want MissingField(%s)", err, c.field)
			}
		})
	}
}

func TestValidateNonPositiveAmount(t *testing.T) {
	d := validDetails()
	d.NotionalAmount = decimal.Zero
	err := Validate(d, false)
	if err == nil || err.Kind != domain.NonPositiveAmount {
		t.Fatalf("got %v, want NonPositiveAmount", err)
	}

	d.NotionalAmount = decimal.NewFromInt(-5)
	err = Validate(d, false)
	if err == nil || err.Kind != domain.NonPositiveAmount {
		t.Fatalf("got %v, want NonPositiveAmount", err)
	}
}

func TestValidateBadOrdering(t *testing.T) {
	d := validDetails()
	d.TradeDate, d.ValueDate = d.ValueDate, d.TradeDate // trade after value
	err := Validate(d, false)
	if err == nil || err.Kind != domain.BadOrdering {
		t.Fatalf("got %v, want BadOrdering", err)
	}
}

func TestValidateBadOrderingValueAfterDelivery(t *testing.T) {
	d := validDetails()
	d.ValueDate = d.DeliveryDate.AddDate(0, 0, 1)
	err := Validate(d, false)
	if err == nil || err.Kind != domain.BadOrdering {
		t.Fatalf("got %v, want BadOrdering", err)
	}
}

func TestValidateUnderlyingMissingNotional(t *testing.T) {
	d := validDetails()
	d.Underlying = []string{"USD", "JPY"}
	err := Validate(d, false)
	if err == nil || err.Kind != domain.UnderlyingMissingNotional {
		t.Fatalf("got %v, want UnderlyingMissingNotional", err)
	}
}

func TestValidatePrematureStrike(t *testing.T) {
	d := validDetails()
	strike := decimal.NewFromInt(100)
	d.Strike = &strike

	if err := Validate(d, false); err == nil || err.Kind != domain.PrematureStrike {
		t.Fatalf("got %v, want PrematureStrike", err)
	}

	if err := Validate(d, true); err != nil {
		t.Fatalf("strike should be allowed once executed: %v", err)
	}
}
