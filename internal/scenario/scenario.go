// Package scenario drives a handful of canned trade lifecycles through the
// engine's public operations, for processes started with features.dev_mode
// set (C11, §4.11). It exists purely to give an operator something to look
// at on a fresh box; nothing in the engine depends on it, and it uses only
// the engine's exported operations and the domain types they take.
package scenario

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nholding/tradeflow/internal/domain"
	"github.com/nholding/tradeflow/internal/engine"
)

var epoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Run drives S1-S3 (spec.md §8) against e, logging one line as each scenario
// completes. It stops at the first error any step returns and returns it,
// wrapped with the scenario's name.
func Run(e *engine.Engine, log *zap.Logger) error {
	if err := runSubmitApprove(e, log); err != nil {
		return fmt.Errorf("scenario submit+approve: %w", err)
	}
	if err := runUpdateReapproval(e, log); err != nil {
		return fmt.Errorf("scenario update forces reapproval: %w", err)
	}
	if err := runFullExecution(e, log); err != nil {
		return fmt.Errorf("scenario full execution: %w", err)
	}
	return nil
}

func sampleDetails(notional string) domain.TradeDetails {
	amount, _ := decimal.NewFromString(notional)
	return domain.TradeDetails{
		TradingEntity:    "NH-LDN-01",
		Counterparty:     "ACME-BANK",
		Direction:        domain.Buy,
		NotionalCurrency: "GBP",
		NotionalAmount:   amount,
		Underlying:       []string{"GBP", "EUR"},
		TradeDate:        sampleDate(0),
		ValueDate:        sampleDate(2),
		DeliveryDate:     sampleDate(30),
	}
}

func sampleDate(daysFromEpoch int) time.Time {
	return epoch.AddDate(0, 0, daysFromEpoch)
}

// runSubmitApprove is S1: create, submit, approve.
func runSubmitApprove(e *engine.Engine, log *zap.Logger) error {
	id, err := e.CreateTrade("demo-user", sampleDetails("55.60"))
	if err != nil {
		return err
	}
	if err := e.Submit("demo-user", id); err != nil {
		return err
	}
	if err := e.ApproveTrade("demo-user", id); err != nil {
		return err
	}
	state, err := e.GetStatus(id)
	if err != nil {
		return err
	}
	log.Info("scenario S1 complete", zap.String("tradeId", id.String()), zap.String("state", state.String()))
	return nil
}

// runUpdateReapproval is S2: create, submit, update (forces reapproval), approve.
func runUpdateReapproval(e *engine.Engine, log *zap.Logger) error {
	id, err := e.CreateTrade("demo-user", sampleDetails("468.22"))
	if err != nil {
		return err
	}
	if err := e.Submit("demo-user", id); err != nil {
		return err
	}
	revised := sampleDetails("368.02")
	if err := e.Update("demo-user", id, revised); err != nil {
		return err
	}
	if err := e.ApproveTrade("demo-user", id); err != nil {
		return err
	}
	d, err := e.Diff(id, 0, 3)
	if err != nil {
		return err
	}
	log.Info("scenario S2 complete", zap.String("tradeId", id.String()), zap.Int("changedFields", len(d.Differences)))
	return nil
}

// runFullExecution is S3: create through Executed.
func runFullExecution(e *engine.Engine, log *zap.Logger) error {
	id, err := e.CreateTrade("demo-user", sampleDetails("1000.00"))
	if err != nil {
		return err
	}
	if err := e.Submit("demo-user", id); err != nil {
		return err
	}
	if err := e.ApproveTrade("demo-user", id); err != nil {
		return err
	}
	if err := e.SendToCounterparty("demo-user", id); err != nil {
		return err
	}
	if err := e.BookTrade("demo-user", id); err != nil {
		return err
	}
	state, err := e.GetStatus(id)
	if err != nil {
		return err
	}
	log.Info("scenario S3 complete", zap.String("tradeId", id.String()), zap.Bool("terminal", state.Terminal()))
	return nil
}
