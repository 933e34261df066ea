package store

import (
	"testing"
	"time"

	"github.com/nholding/tradeflow/internal/domain"
)

// fakeRow lets scanEvent be tested without a live Postgres connection: it
// implements rowScanner by copying canned values into the destinations,
// the same way *sql.Row/*sql.Rows would.
type fakeRow struct {
	version            int64
	userID             string
	ts                 time.Time
	fromState, toState int
	detailsJSON        []byte
}

func (f fakeRow) Scan(dest ...any) error {
	*dest[0].(*int64) = f.version
	*dest[1].(*string) = f.userID
	*dest[2].(*time.Time) = f.ts
	*dest[3].(*int) = f.fromState
	*dest[4].(*int) = f.toState
	*dest[5].(*[]byte) = f.detailsJSON
	return nil
}

func TestScanEventRoundTrips(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	row := fakeRow{
		version:     2,
		userID:      "alice",
		ts:          ts,
		fromState:   int(domain.PendingApproval),
		toState:     int(domain.Approved),
		detailsJSON: []byte(`{"TradingEntity":"NH-LDN-01","Counterparty":"ACME-BANK","Direction":0,"NotionalCurrency":"GBP","NotionalAmount":"100","Underlying":["GBP"]}`),
	}

	ev, err := scanEvent(row)
	if err != nil {
		t.Fatalf("scanEvent: %v", err)
	}
	if ev.Version != 2 {
		t.Errorf("got version %d, want 2", ev.Version)
	}
	if ev.UserID != "alice" {
		t.Errorf("got user %q, want alice", ev.UserID)
	}
	if !ev.Timestamp.Equal(ts) {
		t.Errorf("got ts %v, want %v", ev.Timestamp, ts)
	}
	if ev.FromState != domain.PendingApproval || ev.ToState != domain.Approved {
		t.Errorf("got from=%s to=%s, want PendingApproval/Approved", ev.FromState, ev.ToState)
	}
	if ev.Details.TradingEntity != "NH-LDN-01" {
		t.Errorf("got trading entity %q", ev.Details.TradingEntity)
	}
}

func TestScanEventPropagatesMalformedJSON(t *testing.T) {
	row := fakeRow{detailsJSON: []byte(`not-json`)}
	if _, err := scanEvent(row); err == nil {
		t.Fatal("expected an error for malformed details JSON")
	}
}

// NewPGStore, Create, Append, etc. require a live RDS-IAM-authenticated
// Postgres instance and are exercised in the deployment environment rather
// than here; PGStore is an optional, non-default backend (§4.8) not
// exercised by the package's own test suite.
