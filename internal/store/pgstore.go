package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	rdsutils "github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	_ "github.com/lib/pq"

	"github.com/nholding/tradeflow/internal/domain"
)

// PGConfig describes an IAM-authenticated RDS Postgres endpoint, adapted
// from the teacher's repository.Config/NewRDSClient.
type PGConfig struct {
	Profile    string // AWS profile, dev convenience only
	Region     string
	DBEndpoint string
	DBUser     string
	DBName     string
	DBPort     int
}

func (c *PGConfig) loadAWSConfig(ctx context.Context) (*aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &cfg, nil
}

func (c *PGConfig) open(ctx context.Context) (*sql.DB, error) {
	awsCfg, err := c.loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s:%d", c.DBEndpoint, c.DBPort)
	authToken, err := rdsutils.BuildAuthToken(ctx, endpoint, c.Region, c.DBUser, awsCfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to build RDS IAM auth token: %w", err)
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=require",
		url.QueryEscape(c.DBUser),
		url.QueryEscape(authToken),
		endpoint,
		url.QueryEscape(c.DBName),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open RDS connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping RDS: %w", err)
	}
	return db, nil
}

// PGStore implements Store against a Postgres table, keyed by
// (trade_id, version). Per-trade serialization is provided by a Postgres
// advisory transaction lock on the trade id, giving Append the same
// single-writer-wins semantics MemStore gets from its in-process mutex —
// see §5.
type PGStore struct {
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS trade_events (
	trade_id   BIGINT NOT NULL,
	version    BIGINT NOT NULL,
	user_id    TEXT NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	from_state SMALLINT NOT NULL,
	to_state   SMALLINT NOT NULL,
	details    JSONB NOT NULL,
	PRIMARY KEY (trade_id, version)
);`

// NewPGStore connects to the configured RDS endpoint and ensures the
// trade_events table exists.
func NewPGStore(ctx context.Context, cfg *PGConfig) (*PGStore, error) {
	db, err := cfg.open(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PGStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) Create(id domain.TradeID, initial domain.TradeEvent) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(id)); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM trade_events WHERE trade_id = $1`, int64(id)).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return &domain.AlreadyExistsError{ID: id}
	}

	if err := insertEvent(ctx, tx, id, initial); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) Append(id domain.TradeID, event domain.TradeEvent) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(id)); err != nil {
		return err
	}

	var count uint64
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM trade_events WHERE trade_id = $1`, int64(id)).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &domain.NotFoundError{ID: id}
	}
	if event.Version != count {
		return &domain.VersionConflictError{ID: id, Got: event.Version, Expected: count}
	}

	if err := insertEvent(ctx, tx, id, event); err != nil {
		return err
	}
	return tx.Commit()
}

// Mutate holds the advisory lock across the whole read-fn-insert sequence
// inside one transaction, so a concurrent Mutate/Append on the same id
// blocks on pg_advisory_xact_lock until this transaction commits or rolls
// back — the same read-modify-write atomicity MemStore.Mutate gets from
// th.mu.
func (s *PGStore) Mutate(id domain.TradeID, fn func(domain.TradeEvent) (domain.TradeEvent, error)) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(id)); err != nil {
		return err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT version, user_id, ts, from_state, to_state, details
		FROM trade_events WHERE trade_id = $1 ORDER BY version DESC LIMIT 1`, int64(id))
	latest, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return &domain.NotFoundError{ID: id}
	}
	if err != nil {
		return err
	}

	next, err := fn(latest)
	if err != nil {
		return err
	}

	if err := insertEvent(ctx, tx, id, next); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvent(ctx context.Context, tx *sql.Tx, id domain.TradeID, event domain.TradeEvent) error {
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO trade_events (trade_id, version, user_id, ts, from_state, to_state, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(id), int64(event.Version), event.UserID, event.Timestamp,
		int(event.FromState), int(event.ToState), detailsJSON,
	)
	return err
}

func (s *PGStore) History(id domain.TradeID) ([]domain.TradeEvent, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, user_id, ts, from_state, to_state, details
		FROM trade_events WHERE trade_id = $1 ORDER BY version ASC`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TradeEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}
	return events, nil
}

func (s *PGStore) Latest(id domain.TradeID) (domain.TradeEvent, error) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, `
		SELECT version, user_id, ts, from_state, to_state, details
		FROM trade_events WHERE trade_id = $1 ORDER BY version DESC LIMIT 1`, int64(id))

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return domain.TradeEvent{}, &domain.NotFoundError{ID: id}
	}
	return ev, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (domain.TradeEvent, error) {
	var (
		version            int64
		userID             string
		ts                 time.Time
		fromState, toState int
		detailsJSON        []byte
	)
	if err := r.Scan(&version, &userID, &ts, &fromState, &toState, &detailsJSON); err != nil {
		return domain.TradeEvent{}, err
	}

	var details domain.TradeDetails
	if err := json.Unmarshal(detailsJSON, &details); err != nil {
		return domain.TradeEvent{}, fmt.Errorf("failed to unmarshal details: %w", err)
	}

	return domain.TradeEvent{
		UserID:    userID,
		Timestamp: ts,
		FromState: domain.TradeState(fromState),
		ToState:   domain.TradeState(toState),
		Details:   details,
		Version:   uint64(version),
	}, nil
}

func (s *PGStore) ListIDs(sorted bool) ([]domain.TradeID, error) {
	ctx := context.Background()
	query := `SELECT DISTINCT trade_id FROM trade_events`
	if sorted {
		query += ` ORDER BY trade_id ASC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []domain.TradeID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.TradeID(id))
	}
	return ids, rows.Err()
}

func (s *PGStore) Delete(id domain.TradeID) error {
	ctx := context.Background()
	res, err := s.db.ExecContext(ctx, `DELETE FROM trade_events WHERE trade_id = $1`, int64(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}

var _ Store = (*PGStore)(nil)
