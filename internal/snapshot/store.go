// Package snapshot archives built trial balances so historical runs can be
// listed without refetching upstream reports. The aggregation core never
// depends on this package.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// ErrSnapshotExists indicates an archive entry already covers this entity/date.
var ErrSnapshotExists = errors.New("snapshot: already archived for entity and date")

// Record is one archived trial balance, payload omitted in listings.
type Record struct {
	ID           uuid.UUID `json:"id"`
	EntityID     int64     `json:"entityId"`
	AsOf         time.Time `json:"asOf"`
	Balanced     bool      `json:"balanced"`
	AccountCount int       `json:"accountCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists trial balance snapshots in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a snapshot store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save archives one built trial balance. A second save for the same entity
// and as-of date returns ErrSnapshotExists.
func (s *Store) Save(ctx context.Context, tb trialbalance.TrialBalance) (uuid.UUID, error) {
	if s == nil || s.pool == nil {
		return uuid.Nil, errors.New("snapshot: store not initialised")
	}
	payload, err := json.Marshal(tb)
	if err != nil {
		return uuid.Nil, fmt.Errorf("snapshot: marshal payload: %w", err)
	}

	id := uuid.New()
	const query = `
		INSERT INTO trial_balance_snapshots (id, entity_id, as_of, balanced, account_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.pool.Exec(ctx, query, id, tb.EntityID, tb.AsOf, tb.BalanceCheck.DebitsEqualCredits, tb.AccountCount(), payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrSnapshotExists
		}
		return uuid.Nil, fmt.Errorf("snapshot: save: %w", err)
	}
	return id, nil
}

// ListByEntity returns the most recent archive entries for an entity.
func (s *Store) ListByEntity(ctx context.Context, entityID int64, limit int) ([]Record, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("snapshot: store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, entity_id, as_of, balanced, account_count, created_at
		FROM trial_balance_snapshots
		WHERE entity_id = $1
		ORDER BY as_of DESC, created_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.EntityID, &record.AsOf, &record.Balanced, &record.AccountCount, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("snapshot: scan: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
