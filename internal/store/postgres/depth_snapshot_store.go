package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

// DepthSnapshotStore implements domain.DepthSnapshotStore. The processed book
// is kept as JSONB; headline numbers are duplicated into NUMERIC columns so
// history can be queried without decoding the payload.
type DepthSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewDepthSnapshotStore creates a store backed by the given connection pool.
func NewDepthSnapshotStore(pool *pgxpool.Pool) *DepthSnapshotStore {
	return &DepthSnapshotStore{pool: pool}
}

const snapshotSelectCols = `id, network, base_token_id, quote_token_id, book, fetched_at`

// Insert stores snap. An empty ID is replaced with a new UUID.
func (s *DepthSnapshotStore) Insert(ctx context.Context, snap domain.DepthSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	book, err := json.Marshal(snap.Book)
	if err != nil {
		return fmt.Errorf("postgres: encode snapshot %s: %w", snap.ID, err)
	}

	sum := snap.Book.Summary
	_, err = s.pool.Exec(ctx, `
		INSERT INTO depth_snapshots (
			id, network, base_token_id, quote_token_id,
			best_ask, best_bid, spread,
			total_ask_volume, total_bid_volume,
			book, fetched_at
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric,
			$8::numeric, $9::numeric,
			$10, $11
		)`,
		snap.ID, int(snap.Market.Network), snap.Market.BaseTokenID, snap.Market.QuoteTokenID,
		numericOrNil(sum.BestAsk), numericOrNil(sum.BestBid), numericOrNil(sum.Spread),
		sum.TotalAskVolume.String(), sum.TotalBidVolume.String(),
		book, snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Latest returns the most recent snapshot of market or domain.ErrNotFound.
func (s *DepthSnapshotStore) Latest(ctx context.Context, market domain.Market) (domain.DepthSnapshot, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+snapshotSelectCols+`
		FROM depth_snapshots
		WHERE network = $1 AND base_token_id = $2 AND quote_token_id = $3
		ORDER BY fetched_at DESC
		LIMIT 1`,
		int(market.Network), market.BaseTokenID, market.QuoteTokenID,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DepthSnapshot{}, fmt.Errorf("postgres: latest snapshot %s: %w", market.Key(), domain.ErrNotFound)
	}
	if err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("postgres: latest snapshot %s: %w", market.Key(), err)
	}
	return snap, nil
}

// ListBefore returns every snapshot fetched strictly before the cutoff,
// oldest first.
func (s *DepthSnapshotStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DepthSnapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+snapshotSelectCols+`
		FROM depth_snapshots
		WHERE fetched_at < $1
		ORDER BY fetched_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.DepthSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	return snaps, nil
}

// DeleteBefore removes snapshots fetched strictly before the cutoff and
// returns how many rows were deleted.
func (s *DepthSnapshotStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depth_snapshots WHERE fetched_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(row pgx.Row) (domain.DepthSnapshot, error) {
	var (
		snap    domain.DepthSnapshot
		id      uuid.UUID
		network int
		book    []byte
	)
	if err := row.Scan(&id, &network, &snap.Market.BaseTokenID, &snap.Market.QuoteTokenID, &book, &snap.FetchedAt); err != nil {
		return domain.DepthSnapshot{}, err
	}
	snap.ID = id.String()
	snap.Market.Network = domain.NetworkID(network)
	if err := json.Unmarshal(book, &snap.Book); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("decode book %s: %w", snap.ID, err)
	}
	return snap, nil
}

// numericOrNil renders an optional decimal for a nullable NUMERIC column.
func numericOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// Compile-time interface check.
var _ domain.DepthSnapshotStore = (*DepthSnapshotStore)(nil)
