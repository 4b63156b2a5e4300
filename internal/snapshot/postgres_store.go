package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/odds-tracker/internal/database"
	"github.com/yourusername/odds-tracker/internal/models"
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS odds_snapshots (
		key         TEXT PRIMARY KEY,
		captured_at TIMESTAMPTZ NOT NULL,
		payload     JSONB NOT NULL
	)
`

// PostgresStore keeps snapshots as JSONB rows keyed by snapshot key
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store on an open pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the snapshots table if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.GetPool().Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create odds_snapshots table: %w", err)
	}
	return nil
}

// List returns every snapshot key in ascending order
func (s *PostgresStore) List(ctx context.Context) ([]Ref, error) {
	rows, err := s.db.GetPool().Query(ctx, `SELECT key FROM odds_snapshots ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot key: %w", err)
		}
		refs = append(refs, Ref{Key: key})
	}
	return refs, rows.Err()
}

// Load fetches and decodes one snapshot row
func (s *PostgresStore) Load(ctx context.Context, ref Ref) (models.Snapshot, error) {
	var payload []byte
	err := s.db.GetPool().QueryRow(ctx, `SELECT payload FROM odds_snapshots WHERE key = $1`, ref.Key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Snapshot{}, fmt.Errorf("%w: %s: not found", models.ErrCorruptSnapshot, ref.Key)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %w", models.ErrCorruptSnapshot, ref.Key, err)
	}
	return Decode(ref.Key, payload)
}

// Append inserts a snapshot row; an existing key is rejected
func (s *PostgresStore) Append(ctx context.Context, snap models.Snapshot) (Ref, error) {
	ref := Ref{Key: KeyFor(snap.Timestamp)}

	payload, err := Encode(snap)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO odds_snapshots (key, captured_at, payload) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`,
			ref.Key, snap.Timestamp.UTC(), payload,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s already exists", ref.Key)
		}
		return nil
	})
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}
	return ref, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
