package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/pkg/database"
)

// PostgresStore keeps the log in pricecast.price_history.
// Every mutation runs in one transaction holding a table lock, so the
// read-modify-write cycle is exclusive across processes.
// ⭐ SSOT: PostgreSQL 가격 이력 저장소
type PostgresStore struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPostgresStore creates the schema if needed and returns the store
func NewPostgresStore(ctx context.Context, db *database.DB, log zerolog.Logger) (*PostgresStore, error) {
	if _, err := db.Pool.Exec(ctx, schemaPostgres); err != nil {
		return nil, fmt.Errorf("migrate price history schema: %w", err)
	}
	return &PostgresStore{
		db:  db,
		log: log.With().Str("component", "history.postgres").Logger(),
	}, nil
}

// Backend implements contracts.HistoryStore
func (s *PostgresStore) Backend() string { return "postgres" }

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// HealthCheck pings the database
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	_, err := s.db.HealthCheck(ctx)
	return err
}

// ReadAll returns every row in insertion order; query failures read as empty
func (s *PostgresStore) ReadAll(ctx context.Context) []contracts.PriceObservation {
	query := `
		SELECT product_id, location_key, obs_date, price
		FROM pricecast.price_history
		ORDER BY id ASC`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return []contracts.PriceObservation{}
	}
	defer rows.Close()

	entries := []contracts.PriceObservation{}
	for rows.Next() {
		var e contracts.PriceObservation
		if err := rows.Scan(&e.ProductID, &e.LocationKey, &e.Date, &e.Price); err != nil {
			s.log.Warn().Err(err).Msg("history row unreadable, treating as empty")
			return []contracts.PriceObservation{}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return []contracts.PriceObservation{}
	}

	return entries
}

// Append inserts batch in one transaction
func (s *PostgresStore) Append(ctx context.Context, batch []contracts.PriceObservation) error {
	if len(batch) == 0 {
		return nil
	}

	return s.inLockedTx(ctx, func(tx pgx.Tx) error {
		return insertBatch(ctx, tx, batch)
	})
}

// Upsert updates the first matching slot or inserts entry
func (s *PostgresStore) Upsert(ctx context.Context, entry contracts.PriceObservation) (bool, error) {
	var inserted bool

	err := s.inLockedTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE pricecast.price_history SET price = $4
			WHERE id = (
				SELECT id FROM pricecast.price_history
				WHERE product_id = $1 AND location_key = $2 AND obs_date = $3
				ORDER BY id ASC
				LIMIT 1
			)`,
			entry.ProductID, entry.LocationKey, entry.Date, entry.Price,
		)
		if err != nil {
			return fmt.Errorf("update price entry: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		inserted = true
		return insertBatch(ctx, tx, []contracts.PriceObservation{entry})
	})

	return inserted, err
}

// Compact deletes every row outside the newest maxSize by (date, id)
func (s *PostgresStore) Compact(ctx context.Context, maxSize int) (int, error) {
	var removed int

	err := s.inLockedTx(ctx, func(tx pgx.Tx) error {
		var total int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM pricecast.price_history`).Scan(&total); err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if total <= maxSize {
			return nil
		}

		tag, err := tx.Exec(ctx, `
			DELETE FROM pricecast.price_history
			WHERE id NOT IN (
				SELECT id FROM pricecast.price_history
				ORDER BY obs_date DESC, id DESC
				LIMIT $1
			)`, maxSize)
		if err != nil {
			return fmt.Errorf("compact history: %w", err)
		}
		removed = int(tag.RowsAffected())
		return nil
	})

	if err == nil && removed > 0 {
		s.log.Info().Int("removed", removed).Msg("history compacted")
	}
	return removed, err
}

// Exists reports whether the store was ever seeded
func (s *PostgresStore) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pricecast.history_meta WHERE key = $1)`, seededMetaKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check seed marker: %w", err)
	}
	return exists, nil
}

// Seed replaces the table contents with batch and writes the seed marker
func (s *PostgresStore) Seed(ctx context.Context, batch []contracts.PriceObservation) error {
	return s.inLockedTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pricecast.price_history`); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}

		if len(batch) > 0 {
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"pricecast", "price_history"},
				[]string{"product_id", "location_key", "obs_date", "price"},
				pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
					e := batch[i]
					return []any{e.ProductID, e.LocationKey, e.Date, e.Price}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("copy backfill: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO pricecast.history_meta (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			seededMetaKey, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("write seed marker: %w", err)
		}
		return nil
	})
}

// HasDate reports whether any row is dated date
func (s *PostgresStore) HasDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pricecast.price_history WHERE obs_date = $1)`, date,
	).Scan(&exists)
	if err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return false, nil
	}
	return exists, nil
}

// Reset removes all rows and the seed marker
func (s *PostgresStore) Reset(ctx context.Context) error {
	return s.inLockedTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pricecast.price_history`); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pricecast.history_meta WHERE key = $1`, seededMetaKey); err != nil {
			return fmt.Errorf("clear seed marker: %w", err)
		}
		return nil
	})
}

// inLockedTx runs fn in a transaction that holds an exclusive lock on the history table
func (s *PostgresStore) inLockedTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE pricecast.price_history IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock history table: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertBatch(ctx context.Context, tx pgx.Tx, entries []contracts.PriceObservation) error {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO pricecast.price_history (product_id, location_key, obs_date, price)
		VALUES ($1, $2, $3, $4)`

	for _, e := range entries {
		batch.Queue(query, e.ProductID, e.LocationKey, e.Date, e.Price)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert price entry: %w", err)
		}
	}

	return nil
}
