package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/wonny/pricecast/internal/contracts"
)

// SQLiteStore keeps the log in a single-file SQLite database.
// One open connection plus immediate transactions serialize every mutation.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates the schema
func NewSQLiteStore(ctx context.Context, path string, log zerolog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate price history schema: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: path,
		log:  log.With().Str("component", "history.sqlite").Str("path", path).Logger(),
	}, nil
}

// Backend implements contracts.HistoryStore
func (s *SQLiteStore) Backend() string { return "sqlite" }

// Close closes the database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ReadAll returns every row in insertion order; query failures read as empty
func (s *SQLiteStore) ReadAll(ctx context.Context) []contracts.PriceObservation {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, location_key, obs_date, price
		FROM price_history
		ORDER BY id ASC`)
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
func (s *SQLiteStore) Append(ctx context.Context, batch []contracts.PriceObservation) error {
	if len(batch) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, batch)
	})
}

// Upsert updates the first matching slot or inserts entry
func (s *SQLiteStore) Upsert(ctx context.Context, entry contracts.PriceObservation) (bool, error) {
	var inserted bool

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM price_history
			WHERE product_id = ? AND location_key = ? AND obs_date = ?
			ORDER BY id ASC
			LIMIT 1`,
			entry.ProductID, entry.LocationKey, entry.Date,
		).Scan(&id)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			inserted = true
			return insertRows(ctx, tx, []contracts.PriceObservation{entry})
		case err != nil:
			return fmt.Errorf("find price entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE price_history SET price = ? WHERE id = ?`, entry.Price, id); err != nil {
			return fmt.Errorf("update price entry: %w", err)
		}
		return nil
	})

	return inserted, err
}

// Compact deletes every row outside the newest maxSize by (date, id)
func (s *SQLiteStore) Compact(ctx context.Context, maxSize int) (int, error) {
	var removed int

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_history`).Scan(&total); err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if total <= maxSize {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM price_history
			WHERE id NOT IN (
				SELECT id FROM price_history
				ORDER BY obs_date DESC, id DESC
				LIMIT ?
			)`, maxSize)
		if err != nil {
			return fmt.Errorf("compact history: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = int(n)
		return nil
	})

	if err == nil && removed > 0 {
		s.log.Info().Int("removed", removed).Msg("history compacted")
	}
	return removed, err
}

// Exists reports whether the store was ever seeded
func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_meta WHERE key = ?`, seededMetaKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check seed marker: %w", err)
	}
	return n > 0, nil
}

// Seed replaces the table contents with batch and writes the seed marker
func (s *SQLiteStore) Seed(ctx context.Context, batch []contracts.PriceObservation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM price_history`); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		if err := insertRows(ctx, tx, batch); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO history_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			seededMetaKey, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("write seed marker: %w", err)
		}
		return nil
	})
}

// HasDate reports whether any row is dated date
func (s *SQLiteStore) HasDate(ctx context.Context, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (SELECT 1 FROM price_history WHERE obs_date = ? LIMIT 1)`, date).Scan(&n)
	if err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return false, nil
	}
	return n > 0, nil
}

// Reset removes all rows and the seed marker
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM price_history`); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM history_meta WHERE key = ?`, seededMetaKey); err != nil {
			return fmt.Errorf("clear seed marker: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, entries []contracts.PriceObservation) error {
	if len(entries) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history (product_id, location_key, obs_date, price)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ProductID, e.LocationKey, e.Date, e.Price); err != nil {
			return fmt.Errorf("insert price entry: %w", err)
		}
	}
	return nil
}
