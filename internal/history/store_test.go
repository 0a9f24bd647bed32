package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/pkg/config"
	"github.com/wonny/pricecast/pkg/database"
)

func obs(productID int, key, date string, price int) contracts.PriceObservation {
	return contracts.PriceObservation{ProductID: productID, LocationKey: key, Date: date, Price: price}
}

// runStoreContract exercises the behaviour every backend must share
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := open(t)
		exists, err := s.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Empty(t, s.ReadAll(ctx))
		assert.NotNil(t, s.ReadAll(ctx))
	})

	t.Run("seed then append keeps order", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-01", 100),
			obs(1, "1_1", "2024-01-02", 101),
		}))
		require.NoError(t, s.Append(ctx, []contracts.PriceObservation{
			obs(2, "1_2", "2024-01-03", 50),
		}))

		exists, err := s.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		assert.Equal(t, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-01", 100),
			obs(1, "1_1", "2024-01-02", 101),
			obs(2, "1_2", "2024-01-03", 50),
		}, s.ReadAll(ctx))
	})

	t.Run("seed with empty batch still marks existence", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, nil))
		exists, err := s.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Empty(t, s.ReadAll(ctx))
	})

	t.Run("upsert updates first match in place", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-01", 100),
			obs(1, "1_1", "2024-01-01", 200),
			obs(2, "1_1", "2024-01-01", 300),
		}))

		inserted, err := s.Upsert(ctx, obs(1, "1_1", "2024-01-01", 150))
		require.NoError(t, err)
		assert.False(t, inserted)

		assert.Equal(t, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-01", 150),
			obs(1, "1_1", "2024-01-01", 200),
			obs(2, "1_1", "2024-01-01", 300),
		}, s.ReadAll(ctx))
	})

	t.Run("upsert appends new slot", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 100)}))

		inserted, err := s.Upsert(ctx, obs(1, "1_1", "2024-01-02", 120))
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Len(t, s.ReadAll(ctx), 2)
	})

	t.Run("has date", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 100)}))

		ok, err := s.HasDate(ctx, "2024-01-01")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.HasDate(ctx, "2024-01-02")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("compact keeps newest dates and later ties", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-03", 3),
			obs(1, "1_1", "2024-01-01", 1),
			obs(2, "1_1", "2024-01-02", 20),
			obs(3, "1_1", "2024-01-02", 30),
		}))

		removed, err := s.Compact(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		got := s.ReadAll(ctx)
		require.Len(t, got, 2)
		assert.ElementsMatch(t, []contracts.PriceObservation{
			obs(1, "1_1", "2024-01-03", 3),
			obs(3, "1_1", "2024-01-02", 30),
		}, got)
	})

	t.Run("compact under limit is a no-op", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 1)}))

		removed, err := s.Compact(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Len(t, s.ReadAll(ctx), 1)
	})

	t.Run("reset", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 1)}))
		require.NoError(t, s.Reset(ctx))

		exists, err := s.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Empty(t, s.ReadAll(ctx))

		// resetting an empty store is fine
		require.NoError(t, s.Reset(ctx))
	})
}

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPostgresStore_Contract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	runStoreContract(t, func(t *testing.T) Store {
		db, err := database.New(&config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 4}})
		require.NoError(t, err)

		s, err := NewPostgresStore(context.Background(), db, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, s.Reset(context.Background()))
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore_CorruptFileReadsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "price_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, zerolog.Nop())
	assert.Empty(t, s.ReadAll(ctx))

	ok, err := s.HasDate(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.False(t, ok)

	// a write replaces the corrupt document
	require.NoError(t, s.Append(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 10)}))
	assert.Equal(t, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 10)}, s.ReadAll(ctx))
}

func TestFileStore_DocumentShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "price_history.json")
	s := NewFileStore(path, zerolog.Nop())

	require.NoError(t, s.Seed(ctx, []contracts.PriceObservation{obs(3, "2_5", "2024-03-09", 77)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"history":[{"product_id":3,"location_key":"2_5","date":"2024-03-09","price":77}]}`,
		string(data))

	// no temp files left behind
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileStore_CompactLargeLog(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())

	const maxEntries = 100000
	batch := make([]contracts.PriceObservation, 0, maxEntries+1)
	batch = append(batch, obs(0, "1_1", "2023-12-31", 1))
	for i := 0; i < maxEntries; i++ {
		batch = append(batch, obs(i+1, "1_1", "2024-01-01", 2))
	}
	require.NoError(t, s.Seed(ctx, batch))

	removed, err := s.Compact(ctx, maxEntries)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got := s.ReadAll(ctx)
	require.Len(t, got, maxEntries)
	for _, e := range got {
		assert.NotEqual(t, "2023-12-31", e.Date)
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())
	assert.ErrorIs(t, s.Append(ctx, []contracts.PriceObservation{obs(1, "1_1", "2024-01-01", 1)}), context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    string
		wantErr error
	}{
		{backend: config.BackendFile, want: "file"},
		{backend: config.BackendSQLite, want: "sqlite"},
		{backend: "mongo", wantErr: ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("backend=%s", tt.backend), func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{
				Backend:     tt.backend,
				HistoryPath: filepath.Join(dir, "h.json"),
				SQLitePath:  filepath.Join(dir, "h.db"),
			}}

			s, err := Open(ctx, cfg, zerolog.Nop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.want, s.Backend())
		})
	}
}
