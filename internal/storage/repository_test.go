package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"spendwise/internal/core"
	"spendwise/internal/repository"
	"spendwise/internal/repository/repotest"
)

var _ repository.Store = (*Repository)(nil)

func newSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &repotest.StoreSuite{
		NewStore: func(t *testing.T) repository.Store { return newSQLite(t) },
	})
}

// Runs against a real server when TEST_DATABASE_URL is set.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, &repotest.StoreSuite{
		NewStore: func(t *testing.T) repository.Store {
			repo, err := NewPostgresRepository(context.Background(), dsn)
			require.NoError(t, err)
			_, err = repo.db.Exec(`TRUNCATE expenses, budgets, users RESTART IDENTITY`)
			require.NoError(t, err)
			return repo
		},
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.NoError(t, RunMigrations(DialectSQLite, path))

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, DialectSQLite, repo.Dialect())
}

func TestAmountsRoundTripExactly(t *testing.T) {
	repo := newSQLite(t)
	defer repo.Close()
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, core.User{Email: "a@example.com", Name: "A", PasswordHash: "h"})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := repo.CreateExpense(ctx, core.Expense{OwnerID: u.ID, Title: "dime", Amount: decimal.RequireFromString("0.10"), Category: core.Other, Date: core.NewDate(2024, 3, 1)})
		require.NoError(t, err)
	}

	list, err := repo.ListExpenses(ctx, u.ID)
	require.NoError(t, err)
	total := decimal.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1)), "got %s", total)
}

func TestClockIsUsedForTimestamps(t *testing.T) {
	repo := newSQLite(t)
	defer repo.Close()
	fixed := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	u, err := repo.CreateUser(context.Background(), core.User{Email: "a@example.com", Name: "A", PasswordHash: "h"})
	require.NoError(t, err)
	got, err := repo.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt))
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE x = $1 AND y = $2`, DialectPostgres.rebind(q))
}

func TestDateScan(t *testing.T) {
	var d dbDate
	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())
	require.NoError(t, d.Scan(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01", d.String())
	assert.Error(t, d.Scan(42))

	var ts dbTime
	require.NoError(t, ts.Scan([]byte("2024-03-15T09:30:00Z")))
	assert.Equal(t, 2024, ts.Year())
	assert.Error(t, ts.Scan("yesterday"))
}
