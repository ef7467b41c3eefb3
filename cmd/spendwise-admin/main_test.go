package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/repository/memory"
)

func newTestApp(stdin string) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	return &app{
		cfg: &config.Config{
			DBDriver:  config.DriverMemory,
			JWTSecret: "0123456789abcdef0123456789abcdef",
			JWTTTL:    time.Hour,
		},
		logger: applog.Discard(),
		store:  memory.New(),
		stdin:  strings.NewReader(stdin),
		stdout: &out,
	}, &out
}

func run(a *app, args ...string) error {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestUserAdd_PromptsForPassword(t *testing.T) {
	a, out := newTestApp("secret1\n")

	require.NoError(t, run(a, "user", "add", "--email", "Admin@Example.com", "--name", "Admin"))
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "User admin@example.com created successfully")

	_, token, err := a.accounts().Login(context.Background(), "admin@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestUserAdd_Rejections(t *testing.T) {
	a, _ := newTestApp("")
	require.NoError(t, run(a, "user", "add", "--email", "a@b.co", "--name", "A", "--password", "secret1"))

	err := run(a, "user", "add", "--email", "a@b.co", "--name", "A", "--password", "secret1")
	assert.ErrorIs(t, err, core.ErrDuplicate)

	err = run(a, "user", "add", "--email", "c@d.co", "--name", "C", "--password", "123")
	assert.ErrorIs(t, err, core.ErrPasswordTooShort)

	err = run(a, "user", "add", "--name", "NoEmail", "--password", "secret1")
	assert.Error(t, err)
}

func TestUserDelete(t *testing.T) {
	a, out := newTestApp("")
	require.NoError(t, run(a, "user", "add", "--email", "gone@example.com", "--name", "Gone", "--password", "secret1"))

	require.NoError(t, run(a, "user", "delete", "--email", "gone@example.com"))
	assert.Contains(t, out.String(), "User gone@example.com deleted")

	err := run(a, "user", "delete", "--email", "gone@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetCheck(t *testing.T) {
	a, out := newTestApp("")
	ctx := context.Background()
	require.NoError(t, run(a, "user", "add", "--email", "b@example.com", "--name", "B", "--password", "secret1"))
	user, err := a.store.GetUserByEmail(ctx, "b@example.com")
	require.NoError(t, err)

	_, err = a.store.CreateBudget(ctx, core.Budget{OwnerID: user.ID, Category: core.Food, Amount: decimal.NewFromInt(100), Month: 3, Year: 2024})
	require.NoError(t, err)
	_, err = a.store.CreateExpense(ctx, core.Expense{
		OwnerID: user.ID, Title: "Groceries", Amount: decimal.NewFromInt(120),
		Category: core.Food, Date: core.NewDate(2024, 3, 4),
	})
	require.NoError(t, err)

	require.NoError(t, run(a, "budget", "check", "--email", "b@example.com", "--month", "3", "--year", "2024"))
	assert.Contains(t, out.String(), "OVER BUDGET")
	assert.Contains(t, out.String(), "120.00")

	out.Reset()
	require.NoError(t, run(a, "budget", "check", "--email", "b@example.com", "--month", "4", "--year", "2024"))
	assert.Contains(t, out.String(), "All budgets on track for 2024-04")

	assert.ErrorIs(t, run(a, "budget", "check", "--email", "b@example.com", "--month", "13", "--year", "2024"), core.ErrInvalidMonth)
}

func TestMigrate(t *testing.T) {
	a, out := newTestApp("")
	require.NoError(t, run(a, "migrate"))
	assert.Contains(t, out.String(), `Database "memory" is up to date`)
}

func TestReadPassword_Pipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("hunter22\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", got)

	_, err = readPassword(strings.NewReader(""))
	assert.Error(t, err)
}
