package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Repository implements repository.Store on top of database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open(DialectSQLite.driverName(), DialectSQLite.dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db, DialectSQLite), nil
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := sql.Open(DialectPostgres.driverName(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db, DialectPostgres), nil
}

func newRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect, now: time.Now}
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, r.dialect.rebind(query), args...)
}

// execOne runs a statement that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.exec(ctx, r.db, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func amountArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Users

const userColumns = `id, email, name, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u                core.User
		created, updated dbTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &created, &updated); err != nil {
		return core.User{}, err
	}
	u.CreatedAt, u.UpdatedAt = created.Time, updated.Time
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.now().UTC()
	err := r.queryRow(ctx, r.db,
		`INSERT INTO users (email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		u.Email, u.Name, u.PasswordHash, r.dialect.timeArg(now), r.dialect.timeArg(now),
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicate
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return u, nil
}

func (r *Repository) UpdateUserName(ctx context.Context, id int64, name string) (core.User, error) {
	if err := r.execOne(ctx, `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, r.dialect.timeArg(r.now()), id); err != nil {
		return core.User{}, fmt.Errorf("update user name: %w", err)
	}
	return r.GetUser(ctx, id)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if err := r.execOne(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, r.dialect.timeArg(r.now()), id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteUser removes the user and everything they own in one transaction.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.exec(ctx, tx, `DELETE FROM expenses WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete expenses: %w", err)
	}
	if _, err := r.exec(ctx, tx, `DELETE FROM budgets WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete budgets: %w", err)
	}
	res, err := r.exec(ctx, tx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("delete user %d: %w", id, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Expenses

const expenseColumns = `id, user_id, title, amount, category, date, description, created_at`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e        core.Expense
		category string
		date     dbDate
		created  dbTime
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &category, &date, &e.Description, &created); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)
	e.Date = date.Date
	e.CreatedAt = created.Time
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.CreatedAt = r.now().UTC()
	err := r.queryRow(ctx, r.db,
		`INSERT INTO expenses (user_id, title, amount, category, date, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.OwnerID, e.Title, amountArg(e.Amount), string(e.Category), e.Date.String(), e.Description, r.dialect.timeArg(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	e.Amount = e.Amount.Round(2)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, ownerID int64) ([]core.Expense, error) {
	rows, err := r.query(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	e, err := scanExpense(r.queryRow(ctx, r.db, `SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, ownerID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.execOne(ctx,
		`UPDATE expenses SET title = ?, amount = ?, category = ?, date = ?, description = ? WHERE id = ? AND user_id = ?`,
		e.Title, amountArg(e.Amount), string(e.Category), e.Date.String(), e.Description, e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return r.GetExpense(ctx, e.OwnerID, e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	if err := r.execOne(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// Budgets

const budgetColumns = `id, user_id, category, amount, month, year, created_at`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b        core.Budget
		category string
		created  dbTime
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &category, &b.Amount, &b.Month, &b.Year, &created); err != nil {
		return core.Budget{}, err
	}
	b.Category = core.Category(category)
	b.CreatedAt = created.Time
	return b, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.CreatedAt = r.now().UTC()
	err := r.queryRow(ctx, r.db,
		`INSERT INTO budgets (user_id, category, amount, month, year, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		b.OwnerID, string(b.Category), amountArg(b.Amount), b.Month, b.Year, r.dialect.timeArg(b.CreatedAt),
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, core.ErrDuplicate
		}
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	b.Amount = b.Amount.Round(2)
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, ownerID int64, period *core.Period) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	args := []any{ownerID}
	if period != nil {
		query += ` AND month = ? AND year = ?`
		args = append(args, period.Month, period.Year)
	}
	query += ` ORDER BY category ASC, year DESC, month DESC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

func (r *Repository) GetBudget(ctx context.Context, ownerID, id int64) (core.Budget, error) {
	b, err := scanBudget(r.queryRow(ctx, r.db, `SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, ownerID))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, notFound(err))
	}
	return b, nil
}

func (r *Repository) FindBudget(ctx context.Context, ownerID int64, category core.Category, period core.Period) (core.Budget, error) {
	b, err := scanBudget(r.queryRow(ctx, r.db,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category = ? AND month = ? AND year = ?`,
		ownerID, string(category), period.Month, period.Year))
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", notFound(err))
	}
	return b, nil
}

func (r *Repository) UpdateBudgetAmount(ctx context.Context, ownerID, id int64, amount decimal.Decimal) (core.Budget, error) {
	if err := r.execOne(ctx, `UPDATE budgets SET amount = ? WHERE id = ? AND user_id = ?`, amountArg(amount), id, ownerID); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, err)
	}
	return r.GetBudget(ctx, ownerID, id)
}

func (r *Repository) DeleteBudget(ctx context.Context, ownerID, id int64) error {
	if err := r.execOne(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return nil
}
