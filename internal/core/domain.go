package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Utilities     Category = "Utilities"
	Healthcare    Category = "Healthcare"
	Other         Category = "Other"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxNameLength        = 100
	MinPasswordLength    = 6
)

type (
	Category string

	Date struct {
		time.Time
	}

	User struct {
		ID           int64
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Expense struct {
		ID          int64
		OwnerID     int64
		Title       string
		Amount      decimal.Decimal
		Category    Category
		Date        Date
		Description string
		CreatedAt   time.Time
	}

	Budget struct {
		ID        int64
		OwnerID   int64
		Category  Category
		Amount    decimal.Decimal
		Month     int // 1-12
		Year      int
		CreatedAt time.Time
	}
)

// ValidationError marks input that was rejected before reaching storage.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func newValidation(msg string) error { return &ValidationError{msg: msg} }

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	ErrInvalidDate        = newValidation("invalid date")
	ErrInvalidMonth       = newValidation("month must be between 1 and 12")
	ErrInvalidYear        = newValidation("year must be between 2000 and 9999")
	ErrInvalidAmount      = newValidation("amount must be greater than zero")
	ErrAmountFormat       = newValidation("amount must be a decimal number")
	ErrInvalidCategory    = newValidation("invalid category")
	ErrEmptyTitle         = newValidation("title is required")
	ErrTitleTooLong       = newValidation(fmt.Sprintf("title too long (max %d characters)", MaxTitleLength))
	ErrDescriptionTooLong = newValidation(fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLength))
	ErrInvalidEmail       = newValidation("invalid email format")
	ErrPasswordTooShort   = newValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	ErrEmptyName          = newValidation("name is required")
	ErrNameTooLong        = newValidation(fmt.Sprintf("name too long (max %d characters)", MaxNameLength))
)

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{Food, Transport, Shopping, Entertainment, Utilities, Healthcare, Other}
}

// ParseCategory matches s against the known categories, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Validate() error {
	for _, known := range Categories() {
		if c == known {
			return nil
		}
	}
	return ErrInvalidCategory
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp; the time of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (b Budget) Validate() error {
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 2000 || b.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Period returns the calendar month the budget applies to.
func (b Budget) Period() Period {
	return Period{Year: b.Year, Month: b.Month}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks for a single bare address with a dotted domain.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
