package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDate, "case %d", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", d.String())

	d, err = ParseDate("2024-03-15T22:10:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", d.String())

	_, err = ParseDate("15/03/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" food ")
	require.NoError(t, err)
	assert.Equal(t, Food, c)

	_, err = ParseCategory("Groceries")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	assert.Error(t, Category("food").Validate())
	assert.NoError(t, Healthcare.Validate())
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Title:    "Lunch",
		Amount:   decimal.RequireFromString("12.50"),
		Category: Food,
		Date:     NewDate(2025, 1, 1),
	}
	require.NoError(t, good.Validate())

	cases := map[string]struct {
		mutate func(*Expense)
		want   error
	}{
		"empty title":      {func(e *Expense) { e.Title = "  " }, ErrEmptyTitle},
		"long title":       {func(e *Expense) { e.Title = strings.Repeat("a", MaxTitleLength+1) }, ErrTitleTooLong},
		"zero amount":      {func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		"negative amount":  {func(e *Expense) { e.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		"unknown category": {func(e *Expense) { e.Category = "Rent" }, ErrInvalidCategory},
		"zero date":        {func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		"long description": {func(e *Expense) { e.Description = strings.Repeat("x", MaxDescriptionLength+1) }, ErrDescriptionTooLong},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := good
			tc.mutate(&e)
			err := e.Validate()
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Category: Transport, Amount: decimal.NewFromInt(100), Month: 3, Year: 2024}
	require.NoError(t, good.Validate())

	bad := good
	bad.Month = 13
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMonth)

	bad = good
	bad.Month = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMonth)

	bad = good
	bad.Amount = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), ErrInvalidAmount)

	bad = good
	bad.Year = 1999
	assert.ErrorIs(t, bad.Validate(), ErrInvalidYear)
}

func TestAccountValidation(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	for _, bad := range []string{"", "ada", "ada@example", "a da@example.com", "@example.com"} {
		assert.ErrorIs(t, ValidateEmail(bad), ErrInvalidEmail, bad)
	}
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))

	assert.ErrorIs(t, ValidatePassword("12345"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("123456"))

	assert.ErrorIs(t, ValidateName(" "), ErrEmptyName)
	assert.NoError(t, ValidateName("Ada"))
}

func TestIsValidation(t *testing.T) {
	assert.False(t, IsValidation(ErrNotFound))
	assert.True(t, IsValidation(ErrInvalidMonth))
}
