// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/core"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
	errInvalidJSON  = errors.New("invalid JSON body")
	errInvalidID    = errors.New("invalid id")
)

// decodeJSON reads a single JSON value from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage return, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// ParseMonthParams reads ?month=&year=. Both must be present to filter;
// otherwise the result is nil and every month is listed.
func ParseMonthParams(query url.Values) (*core.Period, error) {
	monthStr := strings.TrimSpace(query.Get("month"))
	yearStr := strings.TrimSpace(query.Get("year"))
	if monthStr == "" || yearStr == "" {
		return nil, nil
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return nil, core.ErrInvalidMonth
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return nil, core.ErrInvalidYear
	}
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// flexString accepts a JSON string or number and keeps its text.
// Amounts arrive both ways from clients.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a number or string: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// Int parses the text as a base-10 integer; blank yields ok=false.
func (f flexString) Int() (n int, ok bool, err error) {
	if f == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(string(f))
	return n, true, err
}
