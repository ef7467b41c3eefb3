package storage

import (
	"fmt"
	"time"

	"spendwise/internal/core"
)

// dbTime scans timestamps stored as TIMESTAMPTZ (postgres) or RFC 3339 text (sqlite).
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan time: cannot parse %q", s)
}

// dbDate scans calendar dates stored as DATE (postgres) or YYYY-MM-DD text (sqlite).
type dbDate struct {
	core.Date
}

func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = core.NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

func (d *dbDate) parse(s string) error {
	parsed, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date: cannot parse %q", s)
	}
	d.Date = parsed
	return nil
}
