package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day carried as midnight UTC. The zero value means "no date"
// and is encoded as an empty string.
type Date struct {
	time.Time
}

// NewDate keeps the UTC calendar day of t.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(raw string) (Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Date{}, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return NewDate(parsed), nil
}

func MustParseDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// Ptr returns nil for the zero date, for nullable columns.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
