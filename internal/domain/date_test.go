package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate_NormalizesToMidnightUTC(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !d.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, d.Time)
	}

}

func TestNewDate_UsesUTCDay(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)
	d := NewDate(time.Date(2024, 1, 10, 23, 0, 0, 0, eastern))
	if d.String() != "2024-01-11" {
		t.Errorf("expected UTC day 2024-01-11, got %s", d)
	}
}

func TestParseDate_Empty(t *testing.T) {
	d, err := ParseDate("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("expected zero date, got %v", d)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, raw := range []string{"15/03/2024", "2024-01-10T23:00:00-05:00"} {
		if _, err := ParseDate(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Mfg    Date `json:"mfgDate"`
		Expiry Date `json:"expiryDate"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"mfgDate":"","expiryDate":"2026-01-31"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Mfg.IsZero() {
		t.Errorf("expected empty mfgDate to decode as zero, got %v", p.Mfg)
	}
	if p.Expiry.String() != "2026-01-31" {
		t.Errorf("expected 2026-01-31, got %s", p.Expiry)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"mfgDate":"","expiryDate":"2026-01-31"}` {
		t.Errorf("unexpected encoding: %s", out)
	}
}

func TestDate_UnmarshalNull(t *testing.T) {
	d := MustParseDate("2024-01-01")
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("expected null to reset the date, got %v", d)
	}
}

func TestDate_Ordering(t *testing.T) {
	a := MustParseDate("2024-01-01")
	b := MustParseDate("2024-06-01")
	if !a.Before(b) || !b.After(a) {
		t.Error("expected 2024-01-01 before 2024-06-01")
	}
	if !a.Equal(MustParseDate("2024-01-01")) {
		t.Error("expected equal dates")
	}
	if a.Ptr() == nil {
		t.Error("expected non-nil pointer for a set date")
	}
	if (Date{}).Ptr() != nil {
		t.Error("expected nil pointer for the zero date")
	}
}
