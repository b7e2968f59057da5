package filter

import (
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
	}{
		{"min only", floatPtr(1), nil},
		{"max only", nil, floatPtr(10)},
		{"both", floatPtr(0), floatPtr(10)},
		{"equal bounds", floatPtr(5), floatPtr(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.min, tt.max)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.Min() == nil) != (tt.min == nil) {
				t.Error("Min() mismatch")
			}
			if (r.Max() == nil) != (tt.max == nil) {
				t.Error("Max() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_NoBoundary(t *testing.T) {
	_, err := NewRangeFilter(nil, nil)
	if err == nil {
		t.Fatal("expected error for no boundary")
	}
	if !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error = %q", err)
	}
}

func TestNewRangeFilter_Inverted(t *testing.T) {
	_, err := NewRangeFilter(floatPtr(9), floatPtr(1))
	if err == nil {
		t.Fatal("expected error for min > max")
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7.5..9", "7.5..9"},
		{"7.50..9.0", "7.5..9"},
		{"7.5..", "7.5.."},
		{"..9", "..9"},
		{" 1 .. 2 ", "1..2"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			r, err := ParseRange(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, in := range []string{"", "7.5", "..", "a..b", "NaN..1", "1..Inf", "9..1"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseRange(in); err == nil {
				t.Fatalf("expected error for %q", in)
			}
		})
	}
}

// --- Condition tests ---

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("genre", "sci-fi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected match condition")
	}
	if c.Key() != "genre" || c.Match() != "sci-fi" || c.Value() != "sci-fi" {
		t.Errorf("unexpected condition: %+v", c)
	}
}

func TestNewMatch_Invalid(t *testing.T) {
	if _, err := NewMatch("", "x"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("genre", ""); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := NewMatch("genre", strings.Repeat("a", MaxValueLength+1)); err == nil {
		t.Error("expected error for long value")
	}
}

func TestNewRange(t *testing.T) {
	r, _ := NewRangeFilter(floatPtr(7), nil)
	c, err := NewRange("imdb_rating", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsRange() || c.IsMatch() {
		t.Error("expected range condition")
	}
	if c.Value() != "7.." {
		t.Errorf("Value() = %q", c.Value())
	}
	if _, err := NewRange("", r); err == nil {
		t.Error("expected error for empty key")
	}
}
