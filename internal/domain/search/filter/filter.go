package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of filter conditions in one query.
const MaxConditions = 16

// MaxValueLength is the maximum length of a raw filter value.
const MaxValueLength = 256

// rangeSep separates the bounds of a range value: "7.5..9", "7.5..", "..9".
const rangeSep = ".."

// Condition is a single filter clause: either an exact match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	if len(match) > MaxValueLength {
		return Condition{}, fmt.Errorf("match value for key %q too long (max %d)", key, MaxValueLength)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Value renders the condition value in canonical form.
// Equal conditions always render identically: "7.5..9" and "7.50..9.0" both become "7.5..9".
func (c Condition) Value() string {
	if c.rangeExpr != nil {
		return c.rangeExpr.String()
	}
	return c.match
}

// Range is a numeric range with inclusive, optional bounds.
type Range struct {
	min *float64
	max *float64
}

// NewRangeFilter validates and creates a Range. At least one bound is required.
func NewRangeFilter(minBound, maxBound *float64) (Range, error) {
	if minBound == nil && maxBound == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	for _, b := range []*float64{minBound, maxBound} {
		if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
			return Range{}, fmt.Errorf("range boundary must be a finite number")
		}
	}
	if minBound != nil && maxBound != nil && *minBound > *maxBound {
		return Range{}, fmt.Errorf("range minimum %g exceeds maximum %g", *minBound, *maxBound)
	}
	return Range{min: minBound, max: maxBound}, nil
}

// ParseRange parses "min..max" where either side may be empty.
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(s, rangeSep)
	if !ok {
		return Range{}, fmt.Errorf("range %q must look like min..max", s)
	}
	minBound, err := parseBound(lo)
	if err != nil {
		return Range{}, err
	}
	maxBound, err := parseBound(hi)
	if err != nil {
		return Range{}, err
	}
	return NewRangeFilter(minBound, maxBound)
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range boundary %q", s)
	}
	return &f, nil
}

// Min returns the inclusive lower bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the inclusive upper bound.
func (r Range) Max() *float64 { return r.max }

// String renders the range as "min..max" with shortest float formatting.
func (r Range) String() string {
	var b strings.Builder
	if r.min != nil {
		b.WriteString(strconv.FormatFloat(*r.min, 'g', -1, 64))
	}
	b.WriteString(rangeSep)
	if r.max != nil {
		b.WriteString(strconv.FormatFloat(*r.max, 'g', -1, 64))
	}
	return b.String()
}
