// Package period canonicalizes reporting-period strings into the YYYY-Qn
// form used throughout the analysis pipeline.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidPeriodFormat is returned when a period string is not canonical YYYY-Qn.
var ErrInvalidPeriodFormat = errors.New("invalid period format, expected YYYY-Qn")

// Period is a (year, quarter) value. Quarter is always in 1..4 for values
// produced by Parse.
type Period struct {
	Year    int
	Quarter int
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-Q%d", p.Year, p.Quarter)
}

// Previous returns the preceding quarter, wrapping Q1 to Q4 of the prior year.
func (p Period) Previous() Period {
	if p.Quarter <= 1 {
		return Period{Year: p.Year - 1, Quarter: 4}
	}
	return Period{Year: p.Year, Quarter: p.Quarter - 1}
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Quarter < other.Quarter
}

var (
	reCanonical = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	reQuarterYr = regexp.MustCompile(`(?i)^Q([1-4])\s+(\d{4})$`)
	reYrQuarter = regexp.MustCompile(`(?i)^(\d{4})\s+Q([1-4])$`)
	reYearMonth = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// Parse converts a canonical YYYY-Qn string into a Period.
func Parse(s string) (Period, error) {
	m := reCanonical.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodFormat, s)
	}
	year, _ := strconv.Atoi(m[1])
	quarter, _ := strconv.Atoi(m[2])
	return Period{Year: year, Quarter: quarter}, nil
}

// Normalize canonicalizes heterogeneous period strings into YYYY-Qn.
// Accepted inputs: "YYYY-Qn" (pass-through), "Qn YYYY" / "YYYY Qn"
// (case-insensitive), and "YYYY-MM" (month mapped to its quarter).
//
// Unparseable input is returned unchanged with ok=false. Callers must
// tolerate a non-canonical string downstream; normalization is best-effort
// by contract, not a validation gate.
func Normalize(input string) (string, bool) {
	s := strings.TrimSpace(input)

	if reCanonical.MatchString(s) {
		return s, true
	}
	if m := reQuarterYr.FindStringSubmatch(s); m != nil {
		return m[2] + "-Q" + m[1], true
	}
	if m := reYrQuarter.FindStringSubmatch(s); m != nil {
		return m[1] + "-Q" + m[2], true
	}
	if m := reYearMonth.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			quarter := (month + 2) / 3
			return fmt.Sprintf("%s-Q%d", m[1], quarter), true
		}
	}
	return input, false
}

// PreviousQuarter returns the quarter preceding a canonical YYYY-Qn period,
// wrapping Q1 to Q4 of the prior year. Unlike Normalize it rejects
// non-canonical input outright.
func PreviousQuarter(s string) (string, error) {
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	return p.Previous().String(), nil
}
