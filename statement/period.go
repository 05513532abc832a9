package statement

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD - Fiscal period identifier
// =============================================================================

// Period identifies one fiscal reporting period.
//
// The raw identifier is a fiscal year with an optional sub-period fraction
// holding the closing month:
//   - "2024.12" -> fiscal year 2024 closing in December
//   - "2024.3"  -> fiscal year 2024 closing in March
//   - "2024"    -> fiscal year 2024, closing month not encoded
//
// Periods are immutable values and safe to use as map keys.
type Period struct {
	Year  int
	Month int // 0 when the raw identifier carries no sub-period
}

// DefaultClosingMonth is assumed for labels when the identifier has no sub-period.
const DefaultClosingMonth = 12

// ParsePeriod parses a raw period identifier such as "2024.12" or "2024".
// A zero fraction ("2024.0", as written by spreadsheet exports) means no sub-period.
func ParsePeriod(raw string) (Period, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Period{}, fmt.Errorf("%w: empty identifier", ErrInvalidPeriod)
	}

	yearPart, monthPart, hasFraction := strings.Cut(s, ".")
	year, err := strconv.Atoi(yearPart)
	if err != nil || year <= 0 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	if !hasFraction {
		return Period{Year: year}, nil
	}

	month, err := strconv.Atoi(monthPart)
	if err != nil || month < 0 || month > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return Period{Year: year, Month: month}, nil
}

// MustParsePeriod is ParsePeriod for literals in tests and fixtures.
func MustParsePeriod(raw string) Period {
	p, err := ParsePeriod(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Compare orders periods by year, then sub-period.
// Returns -1, 0 or +1. Distinct periods never compare equal.
func (p Period) Compare(other Period) int {
	switch {
	case p.Year < other.Year:
		return -1
	case p.Year > other.Year:
		return 1
	case p.Month < other.Month:
		return -1
	case p.Month > other.Month:
		return 1
	default:
		return 0
	}
}

func (p Period) Before(other Period) bool { return p.Compare(other) < 0 }
func (p Period) After(other Period) bool  { return p.Compare(other) > 0 }
func (p Period) Equal(other Period) bool  { return p.Compare(other) == 0 }
func (p Period) IsZero() bool             { return p.Year == 0 }

// ClosingMonth returns the encoded month, or DefaultClosingMonth when absent.
func (p Period) ClosingMonth() int {
	if p.Month == 0 {
		return DefaultClosingMonth
	}
	return p.Month
}

// String returns the raw identifier form ("2024.12" or "2024").
func (p Period) String() string {
	if p.Month == 0 {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%d.%d", p.Year, p.Month)
}

// Label returns the human-readable label, see FormatLabel.
func (p Period) Label() string { return FormatLabel(p) }

// FormatLabel renders "<year>年<month>月期". Identifiers without a sub-period
// render with the default December year end.
func FormatLabel(p Period) string {
	return fmt.Sprintf("%d年%d月期", p.Year, p.ClosingMonth())
}

// MarshalText encodes the raw identifier so periods travel as JSON strings.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Labels formats a slice of periods.
func Labels(periods []Period) []string {
	labels := make([]string, len(periods))
	for i, p := range periods {
		labels[i] = p.Label()
	}
	return labels
}
