package testgen

import (
	"fmt"
	"math/rand"
	"time"

	"rulegen/internal/schema"
)

// Synthesizer produces representative sample values per data type. It is
// deterministic for a fixed seed: the same catalog walked in the same order
// yields byte-identical values run over run.
type Synthesizer struct {
	rnd *rand.Rand
}

// NewSynthesizer returns a synthesizer seeded with seed.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rnd: rand.New(rand.NewSource(seed))}
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05.000"
)

// Positive returns a rule-satisfying sample value for t. Values respect the
// basic domain shape per type: dates are valid calendar dates, Long is an
// integer, String is non-empty text.
func (s *Synthesizer) Positive(t schema.DataType) any {
	switch t {
	case schema.TypeDate:
		return s.randomTime().Format(dateLayout)
	case schema.TypeDateTime:
		return s.randomTime().Format(dateTimeLayout)
	case schema.TypeLong:
		return s.rnd.Int63n(1_000_000)
	case schema.TypeNumeric:
		// Two decimal places keeps the value readable in reports.
		return float64(s.rnd.Int63n(1_000_000)) / 100
	case schema.TypeBoolean:
		return s.rnd.Intn(2) == 0
	default:
		return fmt.Sprintf("value_%06d", s.rnd.Intn(1_000_000))
	}
}

// WrongType returns a value whose shape intentionally violates t. For
// String the violation is a non-string; for everything else a non-parsable
// string.
func (s *Synthesizer) WrongType(t schema.DataType) any {
	switch t {
	case schema.TypeString:
		return s.rnd.Int63n(1_000_000)
	case schema.TypeBoolean:
		return "maybe"
	default:
		return fmt.Sprintf("not-a-%s", foldType(t))
	}
}

// MalformedDate returns a syntactically invalid date string. The month/day
// components are deliberately out of range so no lenient parser accepts it.
func (s *Synthesizer) MalformedDate() string {
	return fmt.Sprintf("%04d-%02d-%02d", 2000+s.rnd.Intn(50), 13+s.rnd.Intn(80), 32+s.rnd.Intn(60))
}

// Boundary returns a boundary-value positive sample for numeric types and
// ok=false for everything else.
func (s *Synthesizer) Boundary(t schema.DataType) (any, bool) {
	switch t {
	case schema.TypeLong:
		return int64(0), true
	case schema.TypeNumeric:
		return float64(0), true
	default:
		return nil, false
	}
}

// Negative returns a rule-violating sample for r, violating the strongest
// applicable constraint: nil for a required field, a wrong-shaped value for
// a typed one.
func (s *Synthesizer) Negative(r *schema.FieldRule) any {
	if r.Mandatory {
		return nil
	}
	return s.WrongType(r.DataType)
}

func (s *Synthesizer) randomTime() time.Time {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// Up to ten years of spread, second resolution.
	return base.Add(time.Duration(s.rnd.Int63n(10*365*24*3600)) * time.Second)
}

func foldType(t schema.DataType) string {
	switch t {
	case schema.TypeDate:
		return "date"
	case schema.TypeDateTime:
		return "datetime"
	case schema.TypeLong:
		return "long"
	case schema.TypeNumeric:
		return "numeric"
	default:
		return "string"
	}
}
