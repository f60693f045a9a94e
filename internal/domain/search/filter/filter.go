package filter

import (
	"fmt"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// Result count bounds.
const (
	DefaultTopK = 25
	MinTopK     = 1
	MaxTopK     = 50
)

// Level restricts matches to a tier of the exam.
type Level string

// Level constants. Values match the "level" metadata stored with each question.
const (
	LevelAll        Level = "all"
	LevelHigher     Level = "h"
	LevelFoundation Level = "f"
)

// ParseLevel accepts the stored code or the spelled-out tier. Empty means all.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "all":
		return LevelAll, nil
	case "h", "higher":
		return LevelHigher, nil
	case "f", "foundation":
		return LevelFoundation, nil
	default:
		return "", fmt.Errorf("%w: unknown level %q", domain.ErrInvalidInput, s)
	}
}

// Calculator restricts matches by whether a calculator is allowed.
type Calculator string

// Calculator constants.
const (
	CalculatorAll     Calculator = "all"
	CalculatorAllowed Calculator = "calculator"
	CalculatorNone    Calculator = "non-calculator"
)

// ParseCalculator parses a calculator requirement. Empty means all.
func ParseCalculator(s string) (Calculator, error) {
	switch Calculator(s) {
	case "", CalculatorAll:
		return CalculatorAll, nil
	case CalculatorAllowed, CalculatorNone:
		return Calculator(s), nil
	default:
		return "", fmt.Errorf("%w: unknown calculator filter %q", domain.ErrInvalidInput, s)
	}
}

// Backend selects which vector index answers the query.
type Backend string

// Backend constants.
const (
	BackendPrimary   Backend = "method1"
	BackendSecondary Backend = "method2"
)

// ParseBackend parses a backend name. Empty means the primary index.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendPrimary:
		return BackendPrimary, nil
	case BackendSecondary:
		return BackendSecondary, nil
	default:
		return "", fmt.Errorf("%w: unknown search backend %q", domain.ErrInvalidInput, s)
	}
}

// Filters is the validated filter state of a search.
type Filters struct {
	level      Level
	calculator Calculator
	topK       int
	backend    Backend
}

// Default returns no restrictions, 25 results, primary backend.
func Default() Filters {
	return Filters{
		level:      LevelAll,
		calculator: CalculatorAll,
		topK:       DefaultTopK,
		backend:    BackendPrimary,
	}
}

// New validates raw filter values. topK 0 selects the default.
func New(level, calculator string, topK int, backend string) (Filters, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return Filters{}, err
	}
	c, err := ParseCalculator(calculator)
	if err != nil {
		return Filters{}, err
	}
	b, err := ParseBackend(backend)
	if err != nil {
		return Filters{}, err
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < MinTopK || topK > MaxTopK {
		return Filters{}, fmt.Errorf("%w: result count must be between %d and %d, got %d",
			domain.ErrInvalidInput, MinTopK, MaxTopK, topK)
	}
	return Filters{level: l, calculator: c, topK: topK, backend: b}, nil
}

// Level returns the level restriction.
func (f Filters) Level() Level { return f.level }

// Calculator returns the calculator restriction.
func (f Filters) Calculator() Calculator { return f.calculator }

// TopK returns the requested result count.
func (f Filters) TopK() int { return f.topK }

// Backend returns the selected vector index.
func (f Filters) Backend() Backend { return f.backend }

// Metadata builds the structured filter sent to the vector service.
// Returns nil when nothing is restricted.
func (f Filters) Metadata() map[string]any {
	m := make(map[string]any, 2)
	if f.level != LevelAll && f.level != "" {
		m["level"] = string(f.level)
	}
	switch f.calculator {
	case CalculatorAllowed:
		m["paper_number"] = map[string]any{"$in": []string{"2", "3"}}
	case CalculatorNone:
		m["paper_number"] = "1"
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
