// Package outputparser recovers a typed document from free-form model output.
package outputparser

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// StrategyFunc turns raw model text into a validated document.
type StrategyFunc[T any] func(raw string) (T, error)

type Strategy[T any] struct {
	Name string
	Fn   StrategyFunc[T]
}

// Validator checks a decoded document against its schema rules.
type Validator[T any] func(*T) error

type Result[T any] struct {
	Value    T
	Strategy string
}

type Parser[T any] struct {
	strategies []Strategy[T]
}

var (
	fencedBlock   = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	greedyObject  = regexp.MustCompile(`\{[\s\S]*\}`)
	leadingFence  = regexp.MustCompile("^```\\w*\\n?")
	trailingFence = regexp.MustCompile("\\n?```$")

	errNoMatch = errors.New("no candidate JSON found")
)

// New returns a parser running the direct, fenced-block, brace-span and fence-strip
// strategies in that order.
func New[T any](validate Validator[T]) *Parser[T] {
	return NewWithStrategies(
		Strategy[T]{Name: "direct", Fn: Direct(validate)},
		Strategy[T]{Name: "fenced_block", Fn: FencedBlock(validate)},
		Strategy[T]{Name: "brace_span", Fn: BraceSpan(validate)},
		Strategy[T]{Name: "strip_fences", Fn: StripFences(validate)},
	)
}

func NewWithStrategies[T any](strategies ...Strategy[T]) *Parser[T] {
	return &Parser[T]{strategies: strategies}
}

// Parse checks for truncation first, then tries each strategy until one succeeds.
func (p *Parser[T]) Parse(raw string) (Result[T], error) {
	if reason := DetectTruncation(raw); reason != "" {
		return Result[T]{}, &TruncatedOutputError{Reason: reason, Raw: preview(raw)}
	}

	var lastErr error
	lastName := ""
	for _, s := range p.strategies {
		v, err := s.Fn(raw)
		if err == nil {
			return Result[T]{Value: v, Strategy: s.Name}, nil
		}
		lastErr, lastName = err, s.Name
	}
	if lastErr == nil {
		lastErr = errNoMatch
	}

	return Result[T]{}, &ParseError{Strategy: lastName, Err: lastErr, Raw: preview(raw)}
}

// Direct decodes the whole trimmed text.
func Direct[T any](validate Validator[T]) StrategyFunc[T] {
	return func(raw string) (T, error) {
		return decode(strings.TrimSpace(raw), validate)
	}
}

// FencedBlock decodes the first ``` or ```json block.
func FencedBlock[T any](validate Validator[T]) StrategyFunc[T] {
	return func(raw string) (T, error) {
		m := fencedBlock.FindStringSubmatch(raw)
		if m == nil {
			var zero T
			return zero, errNoMatch
		}
		return decode(m[1], validate)
	}
}

// BraceSpan decodes everything from the first '{' to the last '}'.
func BraceSpan[T any](validate Validator[T]) StrategyFunc[T] {
	return func(raw string) (T, error) {
		span := greedyObject.FindString(raw)
		if span == "" {
			var zero T
			return zero, errNoMatch
		}
		return decodeGeneric(span, validate)
	}
}

// StripFences removes a leading ```lang and trailing ``` marker.
func StripFences[T any](validate Validator[T]) StrategyFunc[T] {
	return func(raw string) (T, error) {
		cleaned := strings.TrimSpace(raw)
		if strings.HasPrefix(cleaned, "```") {
			cleaned = leadingFence.ReplaceAllString(cleaned, "")
			cleaned = trailingFence.ReplaceAllString(cleaned, "")
		}
		return decodeGeneric(cleaned, validate)
	}
}

func decode[T any](text string, validate Validator[T]) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		var zero T
		return zero, err
	}
	if validate != nil {
		if err := validate(&out); err != nil {
			var zero T
			return zero, err
		}
	}
	return out, nil
}

// decodeGeneric goes through an untyped value first so syntax and schema errors surface separately.
func decodeGeneric[T any](text string, validate Validator[T]) (T, error) {
	var zero T
	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return zero, err
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return zero, err
	}
	return decode(string(normalized), validate)
}
