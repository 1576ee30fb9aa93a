// Package query turns raw HTTP query strings into validated, sanitized search
// parameters.
//
// Parsing runs in a fixed order: raw values are length-checked (when the
// endpoint asks for it), then sanitized, then the limit is resolved under the
// endpoint's policy, and finally the request is rejected if no search
// parameter survived.
package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// ParamQuery is the global free-text parameter.
	ParamQuery = "q"
	// ParamLimit caps the number of returned results.
	ParamLimit = "limit"

	MinQueryLength = 2
	MaxQueryLength = 50

	DefaultLimit = 5
	MaxLimit     = 20
)

// FieldParams lists the field-specific parameters in the order they are
// searched and merged.
var FieldParams = []string{"name", "description", "tags", "effects"}

// LimitPolicy selects how an out-of-range limit is handled.
type LimitPolicy string

const (
	// LimitClamp silently clamps the limit to [1, max]. Unparseable values
	// fall back to the default.
	LimitClamp LimitPolicy = "clamp"
	// LimitReject fails with InvalidLimitError on non-numeric or non-positive
	// values and only caps when a max is configured.
	LimitReject LimitPolicy = "reject"
)

// ParseLimitPolicy validates a policy name from configuration.
func ParseLimitPolicy(s string) (LimitPolicy, error) {
	switch p := LimitPolicy(s); p {
	case LimitClamp, LimitReject:
		return p, nil
	case "":
		return LimitClamp, nil
	default:
		return "", fmt.Errorf("unknown limit policy %q (want %q or %q)", s, LimitClamp, LimitReject)
	}
}

// FieldQuery is one field-specific query value.
type FieldQuery struct {
	Field string
	Value string
}

// Params holds the sanitized parameters of one search request.
type Params struct {
	// Query is the global free-text query (q).
	Query string

	// Fields holds the non-empty field-specific queries in FieldParams order.
	Fields []FieldQuery

	// Limit is the resolved result cap.
	Limit int
}

// Empty reports whether no search parameter is set.
func (p Params) Empty() bool {
	return p.Query == "" && len(p.Fields) == 0
}

// Echo returns the parameters as a map for inclusion in responses. Absent
// parameters are omitted.
func (p Params) Echo() map[string]string {
	out := make(map[string]string, len(p.Fields)+1)
	if p.Query != "" {
		out[ParamQuery] = p.Query
	}
	for _, f := range p.Fields {
		out[f.Field] = f.Value
	}
	return out
}

// Options configures Parse for one endpoint.
type Options struct {
	// ValidateLengths enables the MinQueryLength/MaxQueryLength checks.
	ValidateLengths bool

	LimitPolicy  LimitPolicy
	DefaultLimit int
	// MaxLimit caps the limit. Zero means no cap, which is only honored by
	// LimitReject; LimitClamp falls back to the package MaxLimit.
	MaxLimit int

	// PreserveOperators skips Sanitize so extended-syntax operators such as
	// ! = and ' reach the index. Values are still trimmed.
	PreserveOperators bool
}

// DefaultOptions mirrors the clamping trait endpoint.
func DefaultOptions() Options {
	return Options{
		ValidateLengths: true,
		LimitPolicy:     LimitClamp,
		DefaultLimit:    DefaultLimit,
		MaxLimit:        MaxLimit,
	}
}

// Parse validates and sanitizes the search parameters in values.
//
// Supported parameters:
//   - q: global free-text query
//   - name, description, tags, effects: field-specific queries
//   - limit: result cap, resolved under opts.LimitPolicy
//
// Returns a *ValidationError, *InvalidLimitError or *MissingParameterError
// when the request must be rejected.
func Parse(values map[string][]string, opts Options) (Params, error) {
	raw := make(map[string]string, len(FieldParams)+1)
	for _, key := range append([]string{ParamQuery}, FieldParams...) {
		if v := values[key]; len(v) > 0 {
			raw[key] = v[0]
		}
	}

	if opts.ValidateLengths {
		if err := ValidateLengths(raw); err != nil {
			return Params{}, err
		}
	}

	clean := Sanitize
	if opts.PreserveOperators {
		clean = strings.TrimSpace
	}

	var params Params
	params.Query = clean(raw[ParamQuery])
	for _, key := range FieldParams {
		if v := clean(raw[key]); v != "" {
			params.Fields = append(params.Fields, FieldQuery{Field: key, Value: v})
		}
	}

	limit, err := ResolveLimit(first(values[ParamLimit]), opts)
	if err != nil {
		return Params{}, err
	}
	params.Limit = limit

	if params.Empty() {
		return Params{}, &MissingParameterError{}
	}

	return params, nil
}

// ParseQueryOnly extracts the sanitized q parameter for endpoints that accept
// nothing else.
func ParseQueryOnly(values map[string][]string) (string, error) {
	q := Sanitize(first(values[ParamQuery]))
	if q == "" {
		return "", &MissingParameterError{Param: ParamQuery}
	}
	return q, nil
}

// ValidateLengths checks every non-empty parameter against the length bounds.
// Parameters are checked in q, name, description, tags, effects order so the
// reported parameter is stable.
func ValidateLengths(raw map[string]string) error {
	for _, key := range append([]string{ParamQuery}, FieldParams...) {
		v, ok := raw[key]
		if !ok || v == "" {
			continue
		}
		n := utf8.RuneCountInString(v)
		if n < MinQueryLength {
			return &ValidationError{Param: key, Message: fmt.Sprintf("must be at least %d characters long", MinQueryLength)}
		}
		if n > MaxQueryLength {
			return &ValidationError{Param: key, Message: fmt.Sprintf("must not exceed %d characters", MaxQueryLength)}
		}
	}
	return nil
}

// ResolveLimit turns the raw limit value into the effective result cap.
func ResolveLimit(raw string, opts Options) (int, error) {
	def := opts.DefaultLimit
	if def <= 0 {
		def = DefaultLimit
	}

	switch opts.LimitPolicy {
	case LimitReject:
		if raw == "" {
			return capLimit(def, opts.MaxLimit), nil
		}
		n, err := leadingInt(raw)
		if err != nil || n < 1 {
			return 0, &InvalidLimitError{Value: raw}
		}
		return capLimit(n, opts.MaxLimit), nil

	default:
		upper := opts.MaxLimit
		if upper <= 0 {
			upper = MaxLimit
		}
		n := def
		if raw != "" {
			if parsed, err := leadingInt(raw); err == nil {
				n = parsed
			}
		}
		return min(max(1, n), upper), nil
	}
}

// leadingInt reads the optionally signed decimal number at the start of s,
// after leading whitespace, and ignores whatever follows it: "5abc" is 5 and
// "2.5" is 2.
func leadingInt(s string) (int, error) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("no leading digits in %q", s)
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	return n, err
}

func capLimit(n, upper int) int {
	if upper > 0 && n > upper {
		return upper
	}
	return n
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
