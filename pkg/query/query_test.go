package query

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "brave", want: "brave"},
		{in: `  "brave"  `, want: "brave"},
		{in: `it's`, want: "its"},
		{in: `a\b`, want: "ab"},
		{in: "!fire", want: "fire"},
		{in: "<=>/", want: ""},
		{in: "^fire | ice$", want: "^fire | ice$"},
		{in: " ! ", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		`  "Brave Heart"  `,
		"a ! b",
		`=/\<>'"`,
		"  spaced  out ! ",
		"unicode café !",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "sanitizing %q twice changed the result", in)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		opts     Options
		expected Params
	}{
		{
			name:  "global query with default limit",
			query: "q=brave",
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 5,
			},
		},
		{
			name:  "field queries keep canonical order",
			query: "tags=courage&name=brave&limit=3",
			opts:  DefaultOptions(),
			expected: Params{
				Fields: []FieldQuery{{Field: "name", Value: "brave"}, {Field: "tags", Value: "courage"}},
				Limit:  3,
			},
		},
		{
			name:  "values are sanitized",
			query: "q=" + url.QueryEscape(`"brave"!`),
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 5,
			},
		},
		{
			name:  "clamp caps at max",
			query: "q=brave&limit=999",
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 20,
			},
		},
		{
			name:  "clamp raises to one",
			query: "q=brave&limit=-4",
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 1,
			},
		},
		{
			name:  "clamp falls back to default on garbage",
			query: "q=brave&limit=lots",
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 5,
			},
		},
		{
			name:  "reject policy without cap",
			query: "q=brave&limit=999",
			opts:  Options{LimitPolicy: LimitReject, DefaultLimit: 5},
			expected: Params{
				Query: "brave",
				Limit: 999,
			},
		},
		{
			name:  "reject policy with cap",
			query: "q=brave&limit=999",
			opts:  Options{LimitPolicy: LimitReject, DefaultLimit: 5, MaxLimit: 50},
			expected: Params{
				Query: "brave",
				Limit: 50,
			},
		},
		{
			name:  "reject policy reads a leading number",
			query: "q=brave&limit=5abc",
			opts:  Options{LimitPolicy: LimitReject},
			expected: Params{
				Query: "brave",
				Limit: 5,
			},
		},
		{
			name:  "reject policy truncates decimals",
			query: "q=brave&limit=2.5",
			opts:  Options{LimitPolicy: LimitReject},
			expected: Params{
				Query: "brave",
				Limit: 2,
			},
		},
		{
			name:  "clamp reads a leading number",
			query: "q=brave&limit=" + url.QueryEscape(" 7 results"),
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 7,
			},
		},
		{
			name:  "clamp caps overflowing numbers",
			query: "q=brave&limit=99999999999999999999999",
			opts:  DefaultOptions(),
			expected: Params{
				Query: "brave",
				Limit: 20,
			},
		},
		{
			name:  "operators preserved",
			query: "q=" + url.QueryEscape(" !fire =iron 'ave ") + "&tags=" + url.QueryEscape("^fir"),
			opts:  Options{LimitPolicy: LimitReject, PreserveOperators: true},
			expected: Params{
				Query:  "!fire =iron 'ave",
				Fields: []FieldQuery{{Field: "tags", Value: "^fir"}},
				Limit:  5,
			},
		},
		{
			name:  "length validation disabled",
			query: "q=b",
			opts:  Options{LimitPolicy: LimitReject},
			expected: Params{
				Query: "b",
				Limit: 5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			params, err := Parse(values, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestParseErrors(t *testing.T) {
	long := strings.Repeat("x", MaxQueryLength+1)

	tests := []struct {
		name    string
		query   string
		opts    Options
		target  any
		message string
	}{
		{
			name:    "no parameters",
			query:   "",
			opts:    DefaultOptions(),
			target:  new(*MissingParameterError),
			message: "At least one search parameter is required",
		},
		{
			name:    "only operators",
			query:   "q=" + url.QueryEscape("!!"),
			opts:    DefaultOptions(),
			target:  new(*MissingParameterError),
			message: "At least one search parameter is required",
		},
		{
			name:    "too short",
			query:   "name=x",
			opts:    DefaultOptions(),
			target:  new(*ValidationError),
			message: "name must be at least 2 characters long",
		},
		{
			name:    "too long",
			query:   "description=" + long,
			opts:    DefaultOptions(),
			target:  new(*ValidationError),
			message: "description must not exceed 50 characters",
		},
		{
			name:    "reject non numeric limit",
			query:   "q=brave&limit=abc",
			opts:    Options{LimitPolicy: LimitReject},
			target:  new(*InvalidLimitError),
			message: "Invalid limit parameter: must be a positive number",
		},
		{
			name:    "reject zero limit",
			query:   "q=brave&limit=0",
			opts:    Options{LimitPolicy: LimitReject},
			target:  new(*InvalidLimitError),
			message: "Invalid limit parameter: must be a positive number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = Parse(values, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target), "unexpected error type %T", err)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, IsClientError(err))
		})
	}
}

func TestParseQueryOnly(t *testing.T) {
	q, err := ParseQueryOnly(url.Values{"q": {" iron "}})
	require.NoError(t, err)
	assert.Equal(t, "iron", q)

	_, err = ParseQueryOnly(url.Values{})
	require.Error(t, err)
	assert.Equal(t, "Missing query param: q", err.Error())
}

func TestParseLimitPolicy(t *testing.T) {
	p, err := ParseLimitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LimitClamp, p)

	p, err = ParseLimitPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, LimitReject, p)

	_, err = ParseLimitPolicy("truncate")
	assert.Error(t, err)
}

func TestEcho(t *testing.T) {
	p := Params{Query: "brave", Fields: []FieldQuery{{Field: "tags", Value: "courage"}}, Limit: 5}
	assert.Equal(t, map[string]string{"q": "brave", "tags": "courage"}, p.Echo())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(&UnknownFieldError{Field: "color"}))
	assert.False(t, IsClientError(errors.New("boom")))
}
