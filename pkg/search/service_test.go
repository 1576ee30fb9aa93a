package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/index"
	"github.com/zoldy/traitsearch/pkg/query"
)

func testRecords() []catalog.Record {
	return []catalog.Record{
		{Name: "Stone Body", Tags: []string{"defense"}, Description: "fire proof skin"},
		{Name: "Brave Heart", Tags: []string{"courage", "morale"}, Description: "Never retreats."},
		{Name: "Fire Walker", Tags: []string{"movement"}, Description: "Walks over embers."},
		{Name: "Xxalpha", Tags: []string{"test"}, Description: "first"},
		{Name: "Xxbeta", Tags: []string{"test"}, Description: "second"},
		{Name: "Xxgamma", Tags: []string{"test"}, Description: "third"},
	}
}

func newTestService(t *testing.T, fields ...index.Field) *Service {
	t.Helper()

	cat, err := catalog.New("test", testRecords())
	require.NoError(t, err)

	svc, err := Build(cat, index.Options{Threshold: index.DefaultThreshold, IgnoreLocation: true}, fields...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func resultNames(records []catalog.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestSearchGlobalQuery(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), query.Params{Query: "brave", Limit: 5})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Total, 1)
	require.NotEmpty(t, res.Records)
	assert.Equal(t, "Brave Heart", res.Records[0].Name)
	assert.Equal(t, map[string]string{"q": "brave"}, res.Params)
}

func TestSearchLimit(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), query.Params{
		Fields: []query.FieldQuery{{Field: "name", Value: "xx"}},
		Limit:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Returned)
	assert.Len(t, res.Records, 1)
	assert.GreaterOrEqual(t, res.Total, 2)
}

func TestSearchDefaultLimit(t *testing.T) {
	cat, err := catalog.New("many", func() []catalog.Record {
		var recs []catalog.Record
		for i := 0; i < 8; i++ {
			recs = append(recs, catalog.Record{Name: fmt.Sprintf("Xx%c", 'a'+i)})
		}
		return recs
	}())
	require.NoError(t, err)

	svc, err := Build(cat, index.Options{Threshold: index.DefaultThreshold})
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Search(context.Background(), query.Params{Query: "xx"})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, query.DefaultLimit, res.Returned)
	// Equal scores keep catalog order.
	assert.Equal(t, []string{"Xxa", "Xxb", "Xxc", "Xxd", "Xxe"}, resultNames(res.Records))
}

func TestSearchFieldResultsComeFirst(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), query.Params{
		Query:  "fire",
		Fields: []query.FieldQuery{{Field: "tags", Value: "courage"}},
		Limit:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Brave Heart", "Fire Walker", "Stone Body"}, resultNames(res.Records))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, map[string]string{"q": "fire", "tags": "courage"}, res.Params)
}

func TestSearchDeduplicates(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), query.Params{
		Query: "fire",
		Fields: []query.FieldQuery{
			{Field: "name", Value: "fire"},
			{Field: "description", Value: "fire"},
		},
		Limit: 20,
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range res.Records {
		assert.False(t, seen[r.Name], "duplicate result %q", r.Name)
		seen[r.Name] = true
	}
	assert.Equal(t, res.Total, res.Returned)
}

func TestSearchScopedViewCoversAllRequestedFields(t *testing.T) {
	svc := newTestService(t)

	// "courage" only appears in tags, but because tags is also requested the
	// name value is searched against both fields.
	res, err := svc.Search(context.Background(), query.Params{
		Fields: []query.FieldQuery{
			{Field: "name", Value: "courage"},
			{Field: "tags", Value: "qqqqqq"},
		},
		Limit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Brave Heart"}, resultNames(res.Records))

	// Scoped to name alone it does not match.
	res, err = svc.Search(context.Background(), query.Params{
		Fields: []query.FieldQuery{{Field: "name", Value: "courage"}},
		Limit:  5,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Total)
}

func TestSearchUnknownField(t *testing.T) {
	svc := newTestService(t,
		index.Field{Name: index.FieldName, Weight: 1},
		index.Field{Name: index.FieldDescription, Weight: 1},
		index.Field{Name: index.FieldTags, Weight: 1},
	)

	_, err := svc.Search(context.Background(), query.Params{
		Fields: []query.FieldQuery{{Field: "effects", Value: "heal"}},
		Limit:  5,
	})
	require.Error(t, err)

	var unknown *query.UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "effects", unknown.Field)
	assert.True(t, query.IsClientError(err))
}

func TestSearchEmptyParams(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Search(context.Background(), query.Params{Limit: 5})
	var missing *query.MissingParameterError
	assert.True(t, errors.As(err, &missing))
}

func TestSearchInvariants(t *testing.T) {
	svc := newTestService(t)

	queries := []query.Params{
		{Query: "fire", Limit: 1},
		{Query: "xx", Limit: 2},
		{Query: "test", Limit: 20},
		{Query: "zzzzzz", Limit: 5},
		{Fields: []query.FieldQuery{{Field: "description", Value: "first"}}, Limit: 3},
	}

	for _, p := range queries {
		t.Run(fmt.Sprintf("%s/%d", p.Query, p.Limit), func(t *testing.T) {
			res, err := svc.Search(context.Background(), p)
			require.NoError(t, err)

			assert.LessOrEqual(t, res.Returned, res.Total)
			assert.LessOrEqual(t, res.Returned, p.Limit)
			assert.Len(t, res.Records, res.Returned)
			assert.NotNil(t, res.Records)

			again, err := svc.Search(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, res, again)
		})
	}
}

func TestSearchAll(t *testing.T) {
	svc := newTestService(t)

	records, err := svc.SearchAll(context.Background(), "xx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Xxalpha", "Xxbeta", "Xxgamma"}, resultNames(records))

	records, err = svc.SearchAll(context.Background(), "nothing-matches-this")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
