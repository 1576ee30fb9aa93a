package search

import (
	"context"
	"fmt"

	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/index"
	"github.com/zoldy/traitsearch/pkg/log"
	"github.com/zoldy/traitsearch/pkg/query"
)

var logger = log.ForService("search")

// Results is the payload of a weighted search.
type Results struct {
	// Total is the number of distinct matching records before the limit.
	Total int `json:"total"`

	// Returned is the number of records in Records.
	Returned int `json:"returned"`

	// Params echoes the sanitized search parameters. Absent parameters are
	// omitted.
	Params map[string]string `json:"params"`

	// Records holds the matching records, best first, capped at the limit.
	Records []catalog.Record `json:"results"`
}

// Service dispatches search parameters to an index and merges the results.
// A Service is immutable and safe for concurrent use.
type Service struct {
	index *index.Index
}

// NewService creates a search service over ix. The fields ix searches are the
// only ones field-specific queries may name.
//
// Parameters:
//   - ix: The default index, searching every weighted field
//
// Returns:
//   - *Service: A service ready to execute searches
func NewService(ix *index.Index) *Service {
	return &Service{index: ix}
}

// Build indexes cat and wraps the index in a Service.
func Build(cat *catalog.Catalog, opts index.Options, fields ...index.Field) (*Service, error) {
	ix, err := index.New(cat, opts, fields...)
	if err != nil {
		return nil, fmt.Errorf("building index for %s: %w", cat.Source(), err)
	}
	return NewService(ix), nil
}

// Catalog returns the searched catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.index.Catalog()
}

// Close releases the underlying index.
func (s *Service) Close() error {
	return s.index.Close()
}

// Search executes a weighted search with validated, sanitized parameters.
//
// The search operation:
// 1. Rejects field-specific queries on fields without a weight
// 2. Runs every field-specific value against a view scoped to all the
// requested fields, keeping the first occurrence of each record
// 3. Appends the global q results, again skipping records already seen
// 4. Caps the merged list at params.Limit
//
// Parameters:
//   - ctx: Context for cancellation
//   - params: Parameters as returned by query.Parse
//
// Returns:
//   - *Results: Merged results with the pre-limit total
//   - error: *query.UnknownFieldError for unweighted fields, or an index failure
//
// Example:
//
//	params, err := query.Parse(r.URL.Query(), query.DefaultOptions())
//	if err != nil {
//		// Respond with 400
//	}
//	results, err := service.Search(ctx, params)
func (s *Service) Search(ctx context.Context, params query.Params) (*Results, error) {
	if params.Empty() {
		return nil, &query.MissingParameterError{}
	}

	m := newMerger(s.index.Catalog())

	if len(params.Fields) > 0 {
		names := make([]string, 0, len(params.Fields))
		for _, f := range params.Fields {
			if _, ok := s.index.Weight(f.Field); !ok {
				return nil, &query.UnknownFieldError{Field: f.Field}
			}
			names = append(names, f.Field)
		}

		scoped, err := s.index.Scoped(names...)
		if err != nil {
			return nil, err
		}

		for _, f := range params.Fields {
			hits, err := scoped.Search(ctx, f.Value)
			if err != nil {
				return nil, fmt.Errorf("searching %s: %w", f.Field, err)
			}
			m.add(hits)
		}
	}

	if params.Query != "" {
		hits, err := s.index.Search(ctx, params.Query)
		if err != nil {
			return nil, fmt.Errorf("searching q: %w", err)
		}
		m.add(hits)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = query.DefaultLimit
	}

	records := m.records(limit)
	results := &Results{
		Total:    m.len(),
		Returned: len(records),
		Params:   params.Echo(),
		Records:  records,
	}

	logger.Infof("search params=%v: found %d results, returning %d (limit: %d)",
		results.Params, results.Total, results.Returned, limit)

	return results, nil
}

// SearchAll runs an unlimited free-text search over the default fields and
// returns every matching record, best first.
func (s *Service) SearchAll(ctx context.Context, text string) ([]catalog.Record, error) {
	hits, err := s.index.Search(ctx, text)
	if err != nil {
		return nil, err
	}

	m := newMerger(s.index.Catalog())
	m.add(hits)
	records := m.records(0)

	logger.Infof("search q=%q: found %d results", text, len(records))
	return records, nil
}
