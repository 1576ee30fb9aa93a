// Package search dispatches trait and perk queries to a catalog index and
// merges the results.
//
// # Overview
//
// A Service wraps one index built over one catalog. Requests arrive as
// query.Params, already validated and sanitized by the HTTP or CLI layer, and
// leave as a capped, deduplicated list of records.
//
// # Dispatch
//
// Parameters split into two kinds:
//
//   - Field-specific queries (name, description, tags, effects): every value
//     is searched against a view of the index scoped to all the requested
//     fields, so "name=brave&tags=fire" matches either value in either field.
//   - The global query (q): searched against every weighted field.
//
// Field-specific results come first, in name, description, tags, effects
// order, followed by any q results that were not already returned. A record
// appears at most once; its first occurrence wins.
//
// # Limits
//
// Results.Total counts every distinct match before the limit is applied, so
// Returned <= Total and Returned <= Limit always hold. Limit policies (clamp or
// reject) are resolved by query.Parse before the service sees the request.
//
// # Usage Examples
//
// Building a service over a loaded catalog:
//
//	cat, err := catalog.Load(data.FS, "traits/traits.yaml")
//	if err != nil {
//		return err
//	}
//	svc, err := search.Build(cat, index.Options{
//		Threshold:      index.DefaultThreshold,
//		IgnoreLocation: true,
//	})
//
// Running a weighted search:
//
//	params, err := query.Parse(r.URL.Query(), query.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	results, err := svc.Search(ctx, params)
//
// Running an unlimited free-text search:
//
//	records, err := svc.SearchAll(ctx, "iron")
package search
