// Package index wraps an in-memory bleve index over a catalog and turns free
// text into weighted, fuzzy, multi-field queries.
//
// One bleve index is built per catalog. Every record field is indexed once;
// which fields a search consults, and how much each one counts, is decided by
// the Index value used to run it. Scoped returns a view over a subset of the
// fields that shares the underlying bleve index.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/log"
)

const analyzerName = "traitsearch"

// DefaultThreshold is the similarity threshold used when none is configured.
const DefaultThreshold = 0.3

// maxFuzziness is the largest edit distance bleve accepts.
const maxFuzziness = 2

// minInfixLength is the shortest term that is also matched anywhere inside an
// indexed term when location is ignored.
const minInfixLength = 3

var logger = log.ForService("index")

// Field is an indexed record attribute and the weight its matches carry.
type Field struct {
	Name   string  `toml:"name" json:"name"`
	Weight float64 `toml:"weight" json:"weight"`
}

// Indexed record attributes.
const (
	FieldName        = "name"
	FieldTags        = "tags"
	FieldDescription = "description"
	FieldEffects     = "effects"
)

// DefaultFields returns the weighted field set used for global search.
func DefaultFields() []Field {
	return []Field{
		{Name: FieldName, Weight: 2},
		{Name: FieldTags, Weight: 1.5},
		{Name: FieldDescription, Weight: 1},
		{Name: FieldEffects, Weight: 1},
	}
}

// Options controls how query text is matched.
type Options struct {
	// Threshold is the similarity threshold, 0 (exact) to 1 (loose). It is
	// turned into a per-term edit distance of floor(Threshold * len(term)),
	// capped at 2.
	Threshold float64

	// ExtendedSyntax enables | alternatives, the ^ and $ anchors and the
	// ! (not), = (exact) and ' (substring) term operators.
	ExtendedSyntax bool

	// IgnoreLocation also matches terms occurring inside indexed words.
	IgnoreLocation bool
}

// Hit is one matching record.
type Hit struct {
	Position int
	Name     string
	Score    float64
}

// Index searches one catalog.
type Index struct {
	catalog *catalog.Catalog
	bleve   bleve.Index
	mapping *mapping.IndexMappingImpl
	opts    Options
	fields  []Field

	// view is set on indexes returned by Scoped; they do not own bleve.
	view bool
}

// New indexes every record of cat. With no fields the DefaultFields set is
// searched.
func New(cat *catalog.Catalog, opts Options, fields ...Field) (*Index, error) {
	if cat == nil {
		return nil, errors.New("nil catalog")
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0, 1]", opts.Threshold)
	}
	if len(fields) == 0 {
		fields = DefaultFields()
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	im, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to build index mapping: %w", err)
	}

	bi, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	batch := bi.NewBatch()
	for i := 0; i < cat.Len(); i++ {
		r := cat.At(i)
		doc := map[string]any{
			FieldName:        r.Name,
			FieldTags:        r.Tags,
			FieldDescription: r.Description,
			FieldEffects:     r.EffectTexts(),
		}
		if err := batch.Index(r.Name, doc); err != nil {
			bi.Close()
			return nil, fmt.Errorf("failed to index record %q: %w", r.Name, err)
		}
	}
	if err := bi.Batch(batch); err != nil {
		bi.Close()
		return nil, fmt.Errorf("failed to batch index records: %w", err)
	}

	logger.Debugf("indexed %d records from %s", cat.Len(), cat.Source())

	return &Index{
		catalog: cat,
		bleve:   bi,
		mapping: im,
		opts:    opts,
		fields:  fields,
	}, nil
}

func validateFields(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		switch f.Name {
		case FieldName, FieldTags, FieldDescription, FieldEffects:
		default:
			return fmt.Errorf("unknown field %q", f.Name)
		}
		if f.Weight <= 0 {
			return fmt.Errorf("field %q: weight must be positive", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q listed twice", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	// Unicode word splitting and lowercasing only. Stop words and stemming
	// would hide short trait names.
	err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = analyzerName

	textField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		return fm
	}

	recordMapping := bleve.NewDocumentStaticMapping()
	for _, name := range []string{FieldName, FieldTags, FieldDescription, FieldEffects} {
		recordMapping.AddFieldMappingsAt(name, textField())
	}
	im.DefaultMapping = recordMapping

	return im, nil
}

// Catalog returns the indexed catalog.
func (ix *Index) Catalog() *catalog.Catalog { return ix.catalog }

// Fields returns the weighted fields this index searches.
func (ix *Index) Fields() []Field {
	out := make([]Field, len(ix.fields))
	copy(out, ix.fields)
	return out
}

// Weight returns the weight of a searched field.
func (ix *Index) Weight(name string) (float64, bool) {
	for _, f := range ix.fields {
		if f.Name == name {
			return f.Weight, true
		}
	}
	return 0, false
}

// Scoped returns a view that searches only the named fields, keeping their
// weights. Every name must be one of the fields ix searches.
func (ix *Index) Scoped(names ...string) (*Index, error) {
	if len(names) == 0 {
		return nil, errors.New("scoped index needs at least one field")
	}

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		w, ok := ix.Weight(name)
		if !ok {
			return nil, fmt.Errorf("field %q is not searched by this index", name)
		}
		fields = append(fields, Field{Name: name, Weight: w})
	}

	view := *ix
	view.fields = fields
	view.view = true
	return &view, nil
}

// Search returns every record matching text, best first. Records with equal
// scores keep catalog order.
func (ix *Index) Search(ctx context.Context, text string) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := ix.parse(text)
	q := ix.buildQuery(groups)
	if q == nil {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(q, ix.catalog.Len(), 0, false)
	res, err := ix.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, ok := ix.catalog.Position(h.ID)
		if !ok {
			logger.Warnf("hit %q is not in catalog %s", h.ID, ix.catalog.Source())
			continue
		}
		hits = append(hits, Hit{Position: pos, Name: h.ID, Score: h.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})

	return hits, nil
}

// Close releases the bleve index. Closing a scoped view is a no-op.
func (ix *Index) Close() error {
	if ix.view {
		return nil
	}
	return ix.bleve.Close()
}

func (ix *Index) fuzziness(term string) int {
	return min(maxFuzziness, int(ix.opts.Threshold*float64(utf8.RuneCountInString(term))))
}
