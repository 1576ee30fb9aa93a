package index

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

type matchKind int

const (
	matchFuzzy matchKind = iota
	matchPrefix
	matchSuffix
	matchExact
	matchInclude
)

type term struct {
	text   string
	kind   matchKind
	negate bool
}

// group holds terms that must all match one field. Negated terms must match
// no searched field of the record. Groups are alternatives.
type group []term

func (g group) split() (positive, negative []term) {
	for _, t := range g {
		if t.negate {
			negative = append(negative, t)
		} else {
			positive = append(positive, t)
		}
	}
	return positive, negative
}

// parse splits text into alternative groups of analyzed terms. Without
// extended syntax the whole text is a single group of fuzzy terms.
func (ix *Index) parse(text string) []group {
	raw := []string{text}
	if ix.opts.ExtendedSyntax {
		raw = strings.Split(text, "|")
	}

	var groups []group
	for _, part := range raw {
		var g group
		for _, token := range strings.Fields(part) {
			kind, negate := matchFuzzy, false
			if ix.opts.ExtendedSyntax {
				token, kind, negate = operators(token)
			}
			for _, t := range ix.analyze(token) {
				g = append(g, term{text: t, kind: kind, negate: negate})
			}
		}
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// operators strips the extended-syntax markers from token: a leading ! negates,
// = asks for an exact term, ' for a substring, and ^ and $ anchor the match.
// A bare negated term excludes records that contain it anywhere.
func operators(token string) (string, matchKind, bool) {
	negate := len(token) > 1 && strings.HasPrefix(token, "!")
	if negate {
		token = token[1:]
	}

	switch {
	case len(token) > 1 && strings.HasPrefix(token, "="):
		return token[1:], matchExact, negate
	case len(token) > 1 && strings.HasPrefix(token, "'"):
		return token[1:], matchInclude, negate
	}

	token, kind := anchors(token)
	if negate && kind == matchFuzzy {
		kind = matchInclude
	}
	return token, kind, negate
}

func anchors(token string) (string, matchKind) {
	start := strings.HasPrefix(token, "^")
	end := strings.HasSuffix(token, "$") && len(token) > 1
	token = strings.TrimPrefix(token, "^")
	if end {
		token = strings.TrimSuffix(token, "$")
	}

	switch {
	case start && end:
		return token, matchExact
	case start:
		return token, matchPrefix
	case end:
		return token, matchSuffix
	default:
		return token, matchFuzzy
	}
}

func (ix *Index) analyze(s string) []string {
	tokens, err := ix.mapping.AnalyzeText(analyzerName, []byte(s))
	if err != nil {
		logger.Warnf("analyzing %q: %v", s, err)
		return nil
	}
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, string(tok.Term))
	}
	return out
}

// buildQuery returns nil when no group produced a term.
func (ix *Index) buildQuery(groups []group) query.Query {
	if len(groups) == 0 {
		return nil
	}

	alternatives := bleve.NewDisjunctionQuery()
	for _, g := range groups {
		positive, negative := g.split()
		if len(negative) == 0 {
			for _, f := range ix.fields {
				alternatives.AddQuery(ix.fieldQuery(positive, f))
			}
			continue
		}

		bq := bleve.NewBooleanQuery()
		if len(positive) == 0 {
			bq.AddMust(bleve.NewMatchAllQuery())
		} else {
			anyField := bleve.NewDisjunctionQuery()
			for _, f := range ix.fields {
				anyField.AddQuery(ix.fieldQuery(positive, f))
			}
			bq.AddMust(anyField)
		}
		for _, t := range negative {
			for _, f := range ix.fields {
				bq.AddMustNot(ix.termQuery(t, f))
			}
		}
		alternatives.AddQuery(bq)
	}
	return alternatives
}

// fieldQuery requires every term to match field f.
func (ix *Index) fieldQuery(terms []term, f Field) query.Query {
	conj := bleve.NewConjunctionQuery()
	for _, t := range terms {
		conj.AddQuery(ix.termQuery(t, f))
	}
	return conj
}

// termQuery matches one term in one field. The field weight is applied to the
// leaf queries so it reaches the scorer.
func (ix *Index) termQuery(t term, f Field) query.Query {
	switch t.kind {
	case matchExact:
		return exact(t.text, f)
	case matchPrefix:
		q := bleve.NewPrefixQuery(t.text)
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		return q
	case matchSuffix:
		if wildcardUnsafe(t.text) {
			return exact(t.text, f)
		}
		q := bleve.NewWildcardQuery("*" + t.text)
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		return q
	case matchInclude:
		if wildcardUnsafe(t.text) {
			return exact(t.text, f)
		}
		q := bleve.NewWildcardQuery("*" + t.text + "*")
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		return q
	}

	n := utf8.RuneCountInString(t.text)
	either := bleve.NewDisjunctionQuery()

	if fz := ix.fuzziness(t.text); fz > 0 {
		q := bleve.NewFuzzyQuery(t.text)
		q.SetFuzziness(fz)
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		either.AddQuery(q)
	} else {
		either.AddQuery(exact(t.text, f))
	}

	if n >= 2 {
		q := bleve.NewPrefixQuery(t.text)
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		either.AddQuery(q)
	}

	if ix.opts.IgnoreLocation && n >= minInfixLength && !wildcardUnsafe(t.text) {
		q := bleve.NewWildcardQuery("*" + t.text + "*")
		q.SetField(f.Name)
		q.SetBoost(f.Weight)
		either.AddQuery(q)
	}

	return either
}

func exact(text string, f Field) query.Query {
	q := bleve.NewTermQuery(text)
	q.SetField(f.Name)
	q.SetBoost(f.Weight)
	return q
}

func wildcardUnsafe(s string) bool {
	return strings.ContainsAny(s, "*?")
}
