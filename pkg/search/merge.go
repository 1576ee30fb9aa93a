package search

import (
	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/index"
)

// merger concatenates hit lists, keeping only the first hit per record name.
type merger struct {
	catalog   *catalog.Catalog
	seen      map[string]bool
	positions []int
}

func newMerger(cat *catalog.Catalog) *merger {
	return &merger{catalog: cat, seen: make(map[string]bool)}
}

func (m *merger) add(hits []index.Hit) {
	for _, h := range hits {
		if m.seen[h.Name] {
			continue
		}
		m.seen[h.Name] = true
		m.positions = append(m.positions, h.Position)
	}
}

func (m *merger) len() int { return len(m.positions) }

// records resolves the first limit merged hits. A limit <= 0 returns all.
func (m *merger) records(limit int) []catalog.Record {
	n := len(m.positions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]catalog.Record, 0, n)
	for _, pos := range m.positions[:n] {
		out = append(out, m.catalog.At(pos))
	}
	return out
}
