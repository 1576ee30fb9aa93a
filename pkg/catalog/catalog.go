/*
Package catalog loads trait and perk datasets into immutable, ordered
collections.

A dataset is a YAML document (a list of records, or a mapping with a "traits"
or "perks" key holding that list), the JSON equivalent, or a read-only SQLite
database with a "records" table. Names are unique within a catalog and the
order of the source file is preserved; search ranking uses that order to
break ties.
*/
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Catalog is an immutable, ordered record collection.
type Catalog struct {
	source  string
	records []Record
	byName  map[string]int
}

// New builds a catalog from records. Text fields are NFC-normalized and
// trimmed; empty or duplicate names are rejected.
func New(source string, records []Record) (*Catalog, error) {
	c := &Catalog{
		source:  source,
		records: make([]Record, 0, len(records)),
		byName:  make(map[string]int, len(records)),
	}

	for i, r := range records {
		r = normalize(r)
		if r.Name == "" {
			return nil, fmt.Errorf("record %d: empty name", i)
		}
		if prev, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("record %d: duplicate name %q (first seen at record %d)", i, r.Name, prev)
		}
		c.byName[r.Name] = len(c.records)
		c.records = append(c.records, r)
	}

	if len(c.records) == 0 {
		return nil, errors.New("dataset contains no records")
	}

	return c, nil
}

func normalize(r Record) Record {
	r.Name = strings.TrimSpace(norm.NFC.String(r.Name))
	r.Description = strings.TrimSpace(norm.NFC.String(r.Description))

	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if t = strings.TrimSpace(norm.NFC.String(t)); t != "" {
			tags = append(tags, t)
		}
	}
	r.Tags = tags
	r.Effects = slices.Clone(r.Effects)
	return r
}

// Source is the path the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// At returns the record at position i in source order.
func (c *Catalog) At(i int) Record { return c.records[i] }

// Position returns the source-order position of the named record.
func (c *Catalog) Position(name string) (int, bool) {
	i, ok := c.byName[name]
	return i, ok
}

// Lookup returns the named record.
func (c *Catalog) Lookup(name string) (Record, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Records returns a copy of every record in source order.
func (c *Catalog) Records() []Record {
	return slices.Clone(c.records)
}
