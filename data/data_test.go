package data

import (
	"testing"

	"github.com/zoldy/traitsearch/pkg/catalog"
)

func TestBundledDatasetsLoad(t *testing.T) {
	for _, name := range []string{"traits/traits.yaml", "traits/traits-2.yaml", "perks.json"} {
		t.Run(name, func(t *testing.T) {
			c, err := catalog.Load(FS, name)
			if err != nil {
				t.Fatalf("Load(%s) error = %v", name, err)
			}
			if c.Len() == 0 {
				t.Errorf("%s is empty", name)
			}
		})
	}
}

func TestBraveHeartPresent(t *testing.T) {
	c, err := catalog.Load(FS, "traits/traits.yaml")
	if err != nil {
		t.Fatal(err)
	}
	r, ok := c.Lookup("Brave Heart")
	if !ok {
		t.Fatal("Brave Heart missing from traits.yaml")
	}
	if len(r.Tags) == 0 || r.Tags[0] != "courage" {
		t.Errorf("Brave Heart tags = %v", r.Tags)
	}
}
