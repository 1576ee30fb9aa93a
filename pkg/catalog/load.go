package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zoldy/traitsearch/pkg/log"
)

var logger = log.ForService("catalog")

// collectionKeys are the top-level mapping keys that may hold the record list.
var collectionKeys = []string{"traits", "perks", "records"}

// Load reads a YAML or JSON dataset from fsys. Any failure is returned as a
// *DataLoadError.
func Load(fsys fs.FS, name string) (*Catalog, error) {
	logger.Infof("loading dataset from %s", name)

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &DataLoadError{Path: name, Err: err}
	}

	records, err := decode(path.Ext(name), data)
	if err != nil {
		return nil, &DataLoadError{Path: name, Err: err}
	}

	c, err := New(name, records)
	if err != nil {
		return nil, &DataLoadError{Path: name, Err: err}
	}

	logger.Infof("loaded %d records from %s", c.Len(), name)
	return c, nil
}

// LoadFile reads a dataset from disk. SQLite databases (.db, .sqlite) are
// opened read-only; every other extension goes through Load.
func LoadFile(p string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(p)
	}
	return Load(os.DirFS(filepath.Dir(p)), filepath.Base(p))
}

func decode(ext string, data []byte) ([]Record, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json":
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", ext)
	}
}

func decodeYAML(data []byte) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("empty YAML document")
	}

	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		root = nil
		for i := 0; i+1 < len(doc.Content[0].Content); i += 2 {
			key := doc.Content[0].Content[i].Value
			if slices.Contains(collectionKeys, key) {
				root = doc.Content[0].Content[i+1]
				break
			}
		}
		if root == nil {
			return nil, fmt.Errorf("no %s list found", strings.Join(collectionKeys, "/"))
		}
	}

	var records []Record
	if err := root.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

func decodeJSON(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty JSON document")
	}

	if trimmed[0] == '{' {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		found := false
		for _, key := range collectionKeys {
			if raw, ok := doc[key]; ok {
				trimmed, found = raw, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no %s list found", strings.Join(collectionKeys, "/"))
		}
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}
