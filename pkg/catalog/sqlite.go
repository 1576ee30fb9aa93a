package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Schema is the table layout expected in SQLite datasets. Tags and effects
// are stored as JSON arrays.
const Schema = `
	CREATE TABLE IF NOT EXISTS records (
		position INTEGER NOT NULL,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		effects TEXT NOT NULL DEFAULT '[]'
	)
`

type recordRow struct {
	Position    int    `db:"position"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Tags        string `db:"tags"`
	Effects     string `db:"effects"`
}

// readOnlyDSN builds a read-only SQLite URI for path. The path is escaped so
// ? and # in file names are not taken as URI syntax.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		OmitHost: true,
		RawQuery: "mode=ro",
	}
	return u.String(), nil
}

func loadSQLite(path string) (*Catalog, error) {
	logger.Infof("loading dataset from sqlite database %s", path)

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("failed to close %s: %v", path, err)
		}
	}()

	var rows []recordRow
	if err := db.Select(&rows, "SELECT position, name, description, tags, effects FROM records ORDER BY position, rowid"); err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("querying records: %w", err)}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r := Record{Name: row.Name, Description: row.Description}
		if err := json.Unmarshal([]byte(row.Tags), &r.Tags); err != nil {
			return nil, &DataLoadError{Path: path, Err: fmt.Errorf("record %q: tags: %w", row.Name, err)}
		}
		if err := json.Unmarshal([]byte(row.Effects), &r.Effects); err != nil {
			return nil, &DataLoadError{Path: path, Err: fmt.Errorf("record %q: effects: %w", row.Name, err)}
		}
		records = append(records, r)
	}

	c, err := New(path, records)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	logger.Infof("loaded %d records from %s", c.Len(), path)
	return c, nil
}
