package store

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"regexp"
)

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS collections (
    name        TEXT PRIMARY KEY,
    vector_size INTEGER NOT NULL,
    distance    TEXT NOT NULL DEFAULT 'cosine'
);
`

// Init creates the catalog table if it doesn't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// collectionTables returns the points and vector table names for a collection.
// Names that need sanitizing get a hash of the original appended, so "a-b"
// and "a_b" never share tables.
func collectionTables(name string) (points, vectors string) {
	safe := unsafeIdent.ReplaceAllString(name, "_")
	if safe != name {
		h := fnv.New32a()
		_, _ = h.Write([]byte(name))
		safe = fmt.Sprintf("%s_%08x", safe, h.Sum32())
	}
	return "points_" + safe, "vec_" + safe
}

func collectionDDL(name string, dim int) []string {
	points, vectors := collectionTables(name)
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
    pk         INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    file_path  TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    text       TEXT NOT NULL
)`, points),
		fmt.Sprintf(`CREATE INDEX %s_file_path ON %s(file_path)`, points, points),
		fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING vec0(
    point_pk INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
)`, vectors, dim),
	}
}
