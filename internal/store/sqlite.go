package store

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// vec0 refuses KNN queries asking for more neighbours than this.
const maxKNN = 4096

// SQLiteStore implements Gateway backed by SQLite + sqlite-vec. Each
// collection is a points table plus a vec0 virtual table using cosine distance.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path and initializes the catalog.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) DescribeCollection(ctx context.Context, name string) (CollectionInfo, error) {
	var size int
	err := s.db.QueryRowContext(ctx, "SELECT vector_size FROM collections WHERE name = ?", name).Scan(&size)
	if err == sql.ErrNoRows {
		return CollectionInfo{}, nil
	}
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{Found: true, VectorSize: size}, nil
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, dim int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO collections (name, vector_size, distance) VALUES (?, ?, ?)",
		name, dim, DistanceCosine,
	); err != nil {
		return err
	}
	for _, stmt := range collectionDDL(name, dim) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	points, vectors := collectionTables(name)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS " + vectors,
		"DROP TABLE IF EXISTS " + points,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) requireCollection(ctx context.Context, name string) (CollectionInfo, error) {
	info, err := s.DescribeCollection(ctx, name)
	if err != nil {
		return info, err
	}
	if !info.Found {
		return info, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return info, nil
}

func (s *SQLiteStore) DeleteByFilePath(ctx context.Context, name, path string) error {
	if _, err := s.requireCollection(ctx, name); err != nil {
		return err
	}
	points, vectors := collectionTables(name)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE point_pk IN (SELECT pk FROM %s WHERE file_path = ?)", vectors, points),
		path,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE file_path = ?", points), path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Upsert(ctx context.Context, name string, pts []Point) error {
	if len(pts) == 0 {
		return nil
	}
	info, err := s.requireCollection(ctx, name)
	if err != nil {
		return err
	}
	points, vectors := collectionTables(name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range pts {
		if len(p.Vector) != info.VectorSize {
			return fmt.Errorf("%w: got %d, collection %s expects %d", ErrDimensionMismatch, len(p.Vector), name, info.VectorSize)
		}
		// Overwrite by id: drop any existing row and its vector first.
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE point_pk IN (SELECT pk FROM %s WHERE id = ?)", vectors, points), p.ID,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", points), p.ID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, file_path, start_line, end_line, text) VALUES (?, ?, ?, ?, ?)", points),
			p.ID, p.Payload.FilePath, p.Payload.StartLine, p.Payload.EndLine, p.Payload.Text,
		)
		if err != nil {
			return err
		}
		pk, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(p.Vector)
		if err != nil {
			return fmt.Errorf("serialize embedding for point %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (point_pk, embedding) VALUES (?, ?)", vectors), pk, blob,
		); err != nil {
			return fmt.Errorf("insert embedding for point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error) {
	info, err := s.requireCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.VectorSize {
		return nil, fmt.Errorf("%w: query has %d, collection %s expects %d", ErrDimensionMismatch, len(vector), name, info.VectorSize)
	}
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxKNN {
		limit = maxKNN
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	points, vectors := collectionTables(name)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		WITH knn AS (
			SELECT point_pk, distance FROM %s
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT p.id, knn.distance, p.file_path, p.start_line, p.end_line, p.text
		FROM knn
		JOIN %s p ON p.pk = knn.point_pk
		ORDER BY knn.distance
	`, vectors, points), blob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScoredPoint
	for rows.Next() {
		var r ScoredPoint
		var distance float64
		if err := rows.Scan(
			&r.ID, &distance,
			&r.Payload.FilePath, &r.Payload.StartLine, &r.Payload.EndLine, &r.Payload.Text,
		); err != nil {
			return nil, err
		}
		r.Score = 1 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) FilePaths(ctx context.Context, name string) ([]string, error) {
	if _, err := s.requireCollection(ctx, name); err != nil {
		return nil, err
	}
	points, _ := collectionTables(name)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT file_path FROM %s ORDER BY file_path", points))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of points in a collection.
func (s *SQLiteStore) Count(ctx context.Context, name string) (int, error) {
	if _, err := s.requireCollection(ctx, name); err != nil {
		return 0, err
	}
	points, _ := collectionTables(name)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+points).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
