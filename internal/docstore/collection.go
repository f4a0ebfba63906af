package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CreateCollection registers a new, empty collection.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if err := createCollection(ctx, s.db, name); err != nil {
		return err
	}
	s.log.Debug("collection created", "collection", name)
	return nil
}

func createCollection(ctx context.Context, q querier, name string) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO collections (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create collection %s: rows affected: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("create collection %s: %w", name, ErrCollectionExists)
	}
	return nil
}

// DropCollection removes a collection and all of its documents.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name); err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("drop collection %s: rows affected: %w", name, err)
		}
		if n == 0 {
			return fmt.Errorf("drop collection %s: %w", name, ErrCollectionNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug("collection dropped", "collection", name)
	return nil
}

// Collections lists all collections with their document counts, ordered
// by name.
//
// Returns an empty slice (not nil) if there are no collections.
func (s *Store) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, COUNT(d.key)
		FROM collections c
		LEFT JOIN documents d ON d.collection = c.name
		GROUP BY c.name
		ORDER BY c.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	infos := []CollectionInfo{}
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.Count); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return infos, nil
}

// HasCollection reports whether the collection exists.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	err := requireCollection(ctx, s.db, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Truncate removes every document from a collection and returns how many
// were removed.
func (s *Store) Truncate(ctx context.Context, name string) (int64, error) {
	var removed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireCollection(ctx, tx, name); err != nil {
			return err
		}
		var err error
		removed, err = truncate(ctx, tx, name)
		return err
	})
	return removed, err
}

func truncate(ctx context.Context, q querier, name string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("truncate %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("truncate %s: rows affected: %w", name, err)
	}
	return n, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if err := requireCollection(ctx, s.db, name); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`, name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

func requireCollection(ctx context.Context, q querier, name string) error {
	var found string
	err := q.QueryRowContext(ctx, `SELECT name FROM collections WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup collection %s: %w", name, err)
	}
	return nil
}
