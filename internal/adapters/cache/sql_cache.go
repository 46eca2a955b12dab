package cache

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// sqlCache is the storage shared by the SQL-backed cache stores
type sqlCache struct {
	db     *sql.DB
	logger *zap.Logger
}

func (c *sqlCache) Load(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT msgid FROM pending_cache ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return ids, nil
}

func (c *sqlCache) Save(ctx context.Context, ids []string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pending_cache (position, msgid) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache: %w", err)
	}

	c.logger.Debug("Saved pending cache", zap.Int("entries", len(ids)))
	return nil
}

// Close releases the database connection
func (c *sqlCache) Close() error {
	return c.db.Close()
}
