package sqlite

import (
	"context"
	"fmt"
)

// countedTables are reported by Counts under the same names.
var countedTables = []string{"users", "threads", "comments", "thread_votes", "comment_votes", "follows"}

// Counts returns the row count of each entity table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(countedTables))
	for _, table := range countedTables {
		var n int64
		// Table names come from countedTables, never from input.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Optimize lets sqlite refresh the query planner statistics it considers
// stale.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}
