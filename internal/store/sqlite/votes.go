package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

type voteTable struct {
	name string
	key  string
}

func voteTableFor(kind model.VoteKind) (voteTable, error) {
	switch kind {
	case model.VoteThread:
		return voteTable{name: "thread_votes", key: "thread_id"}, nil
	case model.VoteComment:
		return voteTable{name: "comment_votes", key: "comment_id"}, nil
	default:
		return voteTable{}, fmt.Errorf("unknown vote kind %q", kind)
	}
}

// CastVote records voterID's vote on the target and returns the new total.
// A second cast by the same voter changes nothing.
func (s *Store) CastVote(ctx context.Context, kind model.VoteKind, targetID, voterID int64) (int64, error) {
	vt, err := voteTableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, user_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, vt.name, vt.key), targetID, voterID, time.Now().Unix())
		err = constraintTable{
			"FOREIGN KEY": func() error { return store.ErrNotFound },
		}.apply(err)
		if err != nil {
			return err
		}
		count, err = countVotes(ctx, tx, vt, targetID)
		return err
	})
	return count, err
}

// UncastVote removes voterID's vote if there is one and returns the new total.
func (s *Store) UncastVote(ctx context.Context, kind model.VoteKind, targetID, voterID int64) (int64, error) {
	vt, err := voteTableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND user_id = ?`, vt.name, vt.key), targetID, voterID); err != nil {
			return err
		}
		count, err = countVotes(ctx, tx, vt, targetID)
		return err
	})
	return count, err
}

func (s *Store) CountVotes(ctx context.Context, kind model.VoteKind, targetID int64) (int64, error) {
	vt, err := voteTableFor(kind)
	if err != nil {
		return 0, err
	}
	return countVotes(ctx, s.db, vt, targetID)
}

func countVotes(ctx context.Context, q querier, vt voteTable, targetID int64) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, vt.name, vt.key), targetID).Scan(&n)
	return n, err
}
