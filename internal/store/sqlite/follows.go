package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

// Follow adds the edge followerID -> username and returns the followee's
// profile as seen by the follower. Following twice is a no-op.
func (s *Store) Follow(ctx context.Context, followerID int64, username string) (model.Profile, error) {
	var out model.Profile
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		followeeID, err := userIDByName(ctx, tx, username)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, followerID, followeeID, time.Now().Unix())
		err = constraintTable{
			"user_cannot_follow_self": func() error { return store.ErrForbidden },
			"FOREIGN KEY":             func() error { return store.ErrNotFound },
		}.apply(err)
		if err != nil {
			return err
		}
		out, err = getProfile(ctx, tx, username, &followerID)
		return err
	})
	return out, err
}

// Unfollow removes the edge if present.
func (s *Store) Unfollow(ctx context.Context, followerID int64, username string) (model.Profile, error) {
	var out model.Profile
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		followeeID, err := userIDByName(ctx, tx, username)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID); err != nil {
			return err
		}
		out, err = getProfile(ctx, tx, username, &followerID)
		return err
	})
	return out, err
}

func (s *Store) GetProfile(ctx context.Context, username string, viewer store.Viewer) (model.Profile, error) {
	return getProfile(ctx, s.db, username, viewer)
}

// getProfile computes score as the number of votes on all of the user's
// threads. It is counted on every call.
func getProfile(ctx context.Context, q querier, username string, viewer store.Viewer) (model.Profile, error) {
	following := "0"
	args := []any{}
	if viewer != nil {
		following = `EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.followee_id = u.id)`
		args = append(args, *viewer)
	}
	args = append(args, username)

	var (
		p       model.Profile
		created int64
		follows int
	)
	err := q.QueryRowContext(ctx, `
		SELECT u.username,
			(SELECT COUNT(*) FROM thread_votes v JOIN threads t ON t.id = v.thread_id WHERE t.user_id = u.id),
			u.created_at,
			`+following+`
		FROM users u
		WHERE u.username = ?
	`, args...).Scan(&p.Username, &p.Score, &created, &follows)
	if err != nil {
		return model.Profile{}, notFound(err)
	}
	p.CreatedAt = time.Unix(created, 0)
	p.Following = follows == 1
	return p, nil
}
