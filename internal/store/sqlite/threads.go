package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

// threadSelect is completed with the is_voted expression and a trailing
// FROM/WHERE clause.
const threadSelect = `
	SELECT t.id, t.user_id, u.username, t.slug, t.title, t.content, t.created_at,
		(SELECT COUNT(*) FROM thread_votes v WHERE v.thread_id = t.id),
		%s
	FROM threads t
	JOIN users u ON u.id = t.user_id
`

func (s *Store) CreateThread(ctx context.Context, thread *model.Thread) (model.Thread, error) {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	var out model.Thread
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO threads (user_id, slug, title, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, thread.AuthorID, thread.Slug, thread.Title, thread.Content, thread.CreatedAt.Unix())
		err = constraintTable{
			"threads.slug": func() error { return store.Invalid("slug", "duplicate thread slug: "+thread.Slug) },
			"FOREIGN KEY":  func() error { return store.ErrNotFound },
		}.apply(err)
		if err != nil {
			return err
		}
		out, err = getThread(ctx, tx, thread.Slug, nil)
		return err
	})
	if err != nil {
		return model.Thread{}, err
	}
	return out, nil
}

func (s *Store) GetThread(ctx context.Context, slug string, viewer store.Viewer) (model.Thread, error) {
	return getThread(ctx, s.db, slug, viewer)
}

func (s *Store) ListThreads(ctx context.Context, viewer store.Viewer) ([]model.Thread, error) {
	voted, args := votedColumn("thread_votes", "thread_id", "t.id", viewer)
	query := fmt.Sprintf(threadSelect, voted) + `ORDER BY t.created_at DESC, t.id DESC`
	return listThreads(ctx, s.db, query, args...)
}

func (s *Store) ListThreadsByAuthor(ctx context.Context, username string, viewer store.Viewer) ([]model.Thread, error) {
	authorID, err := userIDByName(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	voted, args := votedColumn("thread_votes", "thread_id", "t.id", viewer)
	query := fmt.Sprintf(threadSelect, voted) + `WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id DESC`
	return listThreads(ctx, s.db, query, append(args, authorID)...)
}

func (s *Store) ThreadID(ctx context.Context, slug string) (int64, error) {
	return threadIDBySlug(ctx, s.db, slug)
}

func getThread(ctx context.Context, q querier, slug string, viewer store.Viewer) (model.Thread, error) {
	voted, args := votedColumn("thread_votes", "thread_id", "t.id", viewer)
	query := fmt.Sprintf(threadSelect, voted) + `WHERE t.slug = ?`
	t, err := scanThread(q.QueryRowContext(ctx, query, append(args, slug)...))
	if err != nil {
		return model.Thread{}, notFound(err)
	}
	return t, nil
}

func listThreads(ctx context.Context, q querier, query string, args ...any) ([]model.Thread, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []model.Thread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (model.Thread, error) {
	var (
		t       model.Thread
		created int64
		voted   int
	)
	if err := row.Scan(&t.ID, &t.AuthorID, &t.Username, &t.Slug, &t.Title, &t.Content, &created, &t.VoteCount, &voted); err != nil {
		return model.Thread{}, err
	}
	t.CreatedAt = time.Unix(created, 0)
	t.IsVoted = voted == 1
	return t, nil
}

func threadIDBySlug(ctx context.Context, q querier, slug string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM threads WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		return 0, notFound(err)
	}
	return id, nil
}
