package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

const commentSelect = `
	SELECT c.id, c.thread_id, c.parent_id, c.user_id, u.username, c.content, c.created_at,
		(SELECT COUNT(*) FROM comment_votes v WHERE v.comment_id = c.id),
		%s
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

const commentOrder = ` ORDER BY c.created_at DESC, c.id DESC`

func (s *Store) CreateRootComment(ctx context.Context, slug string, authorID int64, content string) (model.Comment, error) {
	var out model.Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO comments (thread_id, parent_id, user_id, content, created_at)
			SELECT t.id, NULL, ?, ?, ? FROM threads t WHERE t.slug = ?
		`, authorID, content, time.Now().Unix(), slug)
		if err != nil {
			return constraintTable{"FOREIGN KEY": func() error { return store.ErrNotFound }}.apply(err)
		}
		out, err = insertedComment(ctx, tx, res)
		return err
	})
	return out, err
}

// CreateReply stores a reply under parent. The parent is looked up inside the
// thread named by slug, so a parent from another thread is NotFound.
func (s *Store) CreateReply(ctx context.Context, slug string, parent model.CommentID, authorID int64, content string) (model.Comment, error) {
	var out model.Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO comments (thread_id, parent_id, user_id, content, created_at)
			SELECT p.thread_id, p.id, ?, ?, ?
			FROM comments p
			JOIN threads t ON t.id = p.thread_id
			WHERE t.slug = ? AND p.id = ?
		`, authorID, content, time.Now().Unix(), slug, int64(parent))
		if err != nil {
			return constraintTable{"FOREIGN KEY": func() error { return store.ErrNotFound }}.apply(err)
		}
		out, err = insertedComment(ctx, tx, res)
		return err
	})
	return out, err
}

func (s *Store) GetComment(ctx context.Context, slug string, id model.CommentID, viewer store.Viewer) (model.Comment, error) {
	voted, args := votedColumn("comment_votes", "comment_id", "c.id", viewer)
	query := fmt.Sprintf(commentSelect, voted) + `
		JOIN threads t ON t.id = c.thread_id
		WHERE t.slug = ? AND c.id = ?`
	c, err := scanComment(s.db.QueryRowContext(ctx, query, append(args, slug, int64(id))...))
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

func (s *Store) ListTopLevelComments(ctx context.Context, slug string, viewer store.Viewer) ([]model.Comment, error) {
	threadID, err := threadIDBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	voted, args := votedColumn("comment_votes", "comment_id", "c.id", viewer)
	query := fmt.Sprintf(commentSelect, voted) + `WHERE c.thread_id = ? AND c.parent_id IS NULL` + commentOrder
	return listComments(ctx, s.db, query, append(args, threadID)...)
}

// ListChildComments returns direct children of parent only. Deeper levels
// take one call each.
func (s *Store) ListChildComments(ctx context.Context, slug string, parent model.CommentID, viewer store.Viewer) ([]model.Comment, error) {
	threadID, err := threadIDBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if _, err := commentInThread(ctx, s.db, threadID, parent); err != nil {
		return nil, err
	}
	voted, args := votedColumn("comment_votes", "comment_id", "c.id", viewer)
	query := fmt.Sprintf(commentSelect, voted) + `WHERE c.thread_id = ? AND c.parent_id = ?` + commentOrder
	return listComments(ctx, s.db, query, append(args, threadID, int64(parent))...)
}

// CommentID resolves id inside the thread named by slug and returns the row
// id votes are keyed by.
func (s *Store) CommentID(ctx context.Context, slug string, id model.CommentID) (int64, error) {
	threadID, err := threadIDBySlug(ctx, s.db, slug)
	if err != nil {
		return 0, err
	}
	return commentInThread(ctx, s.db, threadID, id)
}

func insertedComment(ctx context.Context, tx *sql.Tx, res sql.Result) (model.Comment, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return model.Comment{}, err
	}
	if n == 0 {
		return model.Comment{}, store.ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, err
	}
	query := fmt.Sprintf(commentSelect, "0") + `WHERE c.id = ?`
	c, err := scanComment(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

func commentInThread(ctx context.Context, q querier, threadID int64, id model.CommentID) (int64, error) {
	var rowID int64
	err := q.QueryRowContext(ctx, `SELECT id FROM comments WHERE id = ? AND thread_id = ?`, int64(id), threadID).Scan(&rowID)
	if err != nil {
		return 0, notFound(err)
	}
	return rowID, nil
}

func listComments(ctx context.Context, q querier, query string, args ...any) ([]model.Comment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		c        model.Comment
		id       int64
		parentID sql.NullInt64
		created  int64
		voted    int
	)
	if err := row.Scan(&id, &c.ThreadID, &parentID, &c.AuthorID, &c.Username, &c.Content, &created, &c.VoteCount, &voted); err != nil {
		return model.Comment{}, err
	}
	c.ID = model.CommentID(id)
	if parentID.Valid {
		p := model.CommentID(parentID.Int64)
		c.ParentID = &p
	}
	c.CreatedAt = time.Unix(created, 0)
	c.IsVoted = voted == 1
	return c, nil
}
