package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) (model.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password, created_at)
		VALUES (?, ?, ?, ?)
	`, user.Username, nullIfEmpty(user.Email), user.PasswordHash, user.CreatedAt.Unix())
	err = constraintTable{
		"users.username": func() error { return store.Invalid("username", "has already been taken") },
		"users.email":    func() error { return store.Invalid("email", "has already been taken") },
	}.apply(err)
	if err != nil {
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	out := *user
	out.ID = id
	out.CreatedAt = time.Unix(user.CreatedAt.Unix(), 0)
	return out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password, created_at
		FROM users WHERE username = ?
	`, username)
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password, created_at
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		email   sql.NullString
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &created); err != nil {
		return model.User{}, notFound(err)
	}
	u.Email = email.String
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

// userIDByName resolves a username inside q.
func userIDByName(ctx context.Context, q querier, username string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if err != nil {
		return 0, notFound(err)
	}
	return id, nil
}
