package model

import "time"

type User struct {
	ID           int64     `json:"-"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Thread struct {
	ID        int64     `json:"-"`
	AuthorID  int64     `json:"author_id"`
	Username  string    `json:"username"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsVoted   bool      `json:"is_voted"`
	VoteCount int64     `json:"vote_count"`
}

type Comment struct {
	ID        CommentID  `json:"id"`
	ThreadID  int64      `json:"-"`
	ParentID  *CommentID `json:"parent_id"`
	AuthorID  int64      `json:"author_id"`
	Username  string     `json:"username"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	IsVoted   bool       `json:"is_voted"`
	VoteCount int64      `json:"vote_count"`
}

type Profile struct {
	Username  string    `json:"username"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Following bool      `json:"following"`
}

// VoteKind selects which vote set a cast or uncast applies to.
type VoteKind string

const (
	VoteThread  VoteKind = "thread"
	VoteComment VoteKind = "comment"
)

func (k VoteKind) Valid() bool {
	return k == VoteThread || k == VoteComment
}
