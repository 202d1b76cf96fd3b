package store

import (
	"context"

	"github.com/alphabot-ai/forum/internal/model"
)

// Viewer is the optional identity a read is personalized for. A nil
// Viewer never matches a vote row.
type Viewer = *int64

type Store interface {
	UserStore
	ThreadStore
	CommentStore
	VoteStore
	FollowStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
}

type ThreadStore interface {
	CreateThread(ctx context.Context, thread *model.Thread) (model.Thread, error)
	GetThread(ctx context.Context, slug string, viewer Viewer) (model.Thread, error)
	ListThreads(ctx context.Context, viewer Viewer) ([]model.Thread, error)
	ListThreadsByAuthor(ctx context.Context, username string, viewer Viewer) ([]model.Thread, error)
	ThreadID(ctx context.Context, slug string) (int64, error)
}

type CommentStore interface {
	CreateRootComment(ctx context.Context, slug string, authorID int64, content string) (model.Comment, error)
	CreateReply(ctx context.Context, slug string, parent model.CommentID, authorID int64, content string) (model.Comment, error)
	GetComment(ctx context.Context, slug string, id model.CommentID, viewer Viewer) (model.Comment, error)
	ListTopLevelComments(ctx context.Context, slug string, viewer Viewer) ([]model.Comment, error)
	ListChildComments(ctx context.Context, slug string, parent model.CommentID, viewer Viewer) ([]model.Comment, error)
	CommentID(ctx context.Context, slug string, id model.CommentID) (int64, error)
}

type VoteStore interface {
	CastVote(ctx context.Context, kind model.VoteKind, targetID, voterID int64) (int64, error)
	UncastVote(ctx context.Context, kind model.VoteKind, targetID, voterID int64) (int64, error)
	CountVotes(ctx context.Context, kind model.VoteKind, targetID int64) (int64, error)
}

type FollowStore interface {
	Follow(ctx context.Context, followerID int64, username string) (model.Profile, error)
	Unfollow(ctx context.Context, followerID int64, username string) (model.Profile, error)
	GetProfile(ctx context.Context, username string, viewer Viewer) (model.Profile, error)
}
