package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := Open(path)
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustUser(t *testing.T, st *Store, name string) model.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), &model.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func mustThread(t *testing.T, st *Store, author model.User, slug string) model.Thread {
	t.Helper()
	th, err := st.CreateThread(context.Background(), &model.Thread{
		AuthorID: author.ID,
		Slug:     slug,
		Title:    slug,
		Content:  "body",
	})
	require.NoError(t, err)
	return th
}

func TestMigrationsAreIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, applySchema(st.db))

	var version int
	require.NoError(t, st.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	require.Equal(t, len(migrations), version)
}

func TestUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice")
	require.NotZero(t, alice.ID)

	got, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "hash", got.PasswordHash)

	byID, err := st.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)

	_, err = st.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.CreateUser(ctx, &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	ve, ok := store.AsValidation(err)
	require.True(t, ok, "got %v", err)
	require.Contains(t, ve.Fields, "username")

	_, err = st.CreateUser(ctx, &model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	ve, ok = store.AsValidation(err)
	require.True(t, ok, "got %v", err)
	require.Contains(t, ve.Fields, "email")
}

func TestUsersWithoutEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, &model.User{Username: "a", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, &model.User{Username: "b", PasswordHash: "x"})
	require.NoError(t, err)
}

func TestDuplicateSlug(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")

	mustThread(t, st, alice, "hello-world")
	_, err := st.CreateThread(ctx, &model.Thread{AuthorID: alice.ID, Slug: "hello-world", Title: "Hello world", Content: "again"})
	ve, ok := store.AsValidation(err)
	require.True(t, ok, "got %v", err)
	require.Equal(t, []string{"duplicate thread slug: hello-world"}, ve.Fields["slug"])

	threads, err := st.ListThreads(ctx, nil)
	require.NoError(t, err)
	require.Len(t, threads, 1)
}

func TestThreadVisibility(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")
	bob := mustUser(t, st, "bob")
	th := mustThread(t, st, alice, "hello-world")
	require.Equal(t, "alice", th.Username)
	require.Zero(t, th.VoteCount)
	require.False(t, th.IsVoted)

	count, err := st.CastVote(ctx, model.VoteThread, th.ID, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	got, err := st.GetThread(ctx, "hello-world", &alice.ID)
	require.NoError(t, err)
	require.True(t, got.IsVoted)
	require.EqualValues(t, 1, got.VoteCount)

	got, err = st.GetThread(ctx, "hello-world", &bob.ID)
	require.NoError(t, err)
	require.False(t, got.IsVoted)

	got, err = st.GetThread(ctx, "hello-world", nil)
	require.NoError(t, err)
	require.False(t, got.IsVoted)
	require.EqualValues(t, 1, got.VoteCount)

	_, err = st.GetThread(ctx, "missing", nil)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIsVotedIsPerItem(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")
	first := mustThread(t, st, alice, "first")
	mustThread(t, st, alice, "second")

	_, err := st.CastVote(ctx, model.VoteThread, first.ID, alice.ID)
	require.NoError(t, err)

	threads, err := st.ListThreads(ctx, &alice.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	for _, th := range threads {
		require.Equal(t, th.Slug == "first", th.IsVoted, th.Slug)
	}
}

func TestVoteIdempotence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")
	bob := mustUser(t, st, "bob")
	th := mustThread(t, st, alice, "t")

	for i := 0; i < 2; i++ {
		count, err := st.CastVote(ctx, model.VoteThread, th.ID, bob.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	}

	count, err := st.UncastVote(ctx, model.VoteThread, th.ID, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "uncasting a vote never cast is a no-op")

	count, err = st.UncastVote(ctx, model.VoteThread, th.ID, bob.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = st.UncastVote(ctx, model.VoteThread, th.ID, bob.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = st.CastVote(ctx, model.VoteThread, 9999, bob.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.CastVote(ctx, model.VoteKind("story"), th.ID, bob.ID)
	require.Error(t, err)
}

func TestListThreadsByAuthor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")
	bob := mustUser(t, st, "bob")
	mustThread(t, st, alice, "a1")
	mustThread(t, st, bob, "b1")
	mustThread(t, st, alice, "a2")

	threads, err := st.ListThreadsByAuthor(ctx, "alice", nil)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, "a2", threads[0].Slug)
	require.Equal(t, "a1", threads[1].Slug)

	_, err = st.ListThreadsByAuthor(ctx, "nobody", nil)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListThreadsNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")

	old := time.Now().Add(-time.Hour)
	_, err := st.CreateThread(ctx, &model.Thread{AuthorID: alice.ID, Slug: "old", Title: "old", Content: "x", CreatedAt: old})
	require.NoError(t, err)
	mustThread(t, st, alice, "new")

	threads, err := st.ListThreads(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "old"}, []string{threads[0].Slug, threads[1].Slug})
	require.Equal(t, old.Unix(), threads[1].CreatedAt.Unix())
}

func TestEmptyListsAreNotNil(t *testing.T) {
	st := newTestStore(t)
	threads, err := st.ListThreads(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, threads)
	require.Empty(t, threads)
}

func TestCountsAndOptimize(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")
	mustThread(t, st, alice, "first")

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts["users"])
	require.EqualValues(t, 1, counts["threads"])
	require.Zero(t, counts["comments"])
	require.Len(t, counts, 6)

	require.NoError(t, st.Optimize(ctx))
}
