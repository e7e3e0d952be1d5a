package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"commentservice/internal/apperr"
	"commentservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWritesThrough(t *testing.T) {
	st := newMemStore()
	svc := newTestServices(t, st)
	ctx := context.Background()

	c, err := svc.Coordinator.CreateComment(ctx, 0, "Test Comment 1", "John Doe")
	require.NoError(t, err)
	assert.Equal(t, 1, st.callCount("insert"))
	assert.Equal(t, "Test Comment 1", st.comments[c.ID].Body)

	_, err = svc.Coordinator.CreateComment(ctx, 77, "orphan", "x")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 1, st.callCount("insert"))
}

func TestTransientFailuresAreRetried(t *testing.T) {
	st := newMemStore()
	failures := 2
	st.fail = func(op string) error {
		if failures > 0 {
			failures--
			return errors.New("connection reset")
		}
		return nil
	}
	svc := newTestServices(t, st)

	c, err := svc.Coordinator.CreateComment(context.Background(), 0, "eventually", "u")
	require.NoError(t, err)
	assert.Equal(t, 3, st.callCount("insert"))

	got, err := svc.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "eventually", got.Body)
}

func TestPersistFailureLeavesMemoryUntouched(t *testing.T) {
	st := newMemStore()
	svc := newTestServices(t, st)
	ctx := context.Background()

	c, err := svc.Coordinator.CreateComment(ctx, 0, "original", "u")
	require.NoError(t, err)

	st.fail = func(string) error { return errors.New("database is down") }

	_, err = svc.Coordinator.UpdateComment(ctx, c.ID, "edited", "u")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 3, st.callCount("update"))

	_, err = svc.Coordinator.CreateComment(ctx, c.ID, "lost reply", "u")
	require.Error(t, err)
	_, err = svc.Coordinator.UpsertReaction(ctx, c.ID, "u", models.ReactionLike)
	require.Error(t, err)

	got, err := svc.Comments.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Body)
	assert.Empty(t, got.Children)
	assert.Equal(t, int64(0), got.LikeCount)
}

func TestConflictIsNotRetried(t *testing.T) {
	st := newMemStore()
	st.fail = func(string) error { return apperr.Conflict(errors.New("duplicate key"), "comment exists") }
	svc := newTestServices(t, st)

	_, err := svc.Coordinator.CreateComment(context.Background(), 0, "dup", "u")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 1, st.callCount("insert"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	st := newMemStore()
	svc := newTestServices(t, st)
	ctx := context.Background()

	c, err := svc.Coordinator.CreateComment(ctx, 0, "body", "Virat Kohli")
	require.NoError(t, err)

	first, err := svc.Coordinator.DeleteComment(ctx, c.ID, "Virat Kohli")
	require.NoError(t, err)
	second, err := svc.Coordinator.DeleteComment(ctx, c.ID, "Virat Kohli")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.callCount("update"))

	_, err = svc.Coordinator.UpdateComment(ctx, c.ID, "back again", "Virat Kohli")
	assert.True(t, errors.Is(err, apperr.ErrAlreadyDeleted))
}

func TestReactionLifecycle(t *testing.T) {
	st := newMemStore()
	svc := newTestServices(t, st)
	ctx := context.Background()

	c, err := svc.Coordinator.CreateComment(ctx, 0, "body", "author")
	require.NoError(t, err)

	_, err = svc.Coordinator.UpsertReaction(ctx, c.ID, "u1", models.ReactionLike)
	require.NoError(t, err)
	_, err = svc.Coordinator.UpsertReaction(ctx, c.ID, "u1", models.ReactionDislike)
	require.NoError(t, err)

	view, err := svc.Comments.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.LikeCount)
	assert.Equal(t, int64(1), view.DislikeCount)

	removed, err := svc.Coordinator.RemoveReaction(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.Coordinator.RemoveReaction(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, st.callCount("delete_reaction"))

	_, err = svc.Coordinator.UpsertReaction(ctx, c.ID, "u1", models.ReactionType("MEH"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
	_, err = svc.Coordinator.UpsertReaction(ctx, 0, "u1", models.ReactionLike)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReadAfterWriteIsFresh(t *testing.T) {
	svc := newTestServices(t, nil)
	ctx := context.Background()

	c, err := svc.Coordinator.CreateComment(ctx, 0, "before", "u")
	require.NoError(t, err)

	page, err := svc.Tree.NextLevel(ctx, 0, 0, 10)
	require.NoError(t, err)
	require.Equal(t, "before", page.Comments[0].Comment.Body)

	_, err = svc.Coordinator.UpdateComment(ctx, c.ID, "after", "u")
	require.NoError(t, err)

	page, err = svc.Tree.NextLevel(ctx, 0, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "after", page.Comments[0].Comment.Body)

	_, err = svc.Coordinator.CreateComment(ctx, 0, "second", "u")
	require.NoError(t, err)
	tree, err := svc.Tree.FullTree(ctx, 0, 5)
	require.NoError(t, err)
	assert.Len(t, tree.Comments, 2)
}

func TestConcurrentMutations(t *testing.T) {
	svc := newTestServices(t, newMemStore())
	ctx := context.Background()

	parent, err := svc.Coordinator.CreateComment(ctx, 0, "parent", "u")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Coordinator.CreateComment(ctx, parent.ID, "reply", "u")
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			rt := models.ReactionLike
			if i%3 == 0 {
				rt = models.ReactionDislike
			}
			_, err := svc.Coordinator.UpsertReaction(ctx, parent.ID, fmt.Sprintf("user-%d", i%20), rt)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := svc.Comments.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, view.Children, 50)
	assert.Equal(t, int64(50), view.Replies)

	likes, err := svc.Reactions.UsersFor(ctx, parent.ID, models.ReactionLike, 0, 100)
	require.NoError(t, err)
	dislikes, err := svc.Reactions.UsersFor(ctx, parent.ID, models.ReactionDislike, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(likes.Size), view.LikeCount)
	assert.Equal(t, int64(dislikes.Size), view.DislikeCount)
	assert.Equal(t, 20, likes.Size+dislikes.Size)
}

func TestRestore(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	first := newTestServices(t, st)
	a, err := first.Coordinator.CreateComment(ctx, 0, "a", "u")
	require.NoError(t, err)
	b, err := first.Coordinator.CreateComment(ctx, a.ID, "b", "u")
	require.NoError(t, err)
	_, err = first.Coordinator.DeleteComment(ctx, b.ID, "u")
	require.NoError(t, err)
	_, err = first.Coordinator.UpsertReaction(ctx, a.ID, "u1", models.ReactionLike)
	require.NoError(t, err)
	_, err = first.Coordinator.UpsertReaction(ctx, a.ID, "u2", models.ReactionLike)
	require.NoError(t, err)

	second := newTestServices(t, st)
	require.NoError(t, second.Restore(ctx))

	view, err := second.Comments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, view.Children)
	assert.Equal(t, int64(2), view.LikeCount)

	deleted, err := second.Comments.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, 1, deleted.Level)

	c, err := second.Coordinator.CreateComment(ctx, 0, "c", "u")
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID)
}
