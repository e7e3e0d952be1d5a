package store

import (
	"errors"
	"sync"
	"testing"

	"commentservice/internal/apperr"
	"commentservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComments(opts ...Option) *CommentStore {
	return NewCommentStore(NewAllocator(), opts...)
}

func TestCreateLinksChildren(t *testing.T) {
	s := newTestComments()

	top, err := s.Create(0, "first", "John Doe", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), top.ID)
	assert.Equal(t, 0, top.Level)
	assert.False(t, top.IsDeleted)

	reply, err := s.Create(top.ID, "reply", "Jane", nil)
	require.NoError(t, err)
	assert.Equal(t, top.ID, reply.ParentID)
	assert.Equal(t, 1, reply.Level)

	rootKids, err := s.Children(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{top.ID}, rootKids)

	kids, err := s.Children(top.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{reply.ID}, kids)

	n, err := s.Node(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.Replies)
	assert.Equal(t, 2, s.Len())
}

func TestCreateUnknownParent(t *testing.T) {
	s := newTestComments()

	_, err := s.Create(42, "orphan", "x", nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 0, s.Len())
}

func TestCreateCommitFailureLeavesStoreUntouched(t *testing.T) {
	s := newTestComments()
	boom := errors.New("db down")

	_, err := s.Create(0, "lost", "x", func(models.Comment) error { return boom })
	assert.ErrorIs(t, err, boom)

	kids, err := s.Children(0)
	require.NoError(t, err)
	assert.Empty(t, kids)

	// the claimed id is skipped, never reused
	c, err := s.Create(0, "kept", "x", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.ID)
}

func TestTreeIntegrity(t *testing.T) {
	s := newTestComments()
	parents := []int64{0, 0, 1, 1, 3, 5, 2, 0, 7}
	for i, pid := range parents {
		_, err := s.Create(pid, "body", "u", nil)
		require.NoError(t, err, "create %d", i)
	}

	for id := int64(1); id <= int64(len(parents)); id++ {
		c, err := s.Get(id)
		require.NoError(t, err)
		assert.Less(t, c.ParentID, c.ID)

		kids, err := s.Children(c.ParentID)
		require.NoError(t, err)
		assert.Contains(t, kids, c.ID)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestComments()
	c, err := s.Create(0, "Test Comment 1", "John Doe", nil)
	require.NoError(t, err)

	updated, err := s.Update(c.ID, "Test Comment 1 edited", "John Doe", nil)
	require.NoError(t, err)
	assert.Equal(t, "Test Comment 1 edited", updated.Body)
	assert.Equal(t, c.ParentID, updated.ParentID)

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Comment 1 edited", got.Body)

	_, err = s.Update(99, "x", "x", nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateDeletedFails(t *testing.T) {
	s := newTestComments()
	c, err := s.Create(0, "body", "u", nil)
	require.NoError(t, err)
	_, err = s.SoftDelete(c.ID, "u", nil)
	require.NoError(t, err)

	_, err = s.Update(c.ID, "resurrected", "u", nil)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyDeleted))

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedBody, got.Body)
}

func TestSoftDeleteIdempotent(t *testing.T) {
	s := newTestComments()
	c, err := s.Create(0, "body", "Virat Kohli", nil)
	require.NoError(t, err)

	commits := 0
	commit := func(models.Comment) error {
		commits++
		return nil
	}

	first, err := s.SoftDelete(c.ID, "Virat Kohli", commit)
	require.NoError(t, err)
	second, err := s.SoftDelete(c.ID, "someone else", commit)
	require.NoError(t, err)

	assert.Equal(t, models.DeletedBody, first.Body)
	assert.True(t, first.IsDeleted)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.IsDeleted, second.IsDeleted)
	assert.Equal(t, 1, commits)
}

func TestSoftDeleteKeepsDescendants(t *testing.T) {
	s := newTestComments()
	a, _ := s.Create(0, "a", "u", nil)
	b, _ := s.Create(a.ID, "b", "u", nil)
	c, _ := s.Create(b.ID, "c", "u", nil)

	before, err := s.Node(a.ID)
	require.NoError(t, err)

	_, err = s.SoftDelete(a.ID, "u", nil)
	require.NoError(t, err)

	after, err := s.Node(a.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Children, after.Children)
	assert.Equal(t, before.Replies, after.Replies)

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Body)
}

func TestOwnershipCheck(t *testing.T) {
	s := newTestComments(WithOwnershipCheck(true))
	c, err := s.Create(0, "mine", "alice", nil)
	require.NoError(t, err)

	_, err = s.Update(c.ID, "theirs", "bob", nil)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	_, err = s.SoftDelete(c.ID, "bob", nil)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = s.SoftDelete(c.ID, "alice", nil)
	assert.NoError(t, err)
}

func TestRootIsNotAComment(t *testing.T) {
	s := newTestComments()

	_, err := s.Get(0)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, s.Exists(0))

	_, err = s.Children(0)
	assert.NoError(t, err)

	_, err = s.Children(5)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestConcurrentCreatesUnderOneParent(t *testing.T) {
	s := newTestComments()
	parent, err := s.Create(0, "parent", "u", nil)
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(parent.ID, "reply", "u", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	kids, err := s.Children(parent.ID)
	require.NoError(t, err)
	assert.Len(t, kids, n)

	seen := make(map[int64]bool)
	for _, id := range kids {
		assert.False(t, seen[id], "duplicate child %d", id)
		seen[id] = true
		assert.True(t, s.Exists(id))
	}
}

func TestRestore(t *testing.T) {
	s := newTestComments()
	rows := []models.Comment{
		{ID: 4, ParentID: 2, Body: "d", User: "u"},
		{ID: 1, ParentID: 0, Body: "a", User: "u"},
		{ID: 2, ParentID: 1, Body: "b", User: "u", IsDeleted: true},
		{ID: 3, ParentID: 0, Body: "c", User: "u"},
	}
	require.NoError(t, s.Restore(rows))

	rootKids, _ := s.Children(0)
	assert.Equal(t, []int64{1, 3}, rootKids)

	d, err := s.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Level)

	next, err := s.Create(0, "new", "u", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.ID)
}

func TestRestoreOrphan(t *testing.T) {
	s := newTestComments()
	err := s.Restore([]models.Comment{{ID: 2, ParentID: 1}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
