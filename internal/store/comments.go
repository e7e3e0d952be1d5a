package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"commentservice/internal/apperr"
	"commentservice/internal/models"
)

// CommitFunc persists a record before it becomes visible in memory.
// A non-nil error aborts the mutation and leaves the store unchanged.
type CommitFunc func(models.Comment) error

type node struct {
	mu       sync.RWMutex
	comment  models.Comment
	children []int64

	// immutable after publish
	id       int64
	parentID int64
	level    int

	replies atomic.Int64
}

// Node is a point-in-time copy of one arena entry.
type Node struct {
	Comment  models.Comment
	Children []int64
	Replies  int64
}

// CommentStore is an arena of comments indexed by id. Each record keeps an
// explicit, insertion-ordered list of child ids; the implicit root (id 0)
// holds the top-level comments.
//
// Readers take per-node read locks. Mutations of the same comment must be
// serialized by the caller; creates under one parent are published under
// that parent's lock, so a new id is visible in the arena exactly when it is
// visible in the parent's children.
type CommentStore struct {
	mu    sync.RWMutex
	nodes map[int64]*node

	ids            *Allocator
	now            func() time.Time
	checkOwnership bool
}

type Option func(*CommentStore)

// WithOwnershipCheck rejects update and delete by anyone but the author.
func WithOwnershipCheck(enabled bool) Option {
	return func(s *CommentStore) {
		s.checkOwnership = enabled
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *CommentStore) {
		s.now = now
	}
}

func NewCommentStore(ids *Allocator, opts ...Option) *CommentStore {
	s := &CommentStore{
		nodes: make(map[int64]*node),
		ids:   ids,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	root := &node{id: models.RootID, parentID: models.RootID, level: -1}
	s.nodes[models.RootID] = root
	return s
}

func (s *CommentStore) lookup(id int64) *node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id]
}

// Exists reports whether id names a real comment. The root is not one.
func (s *CommentStore) Exists(id int64) bool {
	return id != models.RootID && s.lookup(id) != nil
}

// Len returns the number of comments, soft-deleted ones included.
func (s *CommentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes) - 1
}

// Create adds a reply under parentID, or a top-level comment when parentID is 0.
func (s *CommentStore) Create(parentID int64, body, user string, commit CommitFunc) (models.Comment, error) {
	parent := s.lookup(parentID)
	if parent == nil {
		return models.Comment{}, apperr.NotFound("parent comment %d not found", parentID)
	}

	now := s.now()
	c := models.Comment{
		ID:        s.ids.Next(),
		ParentID:  parentID,
		Body:      body,
		User:      user,
		Level:     parent.level + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if commit != nil {
		if err := commit(c); err != nil {
			return models.Comment{}, err
		}
	}

	s.publish(parent, c)
	return c, nil
}

func (s *CommentStore) publish(parent *node, c models.Comment) {
	n := &node{comment: c, id: c.ID, parentID: c.ParentID, level: c.Level}

	parent.mu.Lock()
	s.mu.Lock()
	s.nodes[c.ID] = n
	s.mu.Unlock()
	parent.children = append(parent.children, c.ID)
	parent.mu.Unlock()

	for anc := parent; anc != nil; {
		anc.replies.Add(1)
		if anc.id == models.RootID {
			break
		}
		anc = s.lookup(anc.parentID)
	}
}

// Update replaces the body of a live comment.
func (s *CommentStore) Update(id int64, body, user string, commit CommitFunc) (models.Comment, error) {
	n, cur, err := s.current(id)
	if err != nil {
		return models.Comment{}, err
	}
	if cur.IsDeleted {
		return models.Comment{}, apperr.AlreadyDeleted("comment %d is deleted", id)
	}
	if err := s.authorize(cur, user); err != nil {
		return models.Comment{}, err
	}

	next := cur
	next.Body = body
	next.UpdatedAt = s.now()
	if commit != nil {
		if err := commit(next); err != nil {
			return models.Comment{}, err
		}
	}

	n.mu.Lock()
	n.comment.Body = next.Body
	n.comment.UpdatedAt = next.UpdatedAt
	n.mu.Unlock()
	return next, nil
}

// SoftDelete replaces the body with the deletion sentinel and flags the
// comment. Deleting an already deleted comment returns it unchanged.
func (s *CommentStore) SoftDelete(id int64, user string, commit CommitFunc) (models.Comment, error) {
	n, cur, err := s.current(id)
	if err != nil {
		return models.Comment{}, err
	}
	if cur.IsDeleted {
		return cur, nil
	}
	if err := s.authorize(cur, user); err != nil {
		return models.Comment{}, err
	}

	next := cur
	next.Body = models.DeletedBody
	next.IsDeleted = true
	next.UpdatedAt = s.now()
	if commit != nil {
		if err := commit(next); err != nil {
			return models.Comment{}, err
		}
	}

	n.mu.Lock()
	n.comment.Body = next.Body
	n.comment.IsDeleted = true
	n.comment.UpdatedAt = next.UpdatedAt
	n.mu.Unlock()
	return next, nil
}

func (s *CommentStore) current(id int64) (*node, models.Comment, error) {
	if id == models.RootID {
		return nil, models.Comment{}, apperr.NotFound("comment %d not found", id)
	}
	n := s.lookup(id)
	if n == nil {
		return nil, models.Comment{}, apperr.NotFound("comment %d not found", id)
	}
	n.mu.RLock()
	cur := n.comment
	n.mu.RUnlock()
	return n, cur, nil
}

func (s *CommentStore) authorize(c models.Comment, user string) error {
	if s.checkOwnership && c.User != user {
		return apperr.Forbidden("user %q may not modify comment %d", user, c.ID)
	}
	return nil
}

// Get returns a copy of comment id.
func (s *CommentStore) Get(id int64) (models.Comment, error) {
	_, c, err := s.current(id)
	return c, err
}

// Children returns the insertion-ordered child ids of id. The root always exists.
func (s *CommentStore) Children(id int64) ([]int64, error) {
	n, err := s.Node(id)
	if err != nil {
		return nil, err
	}
	return n.Children, nil
}

// Node returns a consistent copy of the record, its children and its
// descendant count. Node(0) describes the root.
func (s *CommentStore) Node(id int64) (Node, error) {
	n := s.lookup(id)
	if n == nil {
		return Node{}, apperr.NotFound("comment %d not found", id)
	}
	n.mu.RLock()
	out := Node{
		Comment:  n.comment,
		Children: append([]int64(nil), n.children...),
	}
	n.mu.RUnlock()
	out.Replies = n.replies.Load()
	return out, nil
}

// Restore loads persisted comments into an empty store and seeds the allocator.
// Rows may come in any order; a row whose parent is missing is an error.
func (s *CommentStore) Restore(rows []models.Comment) error {
	sorted := append([]models.Comment(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, c := range sorted {
		if c.ID == models.RootID {
			continue
		}
		if s.lookup(c.ID) != nil {
			return apperr.Conflict(nil, "comment %d restored twice", c.ID)
		}
		parent := s.lookup(c.ParentID)
		if parent == nil {
			return apperr.NotFound("parent comment %d of comment %d not found", c.ParentID, c.ID)
		}
		c.Level = parent.level + 1
		s.publish(parent, c)
		s.ids.Seed(c.ID)
	}
	return nil
}
