package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"commentservice/internal/apperr"
	"commentservice/internal/models"
)

// Existence answers whether a comment id may carry reactions.
type Existence interface {
	Exists(id int64) bool
}

// ReactionCommitFunc persists a reaction write before it is applied in memory.
type ReactionCommitFunc func(models.Reaction) error

type reactionSet struct {
	mu     sync.RWMutex
	byUser map[string]models.Reaction
	counts models.ReactionCounts
}

// ReactionStore keeps one reaction per (comment, user) and per-comment
// counters that are adjusted in the same critical section as the reaction
// they derive from.
type ReactionStore struct {
	mu   sync.RWMutex
	sets map[int64]*reactionSet

	comments Existence
	seq      atomic.Uint64
	now      func() time.Time
}

func NewReactionStore(comments Existence) *ReactionStore {
	return &ReactionStore{
		sets:     make(map[int64]*reactionSet),
		comments: comments,
		now:      time.Now,
	}
}

func (s *ReactionStore) lookup(commentID int64) *reactionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets[commentID]
}

func (s *ReactionStore) setFor(commentID int64) *reactionSet {
	if set := s.lookup(commentID); set != nil {
		return set
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[commentID]
	if !ok {
		set = &reactionSet{
			byUser: make(map[string]models.Reaction),
			counts: make(models.ReactionCounts),
		}
		s.sets[commentID] = set
	}
	return set
}

func (s *ReactionStore) checkComment(commentID int64) error {
	if !s.comments.Exists(commentID) {
		return apperr.NotFound("comment %d not found", commentID)
	}
	return nil
}

// Upsert creates the user's reaction or overwrites its type.
func (s *ReactionStore) Upsert(commentID int64, user string, t models.ReactionType, commit ReactionCommitFunc) (models.Reaction, error) {
	if !t.Valid() {
		return models.Reaction{}, apperr.InvalidArgument("unknown reaction type %q", t)
	}
	if err := s.checkComment(commentID); err != nil {
		return models.Reaction{}, err
	}

	set := s.setFor(commentID)
	set.mu.RLock()
	prev, had := set.byUser[user]
	set.mu.RUnlock()

	now := s.now()
	next := models.Reaction{
		CommentID:    commentID,
		User:         user,
		ReactionType: t,
		Seq:          s.seq.Add(1),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if had {
		next.CreatedAt = prev.CreatedAt
	}
	if commit != nil {
		if err := commit(next); err != nil {
			return models.Reaction{}, err
		}
	}

	set.mu.Lock()
	set.apply(next)
	set.mu.Unlock()
	return next, nil
}

func (set *reactionSet) apply(r models.Reaction) {
	if old, ok := set.byUser[r.User]; ok {
		set.counts[old.ReactionType]--
	}
	set.counts[r.ReactionType]++
	set.byUser[r.User] = r
}

// Remove deletes the user's reaction. It reports false, without error, when
// the user had none.
func (s *ReactionStore) Remove(commentID int64, user string, commit ReactionCommitFunc) (bool, error) {
	if err := s.checkComment(commentID); err != nil {
		return false, err
	}
	set := s.lookup(commentID)
	if set == nil {
		return false, nil
	}

	set.mu.RLock()
	prev, ok := set.byUser[user]
	set.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if commit != nil {
		if err := commit(prev); err != nil {
			return false, err
		}
	}

	set.mu.Lock()
	if old, ok := set.byUser[user]; ok {
		set.counts[old.ReactionType]--
		delete(set.byUser, user)
	}
	set.mu.Unlock()
	return true, nil
}

// Get returns the user's current reaction on the comment.
func (s *ReactionStore) Get(commentID int64, user string) (models.Reaction, bool) {
	set := s.lookup(commentID)
	if set == nil {
		return models.Reaction{}, false
	}
	set.mu.RLock()
	defer set.mu.RUnlock()
	r, ok := set.byUser[user]
	return r, ok
}

// UsersFor lists the users holding reaction t on the comment, most recently
// affected first.
func (s *ReactionStore) UsersFor(commentID int64, t models.ReactionType) ([]string, error) {
	if !t.Valid() {
		return nil, apperr.InvalidArgument("unknown reaction type %q", t)
	}
	if err := s.checkComment(commentID); err != nil {
		return nil, err
	}

	users := []string{}
	set := s.lookup(commentID)
	if set == nil {
		return users, nil
	}

	set.mu.RLock()
	matched := make([]models.Reaction, 0, set.counts[t])
	for _, r := range set.byUser {
		if r.ReactionType == t {
			matched = append(matched, r)
		}
	}
	set.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Seq > matched[j].Seq })
	for _, r := range matched {
		users = append(users, r.User)
	}
	return users, nil
}

// CountsFor returns the maintained counters of every reaction type.
func (s *ReactionStore) CountsFor(commentID int64) models.ReactionCounts {
	out := make(models.ReactionCounts, len(models.AllReactionTypes))
	for _, t := range models.AllReactionTypes {
		out[t] = 0
	}
	set := s.lookup(commentID)
	if set == nil {
		return out
	}
	set.mu.RLock()
	for t, n := range set.counts {
		out[t] = n
	}
	set.mu.RUnlock()
	return out
}

// Restore loads persisted reactions and rebuilds the counters. Reactions on
// unknown comments are skipped and reported.
func (s *ReactionStore) Restore(rows []models.Reaction) (skipped int) {
	sorted := append([]models.Reaction(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, r := range sorted {
		if !s.comments.Exists(r.CommentID) || !r.ReactionType.Valid() {
			skipped++
			continue
		}
		set := s.setFor(r.CommentID)
		set.mu.Lock()
		set.apply(r)
		set.mu.Unlock()

		for {
			cur := s.seq.Load()
			if r.Seq <= cur || s.seq.CompareAndSwap(cur, r.Seq) {
				break
			}
		}
	}
	return skipped
}
