package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"commentservice/internal/config"
	"commentservice/internal/models"
	"commentservice/internal/persist"

	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		DBMaxRetries:         3,
		DBRetryBase:          time.Millisecond,
		CacheSize:            100,
		CacheTTL:             time.Minute,
		FullTreeDefaultDepth: 5,
		FullTreeDepthLimit:   64,
		CountSyncInterval:    10 * time.Millisecond,
		CountSyncBatch:       50,
	}
}

// memStore records writes and can be told to fail.
type memStore struct {
	mu        sync.Mutex
	comments  map[int64]models.Comment
	reactions map[string]models.Reaction
	counts    map[string]int64
	calls     map[string]int

	fail func(op string) error
}

var _ persist.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		comments:  make(map[int64]models.Comment),
		reactions: make(map[string]models.Reaction),
		counts:    make(map[string]int64),
		calls:     make(map[string]int),
	}
}

func reactionKey(commentID int64, user string) string {
	return fmt.Sprintf("%d/%s", commentID, user)
}

func (m *memStore) enter(op string) error {
	m.calls[op]++
	if m.fail != nil {
		return m.fail(op)
	}
	return nil
}

func (m *memStore) InsertComment(_ context.Context, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("insert"); err != nil {
		return err
	}
	m.comments[c.ID] = c
	return nil
}

func (m *memStore) UpdateComment(_ context.Context, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("update"); err != nil {
		return err
	}
	m.comments[c.ID] = c
	return nil
}

func (m *memStore) SaveReaction(_ context.Context, r models.Reaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("save_reaction"); err != nil {
		return err
	}
	m.reactions[reactionKey(r.CommentID, r.User)] = r
	return nil
}

func (m *memStore) DeleteReaction(_ context.Context, commentID int64, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("delete_reaction"); err != nil {
		return err
	}
	delete(m.reactions, reactionKey(commentID, user))
	return nil
}

func (m *memStore) SaveReactionCounts(_ context.Context, counts []models.ReactionCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("counts"); err != nil {
		return err
	}
	for _, rc := range counts {
		m.counts[reactionKey(rc.CommentID, string(rc.ReactionType))] = rc.Count
	}
	return nil
}

func (m *memStore) Load(context.Context) (*persist.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &persist.Snapshot{}
	for _, c := range m.comments {
		snap.Comments = append(snap.Comments, c)
	}
	for _, r := range m.reactions {
		snap.Reactions = append(snap.Reactions, r)
	}
	return snap, nil
}

func (m *memStore) count(commentID int64, t models.ReactionType) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.counts[reactionKey(commentID, string(t))]
	return n, ok
}

func (m *memStore) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func newTestServices(t *testing.T, st persist.Store) *Services {
	t.Helper()
	svc, err := New(testConfig(), st)
	require.NoError(t, err)
	return svc
}
