package services

import (
	"context"
	"time"

	"commentservice/internal/config"
	"commentservice/internal/logger"
	"commentservice/internal/persist"
	"commentservice/internal/store"
	"commentservice/internal/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Services holds the in-memory stores and everything built on them.
type Services struct {
	Comments    *CommentService
	Reactions   *ReactionService
	Tree        *TreeService
	Coordinator *Coordinator
	Counts      *CountSyncService

	commentStore  *store.CommentStore
	reactionStore *store.ReactionStore
	persist       persist.Store
}

// New builds the service graph over st. Nothing is loaded until Restore.
func New(cfg *config.Config, st persist.Store) (*Services, error) {
	if st == nil {
		st = persist.Nop{}
	}
	cache, err := utils.NewReadCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	comments := store.NewCommentStore(store.NewAllocator(), store.WithOwnershipCheck(cfg.EnforceOwnership))
	reactions := store.NewReactionStore(comments)
	counts := NewCountSyncService(reactions, st, cfg.CountSyncInterval, cfg.CountSyncBatch)
	retry := utils.Retry{Base: cfg.DBRetryBase, Cap: 2 * time.Second, Tries: cfg.DBMaxRetries}

	coordinator := NewCoordinator(comments, reactions, st, cache, counts, retry)
	if cfg.PersistTimeout > 0 {
		coordinator.writeTimeout = cfg.PersistTimeout
	}

	views := NewCommentService(comments, reactions)
	return &Services{
		Comments:      views,
		Reactions:     NewReactionService(reactions, cache),
		Tree:          NewTreeService(comments, views, cache, cfg.FullTreeDepthLimit),
		Coordinator:   coordinator,
		Counts:        counts,
		commentStore:  comments,
		reactionStore: reactions,
		persist:       st,
	}, nil
}

// Restore loads the persisted comments and reactions into the empty stores.
func (s *Services) Restore(ctx context.Context) error {
	snap, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.commentStore.Restore(snap.Comments); err != nil {
		return errors.Wrap(err, "restore comments")
	}
	skipped := s.reactionStore.Restore(snap.Reactions)

	entry := logger.For(ctx).WithFields(logrus.Fields{
		"comments":  len(snap.Comments),
		"reactions": len(snap.Reactions) - skipped,
	})
	if skipped > 0 {
		entry.WithField("skipped", skipped).Warn("Restored state, some reactions reference unknown comments")
		return nil
	}
	entry.Info("Restored state")
	return nil
}
