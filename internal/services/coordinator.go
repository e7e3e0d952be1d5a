package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"commentservice/internal/apperr"
	"commentservice/internal/logger"
	"commentservice/internal/models"
	"commentservice/internal/persist"
	"commentservice/internal/store"
	"commentservice/internal/utils"

	"github.com/sirupsen/logrus"
)

const lockStripes = 256

const defaultWriteTimeout = 10 * time.Second

// Coordinator serializes mutations per comment, writes them through to the
// persistence store and only then publishes them in memory.
type Coordinator struct {
	comments  *store.CommentStore
	reactions *store.ReactionStore
	store     persist.Store
	cache     *utils.ReadCache
	counts    *CountSyncService
	retry     utils.Retry

	// bounds a write, retries included, once it is detached from the request
	writeTimeout time.Duration

	locks [lockStripes]sync.Mutex
}

// NewCoordinator wires the mutation path. cache and counts may be nil.
func NewCoordinator(comments *store.CommentStore, reactions *store.ReactionStore, st persist.Store, cache *utils.ReadCache, counts *CountSyncService, retry utils.Retry) *Coordinator {
	if st == nil {
		st = persist.Nop{}
	}
	return &Coordinator{
		comments:     comments,
		reactions:    reactions,
		store:        st,
		cache:        cache,
		counts:       counts,
		retry:        retry,
		writeTimeout: defaultWriteTimeout,
	}
}

func (c *Coordinator) lock(id int64) func() {
	m := &c.locks[uint64(id)%lockStripes]
	m.Lock()
	return m.Unlock
}

func shouldRetry(err error) bool {
	if apperr.IsClient(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// persist runs write with retries on a context detached from the caller's, so
// a client that goes away cannot leave the database ahead of memory.
func (c *Coordinator) persist(ctx context.Context, op string, write func(ctx context.Context) error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
	defer cancel()

	start := time.Now()
	err := utils.RetryFunc(wctx, write, shouldRetry, c.retry)
	persistDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !apperr.IsClient(err) {
		logger.For(ctx).WithError(err).WithField("op", op).Error("Failed to persist mutation")
	}
	return err
}

// done records the outcome and, on success, retires cached reads before
// the mutation returns to its caller.
func (c *Coordinator) done(op string, err error) {
	mutationTotal.WithLabelValues(op, resultLabel(err)).Inc()
	if err == nil {
		c.cache.Invalidate()
	}
}

// CreateComment adds a reply under parentID, or a top-level comment for parentID 0.
func (c *Coordinator) CreateComment(ctx context.Context, parentID int64, body, user string) (models.Comment, error) {
	unlock := c.lock(parentID)
	defer unlock()

	created, err := c.comments.Create(parentID, body, user, func(rec models.Comment) error {
		return c.persist(ctx, "create_comment", func(ctx context.Context) error {
			return c.store.InsertComment(ctx, rec)
		})
	})
	c.done("create_comment", err)
	if err != nil {
		return models.Comment{}, err
	}

	logger.For(ctx).WithFields(logrus.Fields{
		"commentId": created.ID,
		"parentId":  parentID,
	}).Info("Created comment")
	return created, nil
}

func (c *Coordinator) UpdateComment(ctx context.Context, id int64, body, user string) (models.Comment, error) {
	unlock := c.lock(id)
	defer unlock()

	updated, err := c.comments.Update(id, body, user, func(rec models.Comment) error {
		return c.persist(ctx, "update_comment", func(ctx context.Context) error {
			return c.store.UpdateComment(ctx, rec)
		})
	})
	c.done("update_comment", err)
	if err != nil {
		return models.Comment{}, err
	}

	logger.For(ctx).WithField("commentId", id).Info("Updated comment")
	return updated, nil
}

// DeleteComment soft-deletes id. Repeating it is harmless.
func (c *Coordinator) DeleteComment(ctx context.Context, id int64, user string) (models.Comment, error) {
	unlock := c.lock(id)
	defer unlock()

	deleted, err := c.comments.SoftDelete(id, user, func(rec models.Comment) error {
		return c.persist(ctx, "delete_comment", func(ctx context.Context) error {
			return c.store.UpdateComment(ctx, rec)
		})
	})
	c.done("delete_comment", err)
	if err != nil {
		return models.Comment{}, err
	}

	logger.For(ctx).WithField("commentId", id).Info("Deleted comment")
	return deleted, nil
}

// UpsertReaction sets the user's reaction on the comment, replacing any other type.
func (c *Coordinator) UpsertReaction(ctx context.Context, commentID int64, user string, t models.ReactionType) (models.Reaction, error) {
	unlock := c.lock(commentID)
	defer unlock()

	r, err := c.reactions.Upsert(commentID, user, t, func(rec models.Reaction) error {
		return c.persist(ctx, "upsert_reaction", func(ctx context.Context) error {
			return c.store.SaveReaction(ctx, rec)
		})
	})
	c.done("upsert_reaction", err)
	if err != nil {
		return models.Reaction{}, err
	}
	c.scheduleCounts(commentID)

	logger.For(ctx).WithFields(logrus.Fields{
		"commentId":    commentID,
		"reactionType": t,
	}).Info("Saved reaction")
	return r, nil
}

// RemoveReaction deletes the user's reaction. It reports false when there was none.
func (c *Coordinator) RemoveReaction(ctx context.Context, commentID int64, user string) (bool, error) {
	unlock := c.lock(commentID)
	defer unlock()

	removed, err := c.reactions.Remove(commentID, user, func(rec models.Reaction) error {
		return c.persist(ctx, "remove_reaction", func(ctx context.Context) error {
			return c.store.DeleteReaction(ctx, rec.CommentID, rec.User)
		})
	})
	c.done("remove_reaction", err)
	if err != nil {
		return false, err
	}
	if removed {
		c.scheduleCounts(commentID)
		logger.For(ctx).WithField("commentId", commentID).Info("Removed reaction")
	} else {
		logger.For(ctx).WithField("commentId", commentID).Debug("No reaction to remove")
	}
	return removed, nil
}

func (c *Coordinator) scheduleCounts(commentID int64) {
	if c.counts != nil {
		c.counts.Schedule(commentID)
	}
}
