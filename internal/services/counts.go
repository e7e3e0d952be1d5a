package services

import (
	"context"
	"sync"
	"time"

	"commentservice/internal/logger"
	"commentservice/internal/models"
	"commentservice/internal/persist"

	"github.com/sirupsen/logrus"
)

// CountSource reads the live aggregate of a comment.
type CountSource interface {
	CountsFor(commentID int64) models.ReactionCounts
}

// CountSyncService writes reaction aggregates behind to the reaction_counts
// table. Requests for the same comment are collapsed while queued, and the
// value written is always the live one at processing time.
type CountSyncService struct {
	queue   chan int64 // comment ids waiting for a sync
	pending map[int64]bool
	mu      sync.Mutex

	source    CountSource
	store     persist.Store
	interval  time.Duration
	batchSize int
}

func NewCountSyncService(source CountSource, store persist.Store, interval time.Duration, batchSize int) *CountSyncService {
	if batchSize < 1 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &CountSyncService{
		queue:     make(chan int64, 1000),
		pending:   make(map[int64]bool),
		source:    source,
		store:     store,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Schedule queues a sync of commentID without blocking.
func (s *CountSyncService) Schedule(commentID int64) {
	s.mu.Lock()
	if s.pending[commentID] {
		s.mu.Unlock()
		return
	}
	s.pending[commentID] = true
	s.mu.Unlock()

	select {
	case s.queue <- commentID:
	default:
		s.mu.Lock()
		delete(s.pending, commentID)
		s.mu.Unlock()
		countSyncDropped.Inc()
		logger.For(context.Background()).WithField("commentId", commentID).Warn("Count sync queue is full, dropping request")
	}
}

// Run processes the queue in batches until ctx is done, then flushes what is
// left with a fresh deadline.
func (s *CountSyncService) Run(ctx context.Context) error {
	batch := make([]int64, 0, s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= s.batchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.processBatch(flushCtx, batch)
			s.Flush(flushCtx)
			return nil
		}
	}
}

// Flush synchronously writes every queued request.
func (s *CountSyncService) Flush(ctx context.Context) {
	batch := make([]int64, 0, s.batchSize)
	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= s.batchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		default:
			s.processBatch(ctx, batch)
			return
		}
	}
}

func (s *CountSyncService) processBatch(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}

	// clear pending first so a change racing with this read is queued again
	s.mu.Lock()
	for _, id := range ids {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	rows := make([]models.ReactionCount, 0, len(ids)*len(models.AllReactionTypes))
	for _, id := range ids {
		counts := s.source.CountsFor(id)
		for _, t := range models.AllReactionTypes {
			rows = append(rows, models.ReactionCount{CommentID: id, ReactionType: t, Count: counts[t]})
		}
	}

	if err := s.store.SaveReactionCounts(ctx, rows); err != nil {
		countSyncRows.WithLabelValues("error").Add(float64(len(rows)))
		logger.For(ctx).WithError(err).WithFields(logrus.Fields{
			"comments": len(ids),
		}).Error("Failed to write reaction counts")
		return
	}
	countSyncRows.WithLabelValues("ok").Add(float64(len(rows)))
}
