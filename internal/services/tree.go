package services

import (
	"context"
	"errors"
	"fmt"

	"commentservice/internal/apperr"
	"commentservice/internal/logger"
	"commentservice/internal/store"
	"commentservice/internal/utils"

	"github.com/sirupsen/logrus"
)

// CommentReply is one entry of a traversal. Comments is only filled by
// FullTree and holds the entry's own replies.
type CommentReply struct {
	Comment  *CommentView    `json:"comment"`
	Comments []*CommentReply `json:"comments,omitempty"`
}

type NextLevelReply struct {
	Comments []*CommentReply `json:"comments"`
	PageNo   int             `json:"pageNo"`
	PageSize int             `json:"pageSize"`
	Size     int             `json:"size"`
}

// FullTreeReply nests the subtree under the queried comment. MaxDepth is the
// deepest level actually reached, counting the direct replies as 1.
type FullTreeReply struct {
	Comments []*CommentReply `json:"comments"`
	MaxDepth int             `json:"maxDepth"`
}

// TreeService answers traversal queries. Cached replies are shared and must
// not be modified by callers.
type TreeService struct {
	comments   *store.CommentStore
	views      *CommentService
	cache      *utils.ReadCache
	depthLimit int
}

func NewTreeService(comments *store.CommentStore, views *CommentService, cache *utils.ReadCache, depthLimit int) *TreeService {
	return &TreeService{comments: comments, views: views, cache: cache, depthLimit: depthLimit}
}

// NextLevel pages through the direct replies of id. id 0 lists the top-level comments.
func (s *TreeService) NextLevel(ctx context.Context, id int64, pageNo, pageSize int) (*NextLevelReply, error) {
	if _, _, err := utils.Paginate([]int64(nil), pageNo, pageSize); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("nextlevel/%d/%d/%d", id, pageNo, pageSize)
	v, err := s.cached(ctx, key, func() (any, error) {
		return s.nextLevel(ctx, id, pageNo, pageSize)
	})
	if err != nil {
		return nil, err
	}
	return v.(*NextLevelReply), nil
}

func (s *TreeService) nextLevel(ctx context.Context, id int64, pageNo, pageSize int) (*NextLevelReply, error) {
	children, err := s.comments.Children(id)
	if err != nil {
		logger.For(ctx).WithField("commentId", id).Debug("Next level of unknown comment")
		return nil, err
	}
	window, size, err := utils.Paginate(children, pageNo, pageSize)
	if err != nil {
		return nil, err
	}

	reply := &NextLevelReply{
		Comments: make([]*CommentReply, 0, size),
		PageNo:   pageNo,
		PageSize: pageSize,
		Size:     size,
	}
	for _, cid := range window {
		view, err := s.views.view(cid)
		if err != nil {
			return nil, err
		}
		reply.Comments = append(reply.Comments, &CommentReply{Comment: view})
	}
	return reply, nil
}

// FullTree returns every descendant of id down to maxDepth levels, parents
// before children and siblings in insertion order. Depths above the
// configured limit are clamped; a limit of 0 returns no descendants.
func (s *TreeService) FullTree(ctx context.Context, id int64, maxDepth int) (*FullTreeReply, error) {
	if maxDepth < 0 {
		return nil, apperr.InvalidArgument("maxDepth must not be negative, got %d", maxDepth)
	}
	if maxDepth > s.depthLimit {
		maxDepth = s.depthLimit
	}

	key := fmt.Sprintf("fulltree/%d/%d", id, maxDepth)
	v, err := s.cached(ctx, key, func() (any, error) {
		return s.fullTree(ctx, id, maxDepth)
	})
	if err != nil {
		return nil, err
	}
	return v.(*FullTreeReply), nil
}

func (s *TreeService) fullTree(ctx context.Context, id int64, maxDepth int) (*FullTreeReply, error) {
	children, err := s.comments.Children(id)
	if err != nil {
		logger.For(ctx).WithField("commentId", id).Debug("Full tree of unknown comment")
		return nil, err
	}

	w := &treeWalk{ctx: ctx, s: s, maxDepth: maxDepth}
	comments, err := w.level(children, 1)
	if err != nil {
		return nil, err
	}

	fullTreeSize.Observe(float64(w.visited))
	logger.For(ctx).WithFields(logrus.Fields{
		"commentId": id,
		"nodes":     w.visited,
		"depth":     w.reached,
	}).Debug("Built full tree")
	return &FullTreeReply{Comments: comments, MaxDepth: w.reached}, nil
}

type treeWalk struct {
	ctx      context.Context
	s        *TreeService
	maxDepth int
	reached  int
	visited  int
}

func (w *treeWalk) level(ids []int64, depth int) ([]*CommentReply, error) {
	out := make([]*CommentReply, 0, len(ids))
	if depth > w.maxDepth {
		return out, nil
	}
	for _, id := range ids {
		if err := w.ctx.Err(); err != nil {
			return nil, err
		}
		view, err := w.s.views.view(id)
		if err != nil {
			return nil, err
		}
		w.visited++
		if depth > w.reached {
			w.reached = depth
		}

		entry := &CommentReply{Comment: view}
		if len(view.Children) > 0 && depth < w.maxDepth {
			if entry.Comments, err = w.level(view.Children, depth+1); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// cached serves key from the read cache. A load that failed only because a
// concurrent caller's context ended is redone with this caller's context.
func (s *TreeService) cached(ctx context.Context, key string, load func() (any, error)) (any, error) {
	v, err := s.cache.Fetch(key, load)
	if err != nil && ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return load()
	}
	return v, err
}
