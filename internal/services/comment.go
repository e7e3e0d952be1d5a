package services

import (
	"context"
	"html/template"
	"time"

	"commentservice/internal/logger"
	"commentservice/internal/store"
)

// CommentView is a comment as served to clients, with live aggregates.
type CommentView struct {
	ID           int64         `json:"id"`
	User         string        `json:"user"`
	Body         string        `json:"body"`
	BodyHTML     template.HTML `json:"bodyHtml,omitempty"`
	ParentID     int64         `json:"parentId"`
	Level        int           `json:"level"`
	Replies      int64         `json:"replies"`
	Children     []int64       `json:"children"`
	LikeCount    int64         `json:"likeCount"`
	DislikeCount int64         `json:"dislikeCount"`
	IsDeleted    bool          `json:"isDeleted"`
	Created      time.Time     `json:"created"`
	Updated      time.Time     `json:"updated"`
}

type CommentService struct {
	comments  *store.CommentStore
	reactions *store.ReactionStore
}

func NewCommentService(comments *store.CommentStore, reactions *store.ReactionStore) *CommentService {
	return &CommentService{comments: comments, reactions: reactions}
}

// Get returns comment id with its children and current counts.
func (s *CommentService) Get(ctx context.Context, id int64) (*CommentView, error) {
	if _, err := s.comments.Get(id); err != nil {
		logger.For(ctx).WithField("commentId", id).Debug("Comment not found")
		return nil, err
	}
	return s.view(id)
}

func (s *CommentService) view(id int64) (*CommentView, error) {
	n, err := s.comments.Node(id)
	if err != nil {
		return nil, err
	}
	counts := s.reactions.CountsFor(id)
	c := n.Comment
	children := n.Children
	if children == nil {
		children = []int64{}
	}
	return &CommentView{
		ID:           c.ID,
		User:         c.User,
		Body:         c.Body,
		ParentID:     c.ParentID,
		Level:        c.Level,
		Replies:      n.Replies,
		Children:     children,
		LikeCount:    counts.Likes(),
		DislikeCount: counts.Dislikes(),
		IsDeleted:    c.IsDeleted,
		Created:      c.CreatedAt,
		Updated:      c.UpdatedAt,
	}, nil
}
