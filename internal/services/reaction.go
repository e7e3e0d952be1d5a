package services

import (
	"context"
	"fmt"

	"commentservice/internal/logger"
	"commentservice/internal/models"
	"commentservice/internal/store"
	"commentservice/internal/utils"
)

type UsersReply struct {
	Users    []string `json:"users"`
	PageNo   int      `json:"pageNo"`
	PageSize int      `json:"pageSize"`
	Size     int      `json:"size"`
}

type ReactionService struct {
	reactions *store.ReactionStore
	cache     *utils.ReadCache
}

func NewReactionService(reactions *store.ReactionStore, cache *utils.ReadCache) *ReactionService {
	return &ReactionService{reactions: reactions, cache: cache}
}

// UsersFor pages through the users holding reaction t on the comment, most
// recently affected first.
func (s *ReactionService) UsersFor(ctx context.Context, commentID int64, t models.ReactionType, pageNo, pageSize int) (*UsersReply, error) {
	if _, _, err := utils.Paginate([]string(nil), pageNo, pageSize); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("users/%d/%s/%d/%d", commentID, t, pageNo, pageSize)
	v, err := s.cache.Fetch(key, func() (any, error) {
		users, err := s.reactions.UsersFor(commentID, t)
		if err != nil {
			return nil, err
		}
		window, size, err := utils.Paginate(users, pageNo, pageSize)
		if err != nil {
			return nil, err
		}
		return &UsersReply{Users: window, PageNo: pageNo, PageSize: pageSize, Size: size}, nil
	})
	if err != nil {
		logger.For(ctx).WithError(err).WithField("commentId", commentID).Debug("Listing reaction users failed")
		return nil, err
	}
	return v.(*UsersReply), nil
}
