package handlers

import (
	"net/http"

	"commentservice/internal/apperr"
	"commentservice/internal/models"
	"commentservice/internal/services"
	"commentservice/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReactionRequest struct {
	CommentID    *FlexInt64 `json:"commentId" binding:"required"`
	User         string     `json:"user" binding:"required"`
	ReactionType string     `json:"reactionType" binding:"required,reactiontype"`
}

type ReactionDeleteResponse struct {
	CommentID int64  `json:"commentId"`
	User      string `json:"user"`
	Deleted   bool   `json:"deleted"`
}

type ReactionHandler struct {
	svc *services.Services
}

func NewReactionHandler(svc *services.Services) *ReactionHandler {
	return &ReactionHandler{svc: svc}
}

// Upsert serves both POST and PATCH: the user ends up holding the requested type.
func (h *ReactionHandler) Upsert(c *gin.Context) {
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rt, _ := models.ParseReactionType(req.ReactionType)

	r, err := h.svc.Coordinator.UpsertReaction(c.Request.Context(), int64(*req.CommentID), req.User, rt)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Delete removes the user's reaction. Removing a missing reaction succeeds.
func (h *ReactionHandler) Delete(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	user, ok := c.GetQuery("user")
	if !ok || user == "" {
		bindError(c, errMissingUser)
		return
	}

	removed, err := h.svc.Coordinator.RemoveReaction(c.Request.Context(), id, user)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReactionDeleteResponse{CommentID: id, User: user, Deleted: removed})
}

// Users lists who holds the reaction type in the path, newest first.
func (h *ReactionHandler) Users(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	rt, ok := models.ParseReactionType(c.Param("type"))
	if !ok {
		RenderError(c, apperr.InvalidArgument("unknown reaction type %q", c.Param("type")))
		return
	}
	pageNo, err := utils.IntOrDefault("pageNo", c.Query("pageNo"), utils.DefaultPageNo)
	if err != nil {
		RenderError(c, err)
		return
	}
	pageSize, err := utils.IntOrDefault("pageSize", c.Query("pageSize"), utils.DefaultPageSize)
	if err != nil {
		RenderError(c, err)
		return
	}

	reply, err := h.svc.Reactions.UsersFor(c.Request.Context(), id, rt, pageNo, pageSize)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
