package handlers

import (
	"net/http"

	"commentservice/internal/services"
	"commentservice/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentPostRequest struct {
	ParentID *FlexInt64 `json:"parentId" binding:"required"`
	User     string     `json:"user" binding:"required"`
	Body     string     `json:"body" binding:"required"`
}

type CommentPutRequest struct {
	CommentID *FlexInt64 `json:"commentId" binding:"required"`
	User      string     `json:"user" binding:"required"`
	Body      string     `json:"body" binding:"required"`
}

type CommentHandler struct {
	svc          *services.Services
	defaultDepth int
}

func NewCommentHandler(svc *services.Services, defaultDepth int) *CommentHandler {
	return &CommentHandler{svc: svc, defaultDepth: defaultDepth}
}

func (h *CommentHandler) respond(c *gin.Context, id int64) {
	view, err := h.svc.Comments.Get(c.Request.Context(), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Get returns one comment. format=html adds the rendered body.
func (h *CommentHandler) Get(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	view, err := h.svc.Comments.Get(c.Request.Context(), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	if c.Query("format") == "html" {
		view.BodyHTML = utils.RenderMarkdown(view.Body)
	}
	c.JSON(http.StatusOK, view)
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req CommentPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	created, err := h.svc.Coordinator.CreateComment(c.Request.Context(), int64(*req.ParentID), req.Body, req.User)
	if err != nil {
		RenderError(c, err)
		return
	}
	h.respond(c, created.ID)
}

func (h *CommentHandler) Update(c *gin.Context) {
	var req CommentPutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.svc.Coordinator.UpdateComment(c.Request.Context(), int64(*req.CommentID), req.Body, req.User)
	if err != nil {
		RenderError(c, err)
		return
	}
	h.respond(c, updated.ID)
}

// Delete soft-deletes the comment on behalf of the user query parameter.
func (h *CommentHandler) Delete(c *gin.Context) {
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

	if _, err := h.svc.Coordinator.DeleteComment(c.Request.Context(), id, user); err != nil {
		RenderError(c, err)
		return
	}
	h.respond(c, id)
}

func (h *CommentHandler) NextLevel(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		RenderError(c, err)
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

	reply, err := h.svc.Tree.NextLevel(c.Request.Context(), id, pageNo, pageSize)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *CommentHandler) FullTree(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	maxDepth, err := utils.IntOrDefault("maxDepth", c.Query("maxDepth"), h.defaultDepth)
	if err != nil {
		RenderError(c, err)
		return
	}

	reply, err := h.svc.Tree.FullTree(c.Request.Context(), id, maxDepth)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
