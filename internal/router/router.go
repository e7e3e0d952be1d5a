package router

import (
	"commentservice/internal/config"
	"commentservice/internal/handlers"
	"commentservice/internal/middleware"
	"commentservice/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the engine with middleware and all routes.
func New(cfg *config.Config, svc *services.Services) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, errors.Wrap(err, "register validators")
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
	)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	RegisterRoutes(api, svc, cfg.FullTreeDefaultDepth)
	RegisterRoutes(api.Group("/v1"), svc, cfg.FullTreeDefaultDepth)
	return r, nil
}

// RegisterRoutes mounts the comment API under g.
func RegisterRoutes(g *gin.RouterGroup, svc *services.Services, defaultDepth int) {
	commentHandler := handlers.NewCommentHandler(svc, defaultDepth)
	reactionHandler := handlers.NewReactionHandler(svc)

	// Comments
	g.POST("/comment/", commentHandler.Create)
	g.PUT("/comment/", commentHandler.Update)
	g.GET("/comment/:id", commentHandler.Get)
	g.DELETE("/comment/:id", commentHandler.Delete)
	g.GET("/comment/:id/nextlevel", commentHandler.NextLevel)
	g.GET("/comment/:id/fulltree", commentHandler.FullTree)

	// Reactions
	g.POST("/comment/reaction/", reactionHandler.Upsert)
	g.PATCH("/comment/reaction/", reactionHandler.Upsert)
	g.DELETE("/comment/:id/reaction", reactionHandler.Delete)
	g.GET("/comment/:id/reaction/:type/users", reactionHandler.Users)
}
