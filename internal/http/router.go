package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/mailroom-bot/mailroom-backend/internal/http/handlers"
	httpMW "github.com/mailroom-bot/mailroom-backend/internal/http/middleware"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ThreadHandler   *httpH.ThreadHandler
	RelayHandler    *httpH.RelayHandler
	ReactionHandler *httpH.ReactionHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Threads
		if cfg.ThreadHandler != nil {
			api.GET("/threads/:id", cfg.ThreadHandler.GetThread)
			api.POST("/threads/:id/close", cfg.ThreadHandler.CloseThread)
			api.GET("/threads/:id/messages", cfg.ThreadHandler.ListThreadMessages)
			api.GET("/users/:id/threads", cfg.ThreadHandler.ListUserThreads)
			api.GET("/messages/:id/versions", cfg.ThreadHandler.ListMessageVersions)
		}

		// Relay
		if cfg.RelayHandler != nil {
			api.POST("/relay/user-messages", cfg.RelayHandler.RelayUserMessage)
			api.POST("/threads/:id/replies", cfg.RelayHandler.RelayStaffMessage)
			api.PATCH("/messages/:id", cfg.RelayHandler.EditStaffMessage)
			api.DELETE("/messages/:id", cfg.RelayHandler.DeleteStaffMessage)
		}

		// Reactions
		if cfg.ReactionHandler != nil {
			api.POST("/reactions/user", cfg.ReactionHandler.AddUserReaction)
			api.DELETE("/reactions/user", cfg.ReactionHandler.RemoveUserReaction)
			api.POST("/reactions/staff", cfg.ReactionHandler.AddStaffReaction)
			api.DELETE("/reactions/staff", cfg.ReactionHandler.RemoveStaffReaction)
		}
	}

	return r
}
