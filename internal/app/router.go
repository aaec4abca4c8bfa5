package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/mailroom-bot/mailroom-backend/internal/http"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:             log,
		ThreadHandler:   handlerset.Thread,
		RelayHandler:    handlerset.Relay,
		ReactionHandler: handlerset.Reaction,
		HealthHandler:   handlerset.Health,
	})
}
