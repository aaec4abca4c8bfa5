package app

import (
	httpH "github.com/mailroom-bot/mailroom-backend/internal/http/handlers"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

type Handlers struct {
	Thread   *httpH.ThreadHandler
	Relay    *httpH.RelayHandler
	Reaction *httpH.ReactionHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Thread:   httpH.NewThreadHandler(serviceset.Thread, serviceset.Correlation),
		Relay:    httpH.NewRelayHandler(serviceset.Relay),
		Reaction: httpH.NewReactionHandler(serviceset.Reaction),
		Health:   httpH.NewHealthHandler(),
	}
}
