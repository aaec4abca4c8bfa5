package app

import (
	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/realtime"
	"github.com/mailroom-bot/mailroom-backend/internal/services"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

type Services struct {
	Thread      services.ThreadService
	Correlation services.CorrelationService
	Relay       services.RelayService
	Reaction    services.ReactionService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	transport surface.Transport,
	notify *realtime.Notifier,
) Services {
	log.Info("Wiring services...")

	threadService := services.NewThreadService(db, log, cfg.GuildID, reposet.Thread, transport, notify)
	correlationService := services.NewCorrelationService(db, log, reposet.Message, reposet.MessageVersion)
	relayService := services.NewRelayService(db, log, threadService, correlationService, transport, notify)
	reactionService := services.NewReactionService(db, log, correlationService, transport, notify)

	return Services{
		Thread:      threadService,
		Correlation: correlationService,
		Relay:       relayService,
		Reaction:    reactionService,
	}
}
