package app

import (
	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/data/repos"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

type Repos struct {
	Thread         repos.ThreadRepo
	Message        repos.MessageRepo
	MessageVersion repos.MessageVersionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Thread:         repos.NewThreadRepo(db, log),
		Message:        repos.NewMessageRepo(db, log),
		MessageVersion: repos.NewMessageVersionRepo(db, log),
	}
}
