package repos

import (
	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/data/repos/messages"
	"github.com/mailroom-bot/mailroom-backend/internal/data/repos/threads"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

type ThreadRepo = threads.ThreadRepo
type MessageRepo = messages.MessageRepo
type MessageVersionRepo = messages.MessageVersionRepo

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return threads.NewThreadRepo(db, baseLog)
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return messages.NewMessageRepo(db, baseLog)
}

func NewMessageVersionRepo(db *gorm.DB, baseLog *logger.Logger) MessageVersionRepo {
	return messages.NewMessageVersionRepo(db, baseLog)
}
