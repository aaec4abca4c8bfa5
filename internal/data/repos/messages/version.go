package messages

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

// MessageVersionRepo is the append-only edit history. Rows are never
// mutated or removed.
type MessageVersionRepo interface {
	Append(dbc dbctx.Context, row *domain.MessageVersion) (*domain.MessageVersion, error)
	MaxVersion(dbc dbctx.Context, messageID string) (int, error)
	ListByMessageID(dbc dbctx.Context, messageID string) ([]*domain.MessageVersion, error)
}

type messageVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageVersionRepo(db *gorm.DB, log *logger.Logger) MessageVersionRepo {
	return &messageVersionRepo{db: db, log: log.With("repo", "MessageVersionRepo")}
}

func (r *messageVersionRepo) Append(dbc dbctx.Context, row *domain.MessageVersion) (*domain.MessageVersion, error) {
	if row == nil {
		return nil, fmt.Errorf("missing version row")
	}
	if row.MessageID == "" || row.Version < 1 {
		return nil, fmt.Errorf("version requires message_id and version >= 1")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *messageVersionRepo) MaxVersion(dbc dbctx.Context, messageID string) (int, error) {
	if messageID == "" {
		return 0, fmt.Errorf("missing message_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var max *int
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.MessageVersion{}).
		Where("message_id = ?", messageID).
		Select("MAX(version)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *messageVersionRepo) ListByMessageID(dbc dbctx.Context, messageID string) ([]*domain.MessageVersion, error) {
	if messageID == "" {
		return nil, fmt.Errorf("missing message_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.MessageVersion
	if err := txx.WithContext(dbc.Ctx).
		Where("message_id = ?", messageID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
