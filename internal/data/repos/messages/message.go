package messages

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

// MessageRepo holds relayed-message rows. All lookups are point reads on
// unique indices; a nil row with nil error means "not relayed", which is a
// normal outcome for callers.
type MessageRepo interface {
	Create(dbc dbctx.Context, row *domain.RelayedMessage) (*domain.RelayedMessage, error)
	GetByMessageID(dbc dbctx.Context, messageID string) (*domain.RelayedMessage, error)
	GetByUserDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error)
	GetByStaffRelayedMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error)
	ListByThreadID(dbc dbctx.Context, threadID string) ([]*domain.RelayedMessage, error)
	UpdateContent(dbc dbctx.Context, messageID, content string) error
	MarkDeleted(dbc dbctx.Context, messageID string) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, row *domain.RelayedMessage) (*domain.RelayedMessage, error) {
	if row == nil {
		return nil, fmt.Errorf("missing message row")
	}
	if row.MessageID == "" || row.ThreadID == "" {
		return nil, fmt.Errorf("message requires message_id and thread_id")
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

func (r *messageRepo) GetByMessageID(dbc dbctx.Context, messageID string) (*domain.RelayedMessage, error) {
	return r.getBy(dbc, "message_id = ?", messageID)
}

func (r *messageRepo) GetByUserDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error) {
	return r.getBy(dbc, "user_dm_message_id = ?", dmMessageID)
}

func (r *messageRepo) GetByStaffRelayedMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error) {
	return r.getBy(dbc, "staff_relayed_message_id = ?", dmMessageID)
}

func (r *messageRepo) getBy(dbc dbctx.Context, cond, id string) (*domain.RelayedMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("missing message id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.RelayedMessage
	err := txx.WithContext(dbc.Ctx).Where(cond, id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) ListByThreadID(dbc dbctx.Context, threadID string) ([]*domain.RelayedMessage, error) {
	if threadID == "" {
		return nil, fmt.Errorf("missing thread_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.RelayedMessage
	err := txx.WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) UpdateContent(dbc dbctx.Context, messageID, content string) error {
	if messageID == "" {
		return fmt.Errorf("missing message_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.RelayedMessage{}).
		Where("message_id = ?", messageID).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *messageRepo) MarkDeleted(dbc dbctx.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("missing message_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.RelayedMessage{}).
		Where("message_id = ?", messageID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"updated_at": time.Now().UTC(),
		}).Error
}
