package threads

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

// ThreadRepo is the thread directory: one row per user conversation,
// append-only. The open-thread uniqueness lives in the store (partial
// unique index), not here; Create surfaces gorm.ErrDuplicatedKey when a
// concurrent writer won the race.
type ThreadRepo interface {
	Create(dbc dbctx.Context, row *domain.Thread) (*domain.Thread, error)
	GetByChannelID(dbc dbctx.Context, channelID string) (*domain.Thread, error)
	GetOpenByUserID(dbc dbctx.Context, userID string) (*domain.Thread, error)
	ListByUserID(dbc dbctx.Context, userID string) ([]*domain.Thread, error)
	Close(dbc dbctx.Context, channelID, closedBy string, at time.Time) (int64, error)
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, log *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: log.With("repo", "ThreadRepo")}
}

func (r *threadRepo) Create(dbc dbctx.Context, row *domain.Thread) (*domain.Thread, error) {
	if row == nil {
		return nil, fmt.Errorf("missing thread row")
	}
	if row.ChannelID == "" || row.UserID == "" {
		return nil, fmt.Errorf("thread requires channel_id and user_id")
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

func (r *threadRepo) GetByChannelID(dbc dbctx.Context, channelID string) (*domain.Thread, error) {
	if channelID == "" {
		return nil, fmt.Errorf("missing channel_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Thread
	err := txx.WithContext(dbc.Ctx).
		Where("channel_id = ?", channelID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *threadRepo) GetOpenByUserID(dbc dbctx.Context, userID string) (*domain.Thread, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Thread
	err := txx.WithContext(dbc.Ctx).
		Where("user_id = ? AND closed_at IS NULL", userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *threadRepo) ListByUserID(dbc dbctx.Context, userID string) ([]*domain.Thread, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.Thread
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close sets the terminal state on an open thread. The closed_at IS NULL
// guard makes it a no-op on already-closed rows; the returned count tells
// the caller which case it hit.
func (r *threadRepo) Close(dbc dbctx.Context, channelID, closedBy string, at time.Time) (int64, error) {
	if channelID == "" {
		return 0, fmt.Errorf("missing channel_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&domain.Thread{}).
		Where("channel_id = ? AND closed_at IS NULL", channelID).
		Updates(map[string]interface{}{
			"closed_at": at,
			"closed_by": closedBy,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
