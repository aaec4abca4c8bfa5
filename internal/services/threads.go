package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/data/repos"
	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
	"github.com/mailroom-bot/mailroom-backend/internal/realtime"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

// ThreadService owns the conversation lifecycle: at most one open thread
// per user, OPEN -> CLOSED and never back. A new message after closure
// opens a brand new thread rather than reopening the old one.
type ThreadService interface {
	// GetOrCreateThread resolves the open thread for userID, creating the
	// staff container and the directory row when none exists. The bool is
	// true when a new thread was created by this call.
	GetOrCreateThread(ctx context.Context, userID, displayName string) (*domain.Thread, bool, error)

	// GetThreadByChannelID is a pure lookup; nil means no such thread.
	GetThreadByChannelID(ctx context.Context, channelID string) (*domain.Thread, error)

	// CloseThread is idempotent: closing an already-closed thread returns
	// AlreadyClosed and leaves closed_at untouched.
	CloseThread(ctx context.Context, thread *domain.Thread, closedBy string) error

	// ListThreadsByUser returns the user's full thread history, oldest
	// first.
	ListThreadsByUser(ctx context.Context, userID string) ([]*domain.Thread, error)
}

type threadService struct {
	db        *gorm.DB
	log       *logger.Logger
	guildID   string
	threads   repos.ThreadRepo
	transport surface.Transport
	notify    *realtime.Notifier
}

func NewThreadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	guildID string,
	threadRepo repos.ThreadRepo,
	transport surface.Transport,
	notify *realtime.Notifier,
) ThreadService {
	return &threadService{
		db:        db,
		log:       baseLog.With("service", "ThreadService"),
		guildID:   guildID,
		threads:   threadRepo,
		transport: transport,
		notify:    notify,
	}
}

func (s *threadService) GetOrCreateThread(ctx context.Context, userID, displayName string) (*domain.Thread, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("missing user_id")
	}
	dbc := dbctx.Context{Ctx: ctx}

	open, err := s.threads.GetOpenByUserID(dbc, userID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup open thread: %w", err)
	}
	if open != nil {
		return open, false, nil
	}

	title := displayName
	if title == "" {
		title = userID
	}
	intro := fmt.Sprintf("New conversation with %s (%s)", title, userID)

	// The container exists on the staff surface before the directory row
	// does; a row must never point at a container that was never created.
	containerID, err := s.transport.CreateStaffContainer(ctx, userID, title, intro)
	if err != nil {
		tErr := relayerr.New(relayerr.KindTransport, relayerr.CodeThreadCreateFailed, err)
		tErr.Transient = surface.IsTransient(err)
		return nil, false, tErr
	}

	row := &domain.Thread{
		ChannelID: containerID,
		GuildID:   s.guildID,
		UserID:    userID,
		Title:     &title,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.threads.Create(dbc, row); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.resolveCreateRace(ctx, userID, containerID)
		}
		return nil, false, fmt.Errorf("persist thread: %w", err)
	}

	s.log.Info("Thread opened", "channel_id", containerID, "user_id", userID)
	s.notify.ThreadOpened(ctx, containerID, userID)
	return row, true, nil
}

// resolveCreateRace handles the losing side of two near-simultaneous
// creations for the same user. The winner's row is returned; the loser's
// already-created container is locked best-effort so staff don't see two
// live threads for one user.
func (s *threadService) resolveCreateRace(ctx context.Context, userID, orphanContainerID string) (*domain.Thread, bool, error) {
	winner, err := s.threads.GetOpenByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, false, fmt.Errorf("refetch open thread after conflict: %w", err)
	}
	if winner == nil {
		// The winner closed again between our conflict and the refetch.
		return nil, false, fmt.Errorf("open thread conflict for user %s resolved to nothing", userID)
	}

	s.log.Warn("Lost thread creation race, locking orphan container",
		"user_id", userID, "winner_channel_id", winner.ChannelID, "orphan_channel_id", orphanContainerID)
	if err := s.transport.LockContainer(ctx, orphanContainerID); err != nil {
		s.log.Error("Reconciliation gap: orphan container left unlocked",
			"channel_id", orphanContainerID, "error", err)
	}
	return winner, false, nil
}

func (s *threadService) GetThreadByChannelID(ctx context.Context, channelID string) (*domain.Thread, error) {
	return s.threads.GetByChannelID(dbctx.Context{Ctx: ctx}, channelID)
}

func (s *threadService) CloseThread(ctx context.Context, thread *domain.Thread, closedBy string) error {
	if thread == nil {
		return relayerr.NotFound("thread")
	}
	if !thread.IsOpen() {
		return relayerr.InvalidState(relayerr.CodeAlreadyClosed)
	}

	now := time.Now().UTC()
	rows, err := s.threads.Close(dbctx.Context{Ctx: ctx}, thread.ChannelID, closedBy, now)
	if err != nil {
		return fmt.Errorf("persist thread close: %w", err)
	}
	if rows == 0 {
		// A concurrent closer got there first.
		return relayerr.InvalidState(relayerr.CodeAlreadyClosed)
	}
	thread.ClosedAt = &now
	thread.ClosedBy = &closedBy

	// The store is authoritative; a failed surface lock leaves the
	// container writable but the thread closed, which reconciliation
	// tooling picks up from this log line.
	if err := s.transport.LockContainer(ctx, thread.ChannelID); err != nil {
		s.log.Error("Reconciliation gap: thread closed but container not locked",
			"channel_id", thread.ChannelID, "error", err)
	}

	s.log.Info("Thread closed", "channel_id", thread.ChannelID, "closed_by", closedBy)
	s.notify.ThreadClosed(ctx, thread.ChannelID, closedBy)
	return nil
}

func (s *threadService) ListThreadsByUser(ctx context.Context, userID string) ([]*domain.Thread, error) {
	return s.threads.ListByUserID(dbctx.Context{Ctx: ctx}, userID)
}
