package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/realtime"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

// ReactionService mirrors emoji reactions across the correlation boundary.
// Mirroring is best-effort: messages that were never relayed resolve to a
// no-op, and transport failures are logged and swallowed rather than
// surfaced to the reacting user.
type ReactionService interface {
	// RelayUserReactionAdd mirrors a user's reaction on the DM copy of a
	// staff message onto the thread-side original and posts a short audit
	// notice into the thread.
	RelayUserReactionAdd(ctx context.Context, dmMessageID, reactorName, emoji string) error
	RelayUserReactionRemove(ctx context.Context, dmMessageID, emoji string) error

	// RelayStaffReactionAdd mirrors a staff reaction on the thread copy of
	// a user's message onto the user's DM. Staff reacting to their own
	// relayed messages is ignored, not an error.
	RelayStaffReactionAdd(ctx context.Context, threadMessageID, emoji string) error
	RelayStaffReactionRemove(ctx context.Context, threadMessageID, emoji string) error
}

type reactionService struct {
	db          *gorm.DB
	log         *logger.Logger
	correlation CorrelationService
	transport   surface.Transport
	notify      *realtime.Notifier
}

func NewReactionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	correlationService CorrelationService,
	transport surface.Transport,
	notify *realtime.Notifier,
) ReactionService {
	return &reactionService{
		db:          db,
		log:         baseLog.With("service", "ReactionService"),
		correlation: correlationService,
		transport:   transport,
		notify:      notify,
	}
}

func (s *reactionService) RelayUserReactionAdd(ctx context.Context, dmMessageID, reactorName, emoji string) error {
	record, err := s.resolveStaffMirror(ctx, dmMessageID)
	if err != nil || record == nil {
		return err
	}

	dest := surface.Channel(record.ThreadID)
	if err := s.transport.AddReaction(ctx, dest, record.MessageID, emoji); err != nil {
		s.log.Warn("Reaction mirror failed", "direction", "user_to_thread",
			"message_id", record.MessageID, "emoji", emoji, "error", err)
		return nil
	}

	notice := fmt.Sprintf("%s reacted with %s", reactorName, emoji)
	if _, err := s.transport.DeliverMessage(ctx, dest, surface.OutgoingMessage{Content: notice}); err != nil {
		s.log.Warn("Reaction notice failed", "channel_id", record.ThreadID, "error", err)
	}

	s.notify.ReactionMirrored(ctx, record.ThreadID, record.MessageID, reactorName, emoji)
	return nil
}

func (s *reactionService) RelayUserReactionRemove(ctx context.Context, dmMessageID, emoji string) error {
	record, err := s.resolveStaffMirror(ctx, dmMessageID)
	if err != nil || record == nil {
		return err
	}

	if err := s.transport.RemoveReaction(ctx, surface.Channel(record.ThreadID), record.MessageID, emoji); err != nil {
		// A mirror reaction that is already gone is consistent enough.
		s.log.Warn("Reaction unmirror failed", "direction", "user_to_thread",
			"message_id", record.MessageID, "emoji", emoji, "error", err)
	}
	return nil
}

func (s *reactionService) RelayStaffReactionAdd(ctx context.Context, threadMessageID, emoji string) error {
	record, mirrorID, err := s.resolveUserMirror(ctx, threadMessageID)
	if err != nil || record == nil {
		return err
	}

	if err := s.transport.AddReaction(ctx, surface.User(record.AuthorID), mirrorID, emoji); err != nil {
		s.log.Warn("Reaction mirror failed", "direction", "thread_to_user",
			"message_id", threadMessageID, "emoji", emoji, "error", err)
		return nil
	}

	s.notify.ReactionMirrored(ctx, record.ThreadID, threadMessageID, record.AuthorID, emoji)
	return nil
}

func (s *reactionService) RelayStaffReactionRemove(ctx context.Context, threadMessageID, emoji string) error {
	record, mirrorID, err := s.resolveUserMirror(ctx, threadMessageID)
	if err != nil || record == nil {
		return err
	}

	if err := s.transport.RemoveReaction(ctx, surface.User(record.AuthorID), mirrorID, emoji); err != nil {
		s.log.Warn("Reaction unmirror failed", "direction", "thread_to_user",
			"message_id", threadMessageID, "emoji", emoji, "error", err)
	}
	return nil
}

// resolveStaffMirror maps the DM copy of a staff message back to its
// thread-side original. nil/nil means the reaction target was never
// relayed (automated notices and the like) or the message is deleted.
func (s *reactionService) resolveStaffMirror(ctx context.Context, dmMessageID string) (*domain.RelayedMessage, error) {
	if dmMessageID == "" {
		return nil, fmt.Errorf("missing dm message id")
	}
	record, err := s.correlation.GetByStaffDMMessageID(dbctx.Context{Ctx: ctx}, dmMessageID)
	if err != nil {
		return nil, fmt.Errorf("resolve dm mirror: %w", err)
	}
	if record == nil || record.IsDeleted {
		return nil, nil
	}
	return record, nil
}

// resolveUserMirror maps a thread-side message to the user's DM copy.
// Staff-authored records resolve to nil: a staff member reacting to their
// own relayed reply has nothing to mirror.
func (s *reactionService) resolveUserMirror(ctx context.Context, threadMessageID string) (*domain.RelayedMessage, string, error) {
	if threadMessageID == "" {
		return nil, "", fmt.Errorf("missing thread message id")
	}
	record, err := s.correlation.GetByThreadMessageID(dbctx.Context{Ctx: ctx}, threadMessageID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve thread message: %w", err)
	}
	if record == nil || record.IsDeleted || record.IsStaff {
		return nil, "", nil
	}
	mirrorID, err := record.DMMirrorID()
	if err != nil {
		s.log.Error("Integrity fault resolving user mirror", "message_id", threadMessageID, "error", err)
		return nil, "", nil
	}
	return record, mirrorID, nil
}
