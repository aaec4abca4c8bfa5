package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
	"github.com/mailroom-bot/mailroom-backend/internal/realtime"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

// UserMessageInput is an inbound DM from the external user.
type UserMessageInput struct {
	DMMessageID string
	Content     string
	Attachments []domain.FileRef
	Stickers    []domain.FileRef
	Forwarded   bool
}

// StaffMessageInput is a staff reply command issued inside a thread.
type StaffMessageInput struct {
	MessageID   string // the staff command message in the thread
	Content     string
	Attachments []domain.FileRef
	Stickers    []domain.FileRef
	Anonymous   bool
	PlainText   bool
	Snippet     bool
}

func (in StaffMessageInput) empty() bool {
	return in.Content == "" && len(in.Attachments) == 0 && len(in.Stickers) == 0
}

// RelayService mirrors content events between the two surfaces. Delivery
// always happens before persistence: a correlation row must correspond to
// a message that actually exists on the mirror surface. Delivery failures
// leave no row and are surfaced to the caller, who owns the retry
// decision; persistence failures after delivery are logged as
// reconciliation gaps and never retried (a second delivery would duplicate
// the visible message).
type RelayService interface {
	RelayUserMessage(ctx context.Context, userID, displayName string, in UserMessageInput) (*domain.Thread, *domain.RelayedMessage, bool, error)
	RelayStaffMessage(ctx context.Context, channelID, staffID string, in StaffMessageInput) (*domain.RelayedMessage, error)
	EditStaffMessage(ctx context.Context, threadMessageID, newContent string) error
	DeleteStaffMessage(ctx context.Context, threadMessageID string) error
}

type relayService struct {
	db          *gorm.DB
	log         *logger.Logger
	threads     ThreadService
	correlation CorrelationService
	transport   surface.Transport
	notify      *realtime.Notifier
}

func NewRelayService(
	db *gorm.DB,
	baseLog *logger.Logger,
	threadService ThreadService,
	correlationService CorrelationService,
	transport surface.Transport,
	notify *realtime.Notifier,
) RelayService {
	return &relayService{
		db:          db,
		log:         baseLog.With("service", "RelayService"),
		threads:     threadService,
		correlation: correlationService,
		transport:   transport,
		notify:      notify,
	}
}

func (s *relayService) RelayUserMessage(ctx context.Context, userID, displayName string, in UserMessageInput) (*domain.Thread, *domain.RelayedMessage, bool, error) {
	if in.DMMessageID == "" {
		return nil, nil, false, fmt.Errorf("missing dm message id")
	}

	thread, isNew, err := s.threads.GetOrCreateThread(ctx, userID, displayName)
	if err != nil {
		return nil, nil, false, err
	}

	threadMsgID, err := s.transport.DeliverMessage(ctx, surface.Channel(thread.ChannelID), surface.OutgoingMessage{
		Content:     in.Content,
		Attachments: in.Attachments,
		Stickers:    in.Stickers,
	})
	if err != nil {
		return nil, nil, false, relayerr.Transport(err, surface.IsTransient(err))
	}

	row, err := s.correlation.SaveUserMessage(dbctx.Context{Ctx: ctx}, UserMessageRecord{
		ThreadID:    thread.ChannelID,
		MessageID:   threadMsgID,
		AuthorID:    userID,
		Content:     in.Content,
		Attachments: in.Attachments,
		Stickers:    in.Stickers,
		DMMessageID: in.DMMessageID,
		Forwarded:   in.Forwarded,
	})
	if err != nil {
		s.log.Error("Reconciliation gap: user message delivered but not recorded",
			"channel_id", thread.ChannelID, "thread_message_id", threadMsgID,
			"dm_message_id", in.DMMessageID, "error", err)
		return thread, nil, isNew, err
	}

	s.notify.MessageRelayed(ctx, thread.ChannelID, threadMsgID, userID)
	return thread, row, isNew, nil
}

func (s *relayService) RelayStaffMessage(ctx context.Context, channelID, staffID string, in StaffMessageInput) (*domain.RelayedMessage, error) {
	if in.empty() {
		return nil, relayerr.InvalidState(relayerr.CodeEmptyReply)
	}
	if in.MessageID == "" {
		return nil, fmt.Errorf("missing staff message id")
	}

	thread, err := s.threads.GetThreadByChannelID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("lookup thread: %w", err)
	}
	if thread == nil {
		return nil, relayerr.NotFound("thread")
	}
	if !thread.IsOpen() {
		return nil, relayerr.InvalidState(relayerr.CodeThreadClosed)
	}

	dmMsgID, err := s.transport.DeliverMessage(ctx, surface.User(thread.UserID), surface.OutgoingMessage{
		Content:     in.Content,
		Attachments: in.Attachments,
		Stickers:    in.Stickers,
	})
	if err != nil {
		return nil, relayerr.Transport(err, surface.IsTransient(err))
	}

	row, err := s.correlation.SaveStaffMessage(dbctx.Context{Ctx: ctx}, StaffMessageRecord{
		ThreadID:         thread.ChannelID,
		MessageID:        in.MessageID,
		AuthorID:         staffID,
		Content:          in.Content,
		Attachments:      in.Attachments,
		Stickers:         in.Stickers,
		RelayedMessageID: dmMsgID,
		Anonymous:        in.Anonymous,
		PlainText:        in.PlainText,
		Snippet:          in.Snippet,
	})
	if err != nil {
		s.log.Error("Reconciliation gap: staff message delivered but not recorded",
			"channel_id", thread.ChannelID, "staff_message_id", in.MessageID,
			"dm_message_id", dmMsgID, "error", err)
		return nil, err
	}

	s.notify.MessageRelayed(ctx, thread.ChannelID, in.MessageID, staffID)
	return row, nil
}

func (s *relayService) EditStaffMessage(ctx context.Context, threadMessageID, newContent string) error {
	record, thread, err := s.resolveEditable(ctx, threadMessageID)
	if err != nil {
		return err
	}

	mirrorID, err := record.DMMirrorID()
	if err != nil {
		return relayerr.Integrity(relayerr.CodeMissingCounterpartID, err)
	}

	if err := s.transport.EditDeliveredMessage(ctx, surface.User(thread.UserID), mirrorID, newContent); err != nil {
		return relayerr.Transport(err, surface.IsTransient(err))
	}

	if _, err := s.correlation.MarkEdited(dbctx.Context{Ctx: ctx}, threadMessageID, newContent); err != nil {
		s.log.Error("Reconciliation gap: mirror edited but store not updated",
			"message_id", threadMessageID, "error", err)
		return err
	}

	s.notify.MessageEdited(ctx, thread.ChannelID, threadMessageID)
	return nil
}

func (s *relayService) DeleteStaffMessage(ctx context.Context, threadMessageID string) error {
	record, thread, err := s.resolveEditable(ctx, threadMessageID)
	if err != nil {
		return err
	}

	mirrorID, err := record.DMMirrorID()
	if err != nil {
		return relayerr.Integrity(relayerr.CodeMissingCounterpartID, err)
	}

	if err := s.transport.DeleteDeliveredMessage(ctx, surface.User(thread.UserID), mirrorID); err != nil {
		return relayerr.Transport(err, surface.IsTransient(err))
	}

	if err := s.correlation.MarkDeleted(dbctx.Context{Ctx: ctx}, threadMessageID); err != nil {
		s.log.Error("Reconciliation gap: mirror deleted but store not updated",
			"message_id", threadMessageID, "error", err)
		return err
	}

	s.notify.MessageDeleted(ctx, thread.ChannelID, threadMessageID)
	return nil
}

// resolveEditable applies the shared edit/delete preconditions: the record
// must exist, be staff-authored, not already deleted, and belong to a
// still-open thread.
func (s *relayService) resolveEditable(ctx context.Context, threadMessageID string) (*domain.RelayedMessage, *domain.Thread, error) {
	record, err := s.correlation.GetByThreadMessageID(dbctx.Context{Ctx: ctx}, threadMessageID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup message: %w", err)
	}
	if record == nil {
		return nil, nil, relayerr.NotFound("message")
	}
	if record.IsDeleted {
		return nil, nil, relayerr.InvalidState(relayerr.CodeAlreadyDeleted)
	}
	if !record.IsStaff {
		return nil, nil, relayerr.InvalidState(relayerr.CodeNotEditable)
	}

	thread, err := s.threads.GetThreadByChannelID(ctx, record.ThreadID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup thread: %w", err)
	}
	if thread == nil {
		return nil, nil, relayerr.Integrity(relayerr.CodeMissingCounterpartID,
			fmt.Errorf("message %s references missing thread %s", threadMessageID, record.ThreadID))
	}
	if !thread.IsOpen() {
		return nil, nil, relayerr.InvalidState(relayerr.CodeThreadClosed)
	}
	return record, thread, nil
}
