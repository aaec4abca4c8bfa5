package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/data/repos"
	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
)

// StaffMessageRecord is the input for persisting a staff-authored message
// after its mirror copy was delivered to the user's DM.
type StaffMessageRecord struct {
	ThreadID  string
	MessageID string // the staff command message in the thread
	AuthorID  string
	Content   string

	Attachments []domain.FileRef
	Stickers    []domain.FileRef

	RelayedMessageID string // id of the mirror delivered to the DM
	Anonymous        bool
	PlainText        bool
	Snippet          bool
}

// UserMessageRecord is the input for persisting a user-authored message
// after its mirror copy was delivered to the staff thread.
type UserMessageRecord struct {
	ThreadID  string
	MessageID string // the mirror copy created in the thread
	AuthorID  string
	Content   string

	Attachments []domain.FileRef
	Stickers    []domain.FileRef

	DMMessageID string // the original message in the user's DM
	Forwarded   bool
}

// CorrelationService is the ground truth for which message corresponds to
// which across the two surfaces. Rows are created only after confirmed
// delivery; both SaveStaffMessage and SaveUserMessage reject records
// missing their counterpart id instead of persisting speculative state.
type CorrelationService interface {
	SaveStaffMessage(dbc dbctx.Context, in StaffMessageRecord) (*domain.RelayedMessage, error)
	SaveUserMessage(dbc dbctx.Context, in UserMessageRecord) (*domain.RelayedMessage, error)

	GetByThreadMessageID(dbc dbctx.Context, messageID string) (*domain.RelayedMessage, error)
	GetByUserDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error)
	GetByStaffDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error)
	ListThreadMessages(dbc dbctx.Context, threadID string) ([]*domain.RelayedMessage, error)

	MarkEdited(dbc dbctx.Context, messageID, newContent string) (*domain.MessageVersion, error)
	MarkDeleted(dbc dbctx.Context, messageID string) error
	ListVersions(dbc dbctx.Context, messageID string) ([]*domain.MessageVersion, error)
}

type correlationService struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo
	versions repos.MessageVersionRepo
}

func NewCorrelationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	versionRepo repos.MessageVersionRepo,
) CorrelationService {
	return &correlationService{
		db:       db,
		log:      baseLog.With("service", "CorrelationService"),
		messages: messageRepo,
		versions: versionRepo,
	}
}

func (s *correlationService) SaveStaffMessage(dbc dbctx.Context, in StaffMessageRecord) (*domain.RelayedMessage, error) {
	if in.RelayedMessageID == "" {
		return nil, relayerr.Integrity(relayerr.CodeMissingCounterpartID,
			fmt.Errorf("staff message %s saved without a relayed mirror id", in.MessageID))
	}
	row, err := s.buildRow(in.ThreadID, in.MessageID, in.AuthorID, in.Content, in.Attachments, in.Stickers)
	if err != nil {
		return nil, err
	}
	row.IsStaff = true
	row.StaffRelayedMessageID = &in.RelayedMessageID
	row.IsAnonymous = in.Anonymous
	row.IsPlainText = in.PlainText
	row.IsSnippet = in.Snippet
	return s.messages.Create(dbc, row)
}

func (s *correlationService) SaveUserMessage(dbc dbctx.Context, in UserMessageRecord) (*domain.RelayedMessage, error) {
	if in.DMMessageID == "" {
		return nil, relayerr.Integrity(relayerr.CodeMissingCounterpartID,
			fmt.Errorf("user message %s saved without a dm mirror id", in.MessageID))
	}
	row, err := s.buildRow(in.ThreadID, in.MessageID, in.AuthorID, in.Content, in.Attachments, in.Stickers)
	if err != nil {
		return nil, err
	}
	row.IsStaff = false
	row.UserDMMessageID = &in.DMMessageID
	row.Forwarded = in.Forwarded
	return s.messages.Create(dbc, row)
}

func (s *correlationService) buildRow(threadID, messageID, authorID, content string, attachments, stickers []domain.FileRef) (*domain.RelayedMessage, error) {
	attachJSON, err := domain.EncodeRefs(attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	stickerJSON, err := domain.EncodeRefs(stickers)
	if err != nil {
		return nil, fmt.Errorf("encode stickers: %w", err)
	}
	now := time.Now().UTC()
	row := &domain.RelayedMessage{
		MessageID:   messageID,
		ThreadID:    threadID,
		AuthorID:    authorID,
		Attachments: attachJSON,
		Stickers:    stickerJSON,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if content != "" {
		row.Content = &content
	}
	return row, nil
}

func (s *correlationService) GetByThreadMessageID(dbc dbctx.Context, messageID string) (*domain.RelayedMessage, error) {
	return s.messages.GetByMessageID(dbc, messageID)
}

func (s *correlationService) GetByUserDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error) {
	return s.messages.GetByUserDMMessageID(dbc, dmMessageID)
}

func (s *correlationService) GetByStaffDMMessageID(dbc dbctx.Context, dmMessageID string) (*domain.RelayedMessage, error) {
	return s.messages.GetByStaffRelayedMessageID(dbc, dmMessageID)
}

func (s *correlationService) ListThreadMessages(dbc dbctx.Context, threadID string) ([]*domain.RelayedMessage, error) {
	return s.messages.ListByThreadID(dbc, threadID)
}

// MarkEdited appends the next MessageVersion and replaces the stored
// content in one store transaction. Versions are per message and start at
// 1 on the first edit.
func (s *correlationService) MarkEdited(dbc dbctx.Context, messageID, newContent string) (*domain.MessageVersion, error) {
	if messageID == "" {
		return nil, fmt.Errorf("missing message_id")
	}
	var version *domain.MessageVersion
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		current, err := s.versions.MaxVersion(txc, messageID)
		if err != nil {
			return err
		}
		version, err = s.versions.Append(txc, &domain.MessageVersion{
			MessageID: messageID,
			Version:   current + 1,
			Content:   newContent,
			EditedAt:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.messages.UpdateContent(txc, messageID, newContent)
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (s *correlationService) MarkDeleted(dbc dbctx.Context, messageID string) error {
	return s.messages.MarkDeleted(dbc, messageID)
}

func (s *correlationService) ListVersions(dbc dbctx.Context, messageID string) ([]*domain.MessageVersion, error) {
	return s.versions.ListByMessageID(dbc, messageID)
}
