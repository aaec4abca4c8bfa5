package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// RelayedMessage correlates a message with its mirror on the opposite
// surface. MessageID is always the thread-side id: the staff command
// message for staff-authored rows, the delivered mirror copy for
// user-authored rows. Exactly one of StaffRelayedMessageID /
// UserDMMessageID is populated, selected by IsStaff.
//
// A row exists only for content that was confirmed delivered to the
// counterpart surface. Deleted messages keep their row (is_deleted=true)
// so later edit/reaction events can still be resolved and rejected.
type RelayedMessage struct {
	MessageID string `gorm:"type:text;primaryKey" json:"message_id"`
	ThreadID  string `gorm:"type:text;not null;index" json:"thread_id"`
	AuthorID  string `gorm:"type:text;not null;index" json:"author_id"`
	IsStaff   bool   `gorm:"not null" json:"is_staff"`

	Content     *string        `gorm:"type:text" json:"content,omitempty"`
	Attachments datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"attachments"`
	Stickers    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"stickers"`
	Forwarded   bool           `gorm:"not null;default:false" json:"forwarded"`
	IsDeleted   bool           `gorm:"not null;default:false;index" json:"is_deleted"`

	// Staff variant: id of the mirror copy delivered to the user's DM.
	StaffRelayedMessageID *string `gorm:"type:text;uniqueIndex" json:"staff_relayed_message_id,omitempty"`
	IsAnonymous           bool    `gorm:"not null;default:false" json:"is_anonymous"`
	IsPlainText           bool    `gorm:"not null;default:false" json:"is_plain_text"`
	IsSnippet             bool    `gorm:"not null;default:false" json:"is_snippet"`

	// User variant: id of the original message in the user's DM.
	UserDMMessageID *string `gorm:"type:text;uniqueIndex" json:"user_dm_message_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RelayedMessage) TableName() string { return "relayed_message" }

// DMMirrorID returns the DM-side id of this message: the relayed copy for
// staff rows, the original message for user rows. A missing id is a
// data-integrity fault, never a valid state.
func (m *RelayedMessage) DMMirrorID() (string, error) {
	if m.IsStaff {
		if m.StaffRelayedMessageID == nil || *m.StaffRelayedMessageID == "" {
			return "", fmt.Errorf("staff message %s has no relayed mirror id", m.MessageID)
		}
		return *m.StaffRelayedMessageID, nil
	}
	if m.UserDMMessageID == nil || *m.UserDMMessageID == "" {
		return "", fmt.Errorf("user message %s has no dm mirror id", m.MessageID)
	}
	return *m.UserDMMessageID, nil
}

// MessageVersion is the append-only edit history of a staff message.
// Versions start at 1 and increase by one per edit.
type MessageVersion struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID string    `gorm:"type:text;not null;uniqueIndex:uix_message_version,priority:1" json:"message_id"`
	Version   int       `gorm:"not null;uniqueIndex:uix_message_version,priority:2" json:"version"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	EditedAt  time.Time `gorm:"not null" json:"edited_at"`
}

func (MessageVersion) TableName() string { return "relayed_message_version" }

// FileRef names one attachment or sticker carried alongside a message.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func EncodeRefs(refs []FileRef) (datatypes.JSON, error) {
	if refs == nil {
		refs = []FileRef{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func DecodeRefs(raw datatypes.JSON) ([]FileRef, error) {
	if len(raw) == 0 {
		return []FileRef{}, nil
	}
	var refs []FileRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
