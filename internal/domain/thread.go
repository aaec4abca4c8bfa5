package domain

import (
	"time"
)

// Thread is one conversation with one external user, keyed by the staff-side
// container (thread channel) id. Rows are append-only history: closing sets
// closed_at/closed_by, and a later message from the same user opens a brand
// new row. The partial unique index enforces at most one open thread per
// user across concurrent writers.
type Thread struct {
	ChannelID string     `gorm:"type:text;primaryKey" json:"channel_id"`
	GuildID   string     `gorm:"type:text;not null;index" json:"guild_id"`
	UserID    string     `gorm:"type:text;not null;index;uniqueIndex:uix_thread_open_user,where:closed_at IS NULL" json:"user_id"`
	Title     *string    `gorm:"type:text" json:"title,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	ClosedAt  *time.Time `gorm:"index" json:"closed_at,omitempty"`
	ClosedBy  *string    `gorm:"type:text" json:"closed_by,omitempty"`
}

func (Thread) TableName() string { return "modmail_thread" }

func (t *Thread) IsOpen() bool {
	return t != nil && t.ClosedAt == nil
}
