package realtime

import (
	"context"
	"time"
)

const (
	EventThreadOpened     = "thread_opened"
	EventThreadClosed     = "thread_closed"
	EventMessageRelayed   = "message_relayed"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventReactionMirrored = "reaction_mirrored"
)

// Event is the audit record published for every relay side effect. It is
// consumed by ops tooling (dashboards, log pipelines), never by the relay
// core itself.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	ThreadID  string    `json:"thread_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Emoji     string    `json:"emoji,omitempty"`
	At        time.Time `json:"at"`
}

type Emitter interface {
	Emit(ctx context.Context, ev Event) error
	Close() error
}
