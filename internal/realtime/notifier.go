package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

// Notifier is the nil-safe audit fan-out used by the relay services. A nil
// Notifier (or one with no emitter) drops every event; emit failures are
// logged and never propagate into relay outcomes.
type Notifier struct {
	log  *logger.Logger
	emit Emitter
}

func NewNotifier(log *logger.Logger, emit Emitter) *Notifier {
	if log != nil {
		log = log.With("service", "RelayNotifier")
	}
	return &Notifier{log: log, emit: emit}
}

func (n *Notifier) ThreadOpened(ctx context.Context, threadID, userID string) {
	n.publish(ctx, Event{Kind: EventThreadOpened, ThreadID: threadID, UserID: userID})
}

func (n *Notifier) ThreadClosed(ctx context.Context, threadID, closedBy string) {
	n.publish(ctx, Event{Kind: EventThreadClosed, ThreadID: threadID, Actor: closedBy})
}

func (n *Notifier) MessageRelayed(ctx context.Context, threadID, messageID, authorID string) {
	n.publish(ctx, Event{Kind: EventMessageRelayed, ThreadID: threadID, MessageID: messageID, Actor: authorID})
}

func (n *Notifier) MessageEdited(ctx context.Context, threadID, messageID string) {
	n.publish(ctx, Event{Kind: EventMessageEdited, ThreadID: threadID, MessageID: messageID})
}

func (n *Notifier) MessageDeleted(ctx context.Context, threadID, messageID string) {
	n.publish(ctx, Event{Kind: EventMessageDeleted, ThreadID: threadID, MessageID: messageID})
}

func (n *Notifier) ReactionMirrored(ctx context.Context, threadID, messageID, actor, emoji string) {
	n.publish(ctx, Event{Kind: EventReactionMirrored, ThreadID: threadID, MessageID: messageID, Actor: actor, Emoji: emoji})
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	if n == nil || n.emit == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.At = time.Now().UTC()
	if err := n.emit.Emit(ctx, ev); err != nil && n.log != nil {
		n.log.Warn("Failed to publish relay event", "kind", ev.Kind, "error", err)
	}
}
