package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
)

// Destination addresses one side of the relay: a staff thread channel or a
// user DM. IDs are opaque surface identifiers.
type DestinationKind string

const (
	DestinationChannel DestinationKind = "channel"
	DestinationUser    DestinationKind = "user"
)

type Destination struct {
	Kind DestinationKind `json:"kind"`
	ID   string          `json:"id"`
}

func Channel(id string) Destination { return Destination{Kind: DestinationChannel, ID: id} }
func User(id string) Destination    { return Destination{Kind: DestinationUser, ID: id} }

type OutgoingMessage struct {
	Content     string           `json:"content"`
	Attachments []domain.FileRef `json:"attachments,omitempty"`
	Stickers    []domain.FileRef `json:"stickers,omitempty"`
}

// Transport is the messaging-surface capability the relay core consumes.
// Every call is blocking, fallible and non-instantaneous; callers must not
// hold a store transaction open across one. Implementations classify
// failures as transient (network, rate limit) or permanent (target gone)
// via Error.Transient.
type Transport interface {
	// CreateStaffContainer creates the staff-visible thread for a user
	// conversation and posts the introductory message. Returns the new
	// container (channel) id.
	CreateStaffContainer(ctx context.Context, ownerUserID, title, initialContent string) (string, error)

	DeliverMessage(ctx context.Context, dest Destination, msg OutgoingMessage) (string, error)
	EditDeliveredMessage(ctx context.Context, dest Destination, messageID, newContent string) error
	DeleteDeliveredMessage(ctx context.Context, dest Destination, messageID string) error

	LockContainer(ctx context.Context, containerID string) error

	AddReaction(ctx context.Context, dest Destination, messageID, emoji string) error
	RemoveReaction(ctx context.Context, dest Destination, messageID, emoji string) error
}

// Error is the transport failure shape. The relay core does not interpret
// surface-specific codes beyond the transient hint.
type Error struct {
	Op        string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("surface %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("surface %s failed", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transport error the caller may
// reasonably retry end to end. Unknown errors are treated as permanent.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Transient
}
