package services

import (
	"context"
	"errors"
	"testing"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

func TestRelayUserMessageNewThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, row, isNew, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "my payment failed",
	})
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if !isNew {
		t.Fatalf("expected new thread for first message")
	}
	if row.IsStaff {
		t.Fatalf("user message stored as staff variant")
	}
	if row.ThreadID != thread.ChannelID {
		t.Fatalf("row thread = %q, want %q", row.ThreadID, thread.ChannelID)
	}

	// Delivery targets the new container; the first transport delivery is
	// the mirror copy.
	if len(env.transport.delivered) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(env.transport.delivered))
	}
	call := env.transport.delivered[0]
	if call.dest != surface.Channel(thread.ChannelID) {
		t.Fatalf("delivered to %+v, want channel %s", call.dest, thread.ChannelID)
	}
	if row.MessageID != call.id {
		t.Fatalf("record message id %q != delivered id %q", row.MessageID, call.id)
	}

	// Round trip: the DM id resolves back to the thread-side id.
	resolved, err := env.correlation.GetByUserDMMessageID(dbctx.Background(), "dm-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved == nil || resolved.MessageID != row.MessageID {
		t.Fatalf("resolved %+v, want message id %q", resolved, row.MessageID)
	}
}

func TestRelayUserMessageDeliveryFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.transport.failDeliver = &surface.Error{Op: "deliver_message", Transient: true, Err: errors.New("gateway timeout")}

	_, _, _, err := env.relay.RelayUserMessage(context.Background(), "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "hello?",
	})
	if relayerr.KindOf(err) != relayerr.KindTransport {
		t.Fatalf("err = %v, want transport failure", err)
	}
	var re *relayerr.Error
	if !errors.As(err, &re) || !re.Transient {
		t.Fatalf("transient hint lost: %v", err)
	}

	var count int64
	if err := env.db.Model(&domain.RelayedMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("found %d correlation rows after failed delivery, want 0", count)
	}
}

func TestRelayStaffMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed user message: %v", err)
	}

	row, err := env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
		Content:   "looking into it",
		Anonymous: true,
		Snippet:   true,
	})
	if err != nil {
		t.Fatalf("relay staff: %v", err)
	}
	if !row.IsStaff || !row.IsAnonymous || !row.IsSnippet {
		t.Fatalf("options not stored: %+v", row)
	}
	if row.MessageID != "staff-cmd-1" {
		t.Fatalf("message id = %q, want the staff command id", row.MessageID)
	}

	last := env.transport.delivered[len(env.transport.delivered)-1]
	if last.dest != surface.User("user-1") {
		t.Fatalf("staff reply delivered to %+v, want user-1 DM", last.dest)
	}
	if mirror, err := row.DMMirrorID(); err != nil || mirror != last.id {
		t.Fatalf("mirror id = %q, %v; want %q", mirror, err, last.id)
	}
}

func TestRelayStaffMessageEmptyReply(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.relay.RelayStaffMessage(context.Background(), "ch-1", "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
	})
	if !relayerr.HasCode(err, relayerr.CodeEmptyReply) {
		t.Fatalf("err = %v, want %s", err, relayerr.CodeEmptyReply)
	}
	if env.transport.deliveredCount() != 0 {
		t.Fatalf("delivery attempted for empty reply")
	}

	var count int64
	if err := env.db.Model(&domain.RelayedMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("row written for empty reply")
	}
}

func TestRelayStaffMessageAttachmentsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// No text, but an attachment: not an empty reply.
	_, err = env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID:   "staff-cmd-1",
		Attachments: []domain.FileRef{{Name: "guide.pdf", URL: "https://cdn.example/guide.pdf"}},
	})
	if err != nil {
		t.Fatalf("relay attachments-only reply: %v", err)
	}
}

func TestRelayStaffMessageClosedThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := env.threads.CloseThread(ctx, thread, "staff-1"); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
		Content:   "too late",
	})
	if !relayerr.HasCode(err, relayerr.CodeThreadClosed) {
		t.Fatalf("err = %v, want %s", err, relayerr.CodeThreadClosed)
	}
}

func TestEditStaffMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	staffRow, err := env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
		Content:   "v1",
	})
	if err != nil {
		t.Fatalf("staff reply: %v", err)
	}

	if err := env.relay.EditStaffMessage(ctx, staffRow.MessageID, "v2"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	mirrorID, _ := staffRow.DMMirrorID()
	if len(env.transport.edits) != 1 || env.transport.edits[0] != mirrorID {
		t.Fatalf("edits = %v, want [%s]", env.transport.edits, mirrorID)
	}

	row, err := env.correlation.GetByThreadMessageID(dbctx.Background(), staffRow.MessageID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if row.Content == nil || *row.Content != "v2" {
		t.Fatalf("content = %v, want v2", row.Content)
	}
}

func TestEditGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, userRow, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed user message: %v", err)
	}
	staffRow, err := env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
		Content:   "v1",
	})
	if err != nil {
		t.Fatalf("seed staff message: %v", err)
	}

	t.Run("unknown_message", func(t *testing.T) {
		err := env.relay.EditStaffMessage(ctx, "nope", "x")
		if relayerr.KindOf(err) != relayerr.KindNotFound {
			t.Fatalf("err = %v, want not found", err)
		}
	})

	t.Run("user_message_not_editable", func(t *testing.T) {
		err := env.relay.EditStaffMessage(ctx, userRow.MessageID, "x")
		if !relayerr.HasCode(err, relayerr.CodeNotEditable) {
			t.Fatalf("err = %v, want %s", err, relayerr.CodeNotEditable)
		}
	})

	t.Run("deleted_message", func(t *testing.T) {
		if err := env.relay.DeleteStaffMessage(ctx, staffRow.MessageID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		err := env.relay.EditStaffMessage(ctx, staffRow.MessageID, "x")
		if !relayerr.HasCode(err, relayerr.CodeAlreadyDeleted) {
			t.Fatalf("err = %v, want %s", err, relayerr.CodeAlreadyDeleted)
		}
	})

	t.Run("closed_thread", func(t *testing.T) {
		second, err := env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
			MessageID: "staff-cmd-2",
			Content:   "still here",
		})
		if err != nil {
			t.Fatalf("second staff reply: %v", err)
		}
		if err := env.threads.CloseThread(ctx, thread, "staff-1"); err != nil {
			t.Fatalf("close: %v", err)
		}
		err = env.relay.EditStaffMessage(ctx, second.MessageID, "x")
		if !relayerr.HasCode(err, relayerr.CodeThreadClosed) {
			t.Fatalf("err = %v, want %s", err, relayerr.CodeThreadClosed)
		}
	})
}

func TestDeleteStaffMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, _, err := env.relay.RelayUserMessage(ctx, "user-1", "Alice", UserMessageInput{
		DMMessageID: "dm-1",
		Content:     "help",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	staffRow, err := env.relay.RelayStaffMessage(ctx, thread.ChannelID, "staff-1", StaffMessageInput{
		MessageID: "staff-cmd-1",
		Content:   "oops",
	})
	if err != nil {
		t.Fatalf("staff reply: %v", err)
	}

	if err := env.relay.DeleteStaffMessage(ctx, staffRow.MessageID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	mirrorID, _ := staffRow.DMMirrorID()
	if len(env.transport.deletes) != 1 || env.transport.deletes[0] != mirrorID {
		t.Fatalf("deletes = %v, want [%s]", env.transport.deletes, mirrorID)
	}

	err = env.relay.DeleteStaffMessage(ctx, staffRow.MessageID)
	if !relayerr.HasCode(err, relayerr.CodeAlreadyDeleted) {
		t.Fatalf("second delete err = %v, want %s", err, relayerr.CodeAlreadyDeleted)
	}
}
