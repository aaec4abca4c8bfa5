package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/relayerr"
)

func TestGetOrCreateThreadNew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, isNew, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !isNew {
		t.Fatalf("expected isNew=true for first thread")
	}
	if thread.ChannelID == "" || thread.UserID != "user-1" {
		t.Fatalf("thread = %+v", thread)
	}
	if thread.Title == nil || *thread.Title != "Alice" {
		t.Fatalf("title = %v, want Alice", thread.Title)
	}

	again, isNew, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if isNew {
		t.Fatalf("expected isNew=false for existing open thread")
	}
	if again.ChannelID != thread.ChannelID {
		t.Fatalf("channel id = %q, want %q", again.ChannelID, thread.ChannelID)
	}
	if len(env.transport.containers) != 1 {
		t.Fatalf("created %d containers, want 1", len(env.transport.containers))
	}
}

func TestGetOrCreateThreadCreationFailed(t *testing.T) {
	env := newTestEnv(t)
	env.transport.failCreate = errors.New("forum unavailable")

	_, _, err := env.threads.GetOrCreateThread(context.Background(), "user-1", "Alice")
	if !relayerr.HasCode(err, relayerr.CodeThreadCreateFailed) {
		t.Fatalf("err = %v, want %s", err, relayerr.CodeThreadCreateFailed)
	}

	var count int64
	if err := env.db.Model(&domain.Thread{}).Count(&count).Error; err != nil {
		t.Fatalf("count threads: %v", err)
	}
	if count != 0 {
		t.Fatalf("found %d thread rows after failed creation, want 0", count)
	}
}

func TestGetOrCreateThreadConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 4

	// Hold every creator inside the transport call so all of them observe
	// "no open thread" before any row is written.
	var arrived sync.WaitGroup
	arrived.Add(callers)
	release := make(chan struct{})
	env.transport.onCreate = func() {
		arrived.Done()
		<-release
	}
	go func() {
		arrived.Wait()
		close(release)
	}()

	type result struct {
		channelID string
		isNew     bool
		err       error
	}
	results := make(chan result, callers)
	for i := 0; i < callers; i++ {
		go func() {
			thread, isNew, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{channelID: thread.ChannelID, isNew: isNew}
		}()
	}

	var newCount int
	channelIDs := map[string]bool{}
	for i := 0; i < callers; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("concurrent get or create: %v", r.err)
		}
		if r.isNew {
			newCount++
		}
		channelIDs[r.channelID] = true
	}

	if newCount != 1 {
		t.Fatalf("%d callers reported isNew, want exactly 1", newCount)
	}
	if len(channelIDs) != 1 {
		t.Fatalf("callers saw %d distinct channel ids, want 1: %v", len(channelIDs), channelIDs)
	}

	var count int64
	if err := env.db.Model(&domain.Thread{}).Where("closed_at IS NULL").Count(&count).Error; err != nil {
		t.Fatalf("count open threads: %v", err)
	}
	if count != 1 {
		t.Fatalf("store holds %d open threads, want 1", count)
	}
}

func TestCloseThreadIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	if err := env.threads.CloseThread(ctx, thread, "staff-9"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if thread.ClosedAt == nil || thread.ClosedBy == nil || *thread.ClosedBy != "staff-9" {
		t.Fatalf("thread not marked closed: %+v", thread)
	}
	firstClosedAt := *thread.ClosedAt

	err = env.threads.CloseThread(ctx, thread, "staff-10")
	if !relayerr.HasCode(err, relayerr.CodeAlreadyClosed) {
		t.Fatalf("second close err = %v, want %s", err, relayerr.CodeAlreadyClosed)
	}

	var stored domain.Thread
	if err := env.db.Where("channel_id = ?", thread.ChannelID).Take(&stored).Error; err != nil {
		t.Fatalf("fetch thread: %v", err)
	}
	if stored.ClosedAt == nil || !stored.ClosedAt.Equal(firstClosedAt) {
		t.Fatalf("closed_at changed on repeated close: %v != %v", stored.ClosedAt, firstClosedAt)
	}
	if stored.ClosedBy == nil || *stored.ClosedBy != "staff-9" {
		t.Fatalf("closed_by = %v, want staff-9", stored.ClosedBy)
	}
	if len(env.transport.locks) != 1 {
		t.Fatalf("locked %d containers, want 1", len(env.transport.locks))
	}
}

func TestCloseThreadSurvivesLockFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	thread, _, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	env.transport.failLock = errors.New("rate limited")
	if err := env.threads.CloseThread(ctx, thread, "staff-9"); err != nil {
		t.Fatalf("close with failing lock: %v", err)
	}

	var stored domain.Thread
	if err := env.db.Where("channel_id = ?", thread.ChannelID).Take(&stored).Error; err != nil {
		t.Fatalf("fetch thread: %v", err)
	}
	if stored.ClosedAt == nil {
		t.Fatalf("thread not closed in store after lock failure")
	}
}

func TestNewThreadAfterClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, _, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("first thread: %v", err)
	}
	if err := env.threads.CloseThread(ctx, first, "staff-1"); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, isNew, err := env.threads.GetOrCreateThread(ctx, "user-1", "Alice")
	if err != nil {
		t.Fatalf("second thread: %v", err)
	}
	if !isNew {
		t.Fatalf("expected a fresh thread after close")
	}
	if second.ChannelID == first.ChannelID {
		t.Fatalf("reused channel id %q for new thread", second.ChannelID)
	}

	history, err := env.threads.ListThreadsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d threads, want 2", len(history))
	}
	if history[0].ChannelID != first.ChannelID || history[1].ChannelID != second.ChannelID {
		t.Fatalf("history not oldest-first: %q, %q", history[0].ChannelID, history[1].ChannelID)
	}
}

func TestGetThreadByChannelIDAbsent(t *testing.T) {
	env := newTestEnv(t)

	thread, err := env.threads.GetThreadByChannelID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if thread != nil {
		t.Fatalf("expected nil for unknown channel, got %+v", thread)
	}
}
