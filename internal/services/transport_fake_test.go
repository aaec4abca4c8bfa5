package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/mailroom-bot/mailroom-backend/internal/data/repos"
	"github.com/mailroom-bot/mailroom-backend/internal/data/repos/testutil"
	"github.com/mailroom-bot/mailroom-backend/internal/surface"
)

type deliveredCall struct {
	dest surface.Destination
	msg  surface.OutgoingMessage
	id   string
}

type reactionCall struct {
	dest      surface.Destination
	messageID string
	emoji     string
}

// fakeTransport records every capability call and can be primed to fail.
// onCreate, when set, runs before CreateStaffContainer takes the lock so
// tests can hold concurrent creators at the same point.
type fakeTransport struct {
	mu sync.Mutex

	onCreate func()

	failCreate  error
	failDeliver error
	failEdit    error
	failDelete  error
	failLock    error
	failReact   error

	containerSeq int
	deliverSeq   int

	containers []string
	delivered  []deliveredCall
	edits      []string
	deletes    []string
	locks      []string
	added      []reactionCall
	removed    []reactionCall
}

func (f *fakeTransport) CreateStaffContainer(ctx context.Context, ownerUserID, title, initialContent string) (string, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.containerSeq++
	id := fmt.Sprintf("container-%d", f.containerSeq)
	f.containers = append(f.containers, id)
	return id, nil
}

func (f *fakeTransport) DeliverMessage(ctx context.Context, dest surface.Destination, msg surface.OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeliver != nil {
		return "", f.failDeliver
	}
	f.deliverSeq++
	id := fmt.Sprintf("delivered-%d", f.deliverSeq)
	f.delivered = append(f.delivered, deliveredCall{dest: dest, msg: msg, id: id})
	return id, nil
}

func (f *fakeTransport) EditDeliveredMessage(ctx context.Context, dest surface.Destination, messageID, newContent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return f.failEdit
	}
	f.edits = append(f.edits, messageID)
	return nil
}

func (f *fakeTransport) DeleteDeliveredMessage(ctx context.Context, dest surface.Destination, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeTransport) LockContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLock != nil {
		return f.failLock
	}
	f.locks = append(f.locks, containerID)
	return nil
}

func (f *fakeTransport) AddReaction(ctx context.Context, dest surface.Destination, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReact != nil {
		return f.failReact
	}
	f.added = append(f.added, reactionCall{dest: dest, messageID: messageID, emoji: emoji})
	return nil
}

func (f *fakeTransport) RemoveReaction(ctx context.Context, dest surface.Destination, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReact != nil {
		return f.failReact
	}
	f.removed = append(f.removed, reactionCall{dest: dest, messageID: messageID, emoji: emoji})
	return nil
}

func (f *fakeTransport) deliveredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func (f *fakeTransport) addedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type testEnv struct {
	db        *gorm.DB
	transport *fakeTransport

	threads     ThreadService
	correlation CorrelationService
	relay       RelayService
	reactions   ReactionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.DB(t)
	log := testutil.Logger(t)
	transport := &fakeTransport{}

	threadRepo := repos.NewThreadRepo(db, log)
	messageRepo := repos.NewMessageRepo(db, log)
	versionRepo := repos.NewMessageVersionRepo(db, log)

	threadService := NewThreadService(db, log, "guild-1", threadRepo, transport, nil)
	correlationService := NewCorrelationService(db, log, messageRepo, versionRepo)
	relayService := NewRelayService(db, log, threadService, correlationService, transport, nil)
	reactionService := NewReactionService(db, log, correlationService, transport, nil)

	return &testEnv{
		db:          db,
		transport:   transport,
		threads:     threadService,
		correlation: correlationService,
		relay:       relayService,
		reactions:   reactionService,
	}
}
