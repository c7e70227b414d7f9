package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lookout/internal/app/presence"
	"lookout/internal/core/contracts"
	"lookout/internal/core/domain"
	"lookout/internal/core/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu    sync.Mutex
	acked []string
	dels  []string
}

func (q *recordingQueue) Publish(context.Context, []byte) error { return nil }

func (q *recordingQueue) Subscribe(ctx context.Context, _ string, _ func(context.Context, string, []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (q *recordingQueue) Acknowledge(_ context.Context, _ string, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, id)
	return nil
}

func (q *recordingQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dels = append(q.dels, id)
	return nil
}

type memRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*domain.Notification
	delivered map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*domain.Notification), delivered: make(map[uuid.UUID]bool)}
}

func (r *memRepo) Insert(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[n.ID] = n
	return nil
}

func (r *memRepo) MarkDelivered(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	r.delivered[id] = true
	return nil
}

func (r *memRepo) ListPending(_ context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for id, n := range r.rows {
		if n.RecipientID == recipientID && !r.delivered[id] && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

// memHub implements contracts.Registry and records pushed frames.
type memHub struct {
	mu     sync.Mutex
	pushed map[string][][]byte
}

func newMemHub() *memHub { return &memHub{pushed: make(map[string][][]byte)} }

func (h *memHub) Register(contracts.Client)   {}
func (h *memHub) Unregister(contracts.Client) {}

func (h *memHub) Push(_ context.Context, userID string, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushed[userID] = append(h.pushed[userID], data)
	return true
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newDeliveryFixture(tr *presence.Tracker) (*DeliveryWorker, *recordingQueue, *memRepo, *memHub) {
	q := &recordingQueue{}
	repo := newMemRepo()
	hub := newMemHub()
	svc := services.NewNotificationService(slog.Default(), tr, q, repo, passthroughTx{})
	w := NewDeliveryWorker(slog.Default(), q, hub, tr, svc, "test-group")
	return w, q, repo, hub
}

func marshalNotification(t *testing.T, n domain.Notification) []byte {
	t.Helper()
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	return raw
}

func TestProcessMessagePushesToOnlineRecipient(t *testing.T) {
	tr := presence.New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	w, q, repo, hub := newDeliveryFixture(tr)

	n := domain.Notification{
		ID:          uuid.New(),
		RecipientID: "u1",
		RoomID:      "r1",
		SenderID:    "sender",
		Kind:        "message",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Insert(context.Background(), &n))

	err := w.ProcessMessage(context.Background(), "1-0", marshalNotification(t, n))
	require.NoError(t, err)

	require.Len(t, hub.pushed["u1"], 1)
	var frame domain.NotificationFrame
	require.NoError(t, json.Unmarshal(hub.pushed["u1"][0], &frame))
	assert.Equal(t, domain.TypeNotification, frame.Type)
	assert.Equal(t, n.ID.String(), frame.ID)

	assert.True(t, repo.delivered[n.ID], "pushed notification must be marked delivered")
	assert.Equal(t, []string{"1-0"}, q.acked)
	assert.Equal(t, []string{"1-0"}, q.dels)
}

func TestProcessMessageLeavesOfflineRecipientPending(t *testing.T) {
	tr := presence.New()
	w, q, repo, hub := newDeliveryFixture(tr)

	n := domain.Notification{
		ID:          uuid.New(),
		RecipientID: "offline",
		SenderID:    "sender",
		Kind:        "message",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Insert(context.Background(), &n))

	err := w.ProcessMessage(context.Background(), "2-0", marshalNotification(t, n))
	require.NoError(t, err)

	assert.Empty(t, hub.pushed["offline"])
	assert.False(t, repo.delivered[n.ID])
	pending, _ := repo.ListPending(context.Background(), "offline", 10)
	assert.Len(t, pending, 1, "offline recipient keeps the inbox row")
	assert.Equal(t, []string{"2-0"}, q.acked, "stream entry is still acked")
}

func TestProcessMessageDropsPoisonPayload(t *testing.T) {
	tr := presence.New()
	w, q, _, _ := newDeliveryFixture(tr)

	err := w.ProcessMessage(context.Background(), "3-0", []byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, []string{"3-0"}, q.acked, "poison entries must not wedge the group")
	assert.Equal(t, []string{"3-0"}, q.dels)
}
