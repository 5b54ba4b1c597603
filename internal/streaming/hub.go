package streaming

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

const defaultBufferSize = 16

// Subscription pairs a device interest with its delivery channel.
// The hub owns the channel for the subscription's lifetime; consumers read
// from C and hand (DeviceID, ID) back to Unsubscribe for teardown.
type Subscription struct {
	ID       uuid.UUID
	DeviceID string
	C        <-chan v1.NotificationPayload

	ch chan v1.NotificationPayload
}

// Hub is the in-memory subscriber registry and notification fan-out.
//
// Locking discipline: Fanout sends under the read lock, Subscribe/Unsubscribe
// mutate under the write lock, and only Unsubscribe closes a channel. A send
// can therefore never race a close — a subscription removed mid-ingest either
// receives the notification before teardown or not at all, never after.
type Hub struct {
	mu         sync.RWMutex
	bufferSize int
	subs       map[string]map[uuid.UUID]chan v1.NotificationPayload
}

// NewHub creates a hub whose subscription channels buffer bufferSize
// notifications before fan-out starts dropping for that subscriber.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		bufferSize: bufferSize,
		subs:       make(map[string]map[uuid.UUID]chan v1.NotificationPayload),
	}
}

// Subscribe registers interest in a device and returns the subscription whose
// channel the caller consumes. The subscription is visible to fan-out from the
// moment Subscribe returns.
func (h *Hub) Subscribe(deviceID string) *Subscription {
	ch := make(chan v1.NotificationPayload, h.bufferSize)
	sub := &Subscription{
		ID:       uuid.New(),
		DeviceID: deviceID,
		C:        ch,
		ch:       ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[deviceID] == nil {
		h.subs[deviceID] = make(map[uuid.UUID]chan v1.NotificationPayload)
	}
	h.subs[deviceID][sub.ID] = ch

	slog.Debug("Subscriber registered", "device_id", deviceID, "subscription_id", sub.ID)
	return sub
}

// Unsubscribe removes the exact (deviceID, id) pair and closes its channel.
// Idempotent: removing an already-removed pair is a no-op.
func (h *Hub) Unsubscribe(deviceID string, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	device, ok := h.subs[deviceID]
	if !ok {
		return
	}
	ch, ok := device[id]
	if !ok {
		return
	}

	delete(device, id)
	if len(device) == 0 {
		delete(h.subs, deviceID)
	}
	close(ch)

	slog.Debug("Subscriber removed", "device_id", deviceID, "subscription_id", id)
}

// Fanout delivers payload to every subscription registered for deviceID.
// Delivery is best-effort: a full channel is skipped silently so one stalled
// consumer can never block the ingestion path or starve other subscribers.
func (h *Hub) Fanout(deviceID string, payload v1.NotificationPayload) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs[deviceID] {
		select {
		case ch <- payload:
		default:
			slog.Warn("Subscriber channel saturated, dropping notification",
				"device_id", deviceID,
				"subscription_id", id)
		}
	}
}

// SubscriberCount reports the number of live subscriptions for a device.
func (h *Hub) SubscriberCount(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[deviceID])
}
