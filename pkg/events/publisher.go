// Package events defines the envelope and type vocabulary the kiosk
// backend publishes to its event queue.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

// Publisher wraps frame's queue manager to emit typed events. A nil
// Publisher or one without a queue manager drops events silently, so
// event emission never becomes a hard dependency of request handling.
type Publisher struct {
	queueMgr queue.Manager
	source   string
	queueRef string
}

// NewPublisher creates a publisher that emits events to the given queue
// reference.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return &Publisher{
		queueMgr: queueMgr,
		source:   source,
		queueRef: queueRef,
	}
}

// Emit publishes a typed event to the event bus. Failures are logged,
// never returned; events are telemetry, not control flow.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, userID string, data interface{}) {
	if p == nil || p.queueMgr == nil || p.queueRef == "" {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("event payload not serializable",
			slog.String("event_type", string(eventType)), slog.Any("error", err))
		return
	}

	envelope := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		Source:    p.source,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	if err := p.queueMgr.Publish(ctx, p.queueRef, envelope); err != nil {
		slog.Warn("event publish failed",
			slog.String("event_type", string(eventType)), slog.Any("error", err))
	}
}
