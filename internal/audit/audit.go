package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event kinds emitted by the keeper.
const (
	KindKeeperStart          = "keeper.start"
	KindKeeperStop           = "keeper.stop"
	KindRefreshSuccess       = "refresh.success"
	KindRefreshRetry         = "refresh.retry"
	KindRefreshRejected      = "refresh.rejected"
	KindRefreshExhausted     = "refresh.exhausted"
	KindRefreshFailed        = "refresh.failed"
	KindRefreshSuppressed    = "refresh.suppressed"
	KindRefreshSkippedIdle   = "refresh.skipped_idle"
	KindRefreshDiscarded     = "refresh.discarded"
	KindScheduleArmed        = "schedule.armed"
	KindLogoutExternal       = "logout.external_invalidation"
	KindLogoutGraceExhausted = "logout.grace_exhausted"
	KindLogoutIdleExpired    = "logout.idle_expired"
	KindLogoutManual         = "logout.manual"
)

// Event is one structured lifecycle record.
type Event struct {
	At       time.Time         `json:"at"`
	EventID  string            `json:"event_id"`
	KeeperID string            `json:"keeper_id,omitempty"`
	Kind     string            `json:"kind"`
	UserID   string            `json:"user_id,omitempty"`
	Attempt  int               `json:"attempt,omitempty"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sink receives dispatched events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards everything.
type NoOpSink struct{}

// Emit drops the event.
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink delivers events into a buffered channel, for embedders that
// consume the stream themselves.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Emit delivers the event or gives up when ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the delivery channel.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line to w.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONWriterSink creates a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

// Emit serializes and writes the event; serialization failures are dropped.
func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	line = append(line, '\n')
	s.mu.Lock()
	_, _ = s.w.Write(line)
	s.mu.Unlock()
}
