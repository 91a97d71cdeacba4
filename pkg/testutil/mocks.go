// Package testutil provides test doubles shared across service and handler tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/notify"
)

// Inbox is a notify.Notifier that keeps every message it is asked to send.
type Inbox struct {
	mu   sync.RWMutex
	sent []notify.Message
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Send records msg.
func (i *Inbox) Send(_ context.Context, msg notify.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sent = append(i.sent, msg)
	return nil
}

// Last returns the most recent message and fails the test when none was sent.
func (i *Inbox) Last(t testing.TB) notify.Message {
	t.Helper()
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.sent) == 0 {
		t.Fatalf("no message sent")
	}
	return i.sent[len(i.sent)-1]
}

// Count returns how many messages were sent.
func (i *Inbox) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sent)
}

// CodeFor returns the latest code sent to phone and fails the test when
// nothing reached it.
func (i *Inbox) CodeFor(t testing.TB, phone string) string {
	t.Helper()
	i.mu.RLock()
	defer i.mu.RUnlock()
	for n := len(i.sent) - 1; n >= 0; n-- {
		if i.sent[n].Phone == phone {
			return i.sent[n].Code
		}
	}
	t.Fatalf("no code sent to %s", phone)
	return ""
}

// Recorder is an events.Publisher that keeps published events in order.
type Recorder struct {
	mu  sync.RWMutex
	got []events.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records evt.
func (r *Recorder) Publish(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, evt)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]events.Event, len(r.got))
	copy(out, r.got)
	return out
}

// Types returns the published event types in order.
func (r *Recorder) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.got))
	for _, evt := range r.got {
		out = append(out, evt.Type)
	}
	return out
}
