package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.LoggingConfig{Output: "discard"})
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4, quietLogger())
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Event{Type: TypeTrialScheduled, Data: map[string]interface{}{"trial_id": "t1"}})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			assert.Equal(t, TypeTrialScheduled, evt.Type)
			assert.False(t, evt.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancelA()
	cancelA()
	assert.Equal(t, 1, hub.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(1, quietLogger())
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(Event{Type: "one"})
	hub.Publish(Event{Type: "two"})

	evt := <-ch
	assert.Equal(t, "one", evt.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered event %v", extra)
	default:
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(1, quietLogger())
	ch, cancel := hub.Subscribe()
	hub.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	hub.Publish(Event{Type: "ignored"})

	late, _ := hub.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestStreamHandlerDeliversEvents(t *testing.T) {
	hub := NewHub(8, quietLogger())
	srv := httptest.NewServer(NewStreamHandler(hub, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(Event{Type: TypeApplicationTransition, Data: map[string]interface{}{"to": "APPROVED"}})

	var got Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, TypeApplicationTransition, got.Type)
	assert.Equal(t, "APPROVED", got.Data["to"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
