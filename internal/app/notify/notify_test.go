package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsMessage(t *testing.T) {
	var got Message
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "secret", logger.New(logger.LoggingConfig{Output: "discard"}))
	err := n.Send(context.Background(), Message{Phone: "+15550001111", Purpose: "verify", Code: "123456", TTLSecs: 600})
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, 600, got.TTLSecs)
}

func TestWebhookNotifierReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad number", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "", nil)
	err := n.Send(context.Background(), Message{Phone: "+1"})
	assert.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(logger.New(logger.LoggingConfig{Output: "discard"}))
	assert.NoError(t, n.Send(context.Background(), Message{Phone: "+15550001111", Code: "000000"}))
}
