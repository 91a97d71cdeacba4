package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := Key("app-1", "doc-1")
	require.NoError(t, store.Put(ctx, key, "image/png", []byte("png-bytes")))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), ErrNotFound)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "applications/../../x", "a//b"} {
		err := store.Put(context.Background(), key, "", []byte("x"))
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: %v", key, err)
	}
}

func TestObjectStoreRelay(t *testing.T) {
	objects := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/storage/v1/object/docs/"):
			body, _ := io.ReadAll(r.Body)
			key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
			objects[key] = string(body)
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			_, _ = io.WriteString(w, `{"Key":"`+key+`"}`)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/storage/v1/object/authenticated/"):
			body, ok := objects[strings.TrimPrefix(r.URL.Path, "/storage/v1/object/authenticated/")]
			if !ok {
				http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, body)
		case r.Method == http.MethodDelete:
			key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
			if _, ok := objects[key]; !ok {
				http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
				return
			}
			delete(objects, key)
			_, _ = io.WriteString(w, `{"message":"Successfully deleted"}`)
		default:
			http.Error(w, "unexpected", http.StatusTeapot)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewObjectStore(srv.URL+"/", "docs", "service-key")
	key := Key("app-1", "doc-1")

	require.NoError(t, store.Put(ctx, key, "application/pdf", []byte("%PDF-1.4")))
	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
