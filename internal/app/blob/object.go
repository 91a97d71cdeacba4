package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/httputil"
	"github.com/tidwall/gjson"
)

// ObjectStore relays objects to a Supabase-compatible storage API:
// {base}/storage/v1/object/{bucket}/{key}.
type ObjectStore struct {
	client *httputil.Client
	bucket string
}

// NewObjectStore creates a relay for bucket at baseURL, authenticating with key.
func NewObjectStore(baseURL, bucket, key string) *ObjectStore {
	return &ObjectStore{
		client: httputil.NewClient(httputil.ClientConfig{
			BaseURL: strings.TrimRight(baseURL, "/") + "/storage/v1",
			APIKey:  key,
		}),
		bucket: bucket,
	}
}

func (s *ObjectStore) objectPath(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/object/%s/%s", s.bucket, escapeKey(key)), nil
}

func (s *ObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := s.client.Do(ctx, http.MethodPost, p, data, map[string]string{
		"Content-Type": contentType,
		"x-upsert":     "true",
	})
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	body, err := httputil.ReadBody(resp, 64<<10)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	if stored := gjson.GetBytes(body, "Key"); stored.Exists() && !strings.HasSuffix(stored.String(), key) {
		return fmt.Errorf("upload object: storage acknowledged %q, want %q", stored.String(), key)
	}
	return nil
}

func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, http.MethodGet, "/object/authenticated"+strings.TrimPrefix(p, "/object"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("download object: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		_, err := httputil.ReadBody(resp, 4<<10)
		return nil, fmt.Errorf("download object: %w", err)
	}
	return resp.Body, nil
}

func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, http.MethodDelete, p, nil, nil)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return ErrNotFound
	}
	if _, err := httputil.ReadBody(resp, 4<<10); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
