package app

import (
	"context"
	"testing"

	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
)

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(Stores{}, Options{}, nil); err == nil {
		t.Fatalf("expected error without auth secret")
	}
}

func TestApplicationLifecycle(t *testing.T) {
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	application, err := New(Stores{}, Options{
		Auth:  auth.Config{Secret: []byte("test-secret-value")},
		Blobs: blobs,
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if application.Auth == nil || application.Applications == nil || application.Trials == nil {
		t.Fatalf("expected services to be wired")
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream, unsubscribe := application.Events.Subscribe()
	defer unsubscribe()

	if err := application.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := <-stream; ok {
		t.Fatalf("expected event stream closed after stop")
	}

	info := application.Stats.System(ctx)
	if len(info.Services) != 8 {
		t.Fatalf("expected 8 service descriptors, got %d", len(info.Services))
	}
}
