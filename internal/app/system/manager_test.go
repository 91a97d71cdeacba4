package system

import (
	"context"
	"errors"
	"testing"

	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

type recordingService struct {
	name     string
	startErr error
	log      *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.log = append(*s.log, "start:"+s.name)
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	*s.log = append(*s.log, "stop:"+s.name)
	return nil
}

func quiet() *logger.Logger { return logger.New(logger.LoggingConfig{Output: "discard"}) }

func TestManagerOrdersLifecycle(t *testing.T) {
	var calls []string
	m := NewManager(quiet())
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, log: &calls}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := m.Register(&recordingService{name: "a", log: &calls}); err == nil {
		t.Fatal("expected duplicate registration error")
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var calls []string
	m := NewManager(quiet())
	_ = m.Register(&recordingService{name: "a", log: &calls})
	_ = m.Register(&recordingService{name: "b", startErr: errors.New("boom"), log: &calls})
	_ = m.Register(&recordingService{name: "c", log: &calls})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if len(calls) != 2 || calls[0] != "start:a" || calls[1] != "stop:a" {
		t.Fatalf("unexpected calls %v", calls)
	}
}
