package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/itsmrshow/foreman/internal/world"
)

type flakySource struct {
	failures int
	err      error
	calls    int
}

func (s *flakySource) Load(ctx context.Context) (world.World, world.Tick, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, 0, s.err
	}
	return world.NewLive(nil), 42, nil
}

func TestLoadWithRetry_Success(t *testing.T) {
	src := &flakySource{}
	_, tick, err := loadWithRetry(context.Background(), src, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tick != 42 || src.calls != 1 {
		t.Errorf("expected tick 42 after one call, got %d after %d", tick, src.calls)
	}
}

func TestLoadWithRetry_RetryThenSuccess(t *testing.T) {
	src := &flakySource{failures: 2, err: fmt.Errorf("unexpected EOF")}
	if _, _, err := loadWithRetry(context.Background(), src, 3, time.Millisecond); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", src.calls)
	}
}

func TestLoadWithRetry_AllFail(t *testing.T) {
	src := &flakySource{failures: 10, err: fmt.Errorf("truncated")}
	if _, _, err := loadWithRetry(context.Background(), src, 3, time.Millisecond); err == nil {
		t.Fatal("expected error after all retries fail")
	}
	if src.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", src.calls)
	}
}

func TestLoadWithRetry_MissingFileNoRetry(t *testing.T) {
	src := &flakySource{failures: 10, err: fmt.Errorf("failed to open snapshot: %w", fs.ErrNotExist)}
	_, _, err := loadWithRetry(context.Background(), src, 3, time.Millisecond)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", src.calls)
	}
}

func TestLoadWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &flakySource{failures: 10, err: fmt.Errorf("truncated")}
	if _, _, err := loadWithRetry(ctx, src, 3, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", src.calls)
	}
}
