package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockDeleter はDeleteExpiredの呼び出しを記録するモック。
type mockDeleter struct {
	mu      sync.Mutex
	calls   []time.Time
	deleted int64
	err     error
}

func (m *mockDeleter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, now)
	return m.deleted, m.err
}

func (m *mockDeleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockRecorder struct {
	total atomic.Int64
	calls atomic.Int64
}

func (r *mockRecorder) RecordSessionsSwept(count int64) {
	r.total.Add(count)
	r.calls.Add(1)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestSessionSweeper_Run(t *testing.T) {
	t.Run("削除件数を返しメトリクスとログに残す", func(t *testing.T) {
		var buf bytes.Buffer
		deleter := &mockDeleter{deleted: 5}
		recorder := &mockRecorder{}
		sweeper := NewSessionSweeper(deleter, recorder, newTestLogger(&buf))
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		sweeper.now = func() time.Time { return fixed }

		deleted, err := sweeper.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deleted != 5 {
			t.Errorf("deleted = %d, want 5", deleted)
		}
		if len(deleter.calls) != 1 || !deleter.calls[0].Equal(fixed) {
			t.Errorf("unexpected calls: %v", deleter.calls)
		}
		if recorder.total.Load() != 5 {
			t.Errorf("recorded = %d, want 5", recorder.total.Load())
		}

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("failed to parse log: %v\nraw: %s", err, buf.String())
		}
		if entry["deleted_count"] != float64(5) {
			t.Errorf("deleted_count = %v, want 5", entry["deleted_count"])
		}
	})

	t.Run("ストアのエラーを返しメトリクスは記録しない", func(t *testing.T) {
		var buf bytes.Buffer
		deleter := &mockDeleter{err: errors.New("connection refused")}
		recorder := &mockRecorder{}
		sweeper := NewSessionSweeper(deleter, recorder, newTestLogger(&buf))

		if _, err := sweeper.Run(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if recorder.calls.Load() != 0 {
			t.Error("recorder should not be called on failure")
		}
		if !strings.Contains(buf.String(), "connection refused") {
			t.Errorf("expected error log, got %s", buf.String())
		}
	})

	t.Run("recorderなしでも動作する", func(t *testing.T) {
		sweeper := NewSessionSweeper(&mockDeleter{}, nil, newTestLogger(&bytes.Buffer{}))
		if _, err := sweeper.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSessionSweeper_RunWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewMemorySessionRepo(0)
	now := time.Now()

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		sess := &model.Session{
			ID:        string(rune('a' + i)),
			UserID:    1,
			ExpiresAt: expires,
			CreatedAt: now.Add(-2 * time.Hour),
		}
		if err := sessions.Create(ctx, sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}

	sweeper := NewSessionSweeper(sessions, nil, newTestLogger(&bytes.Buffer{}))
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	// 2回目は対象なし
	deleted, err = sweeper.Run(ctx)
	if err != nil || deleted != 0 {
		t.Errorf("second run = (%d, %v), want (0, nil)", deleted, err)
	}
}

func TestSessionSweeper_StartStopsOnCancel(t *testing.T) {
	deleter := &mockDeleter{}
	sweeper := NewSessionSweeper(deleter, nil, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for deleter.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", deleter.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestSessionSweeper_StartWithCancelledContext(t *testing.T) {
	deleter := &mockDeleter{}
	sweeper := NewSessionSweeper(deleter, nil, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sweeper.Start(ctx, time.Hour)

	if deleter.callCount() != 0 {
		t.Errorf("expected no runs, got %d", deleter.callCount())
	}
}
