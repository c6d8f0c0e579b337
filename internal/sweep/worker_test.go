package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voipdesk/planwatch/internal/domain"
)

// countingSource counts ListActive calls so tests can observe sweep runs.
type countingSource struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSource) ListActive(_ context.Context) ([]domain.Subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func (c *countingSource) GetByID(_ context.Context, _ string) (*domain.Subscriber, error) {
	return nil, nil
}

func (c *countingSource) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWorker_RunOnStart(t *testing.T) {
	source := &countingSource{}
	svc := NewService(source, newMockStore(), staticResolver{days: 30})

	w := NewWorker(WorkerConfig{Interval: time.Hour, RunOnStart: true}, svc)
	w.Start(context.Background())

	require.Eventually(t, func() bool {
		return source.count() == 1
	}, time.Second, 10*time.Millisecond)

	w.Stop()
	assert.Equal(t, 1, source.count())
}

func TestWorker_NoRunOnStart(t *testing.T) {
	source := &countingSource{}
	svc := NewService(source, newMockStore(), staticResolver{days: 30})

	w := NewWorker(WorkerConfig{Interval: time.Hour, RunOnStart: false}, svc)
	w.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	assert.Equal(t, 0, source.count())
}

func TestWorker_TickerFires(t *testing.T) {
	source := &countingSource{}
	svc := NewService(source, newMockStore(), staticResolver{days: 30})

	w := NewWorker(WorkerConfig{Interval: 20 * time.Millisecond, RunOnStart: false}, svc)
	w.Start(context.Background())

	require.Eventually(t, func() bool {
		return source.count() >= 2
	}, time.Second, 5*time.Millisecond)

	w.Stop()
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	source := &countingSource{}
	svc := NewService(source, newMockStore(), staticResolver{days: 30})

	w := NewWorker(WorkerConfig{Interval: time.Hour}, svc)
	w.Start(context.Background())

	w.Stop()
	w.Stop()
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	source := &countingSource{}
	svc := NewService(source, newMockStore(), staticResolver{days: 30})

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(WorkerConfig{Interval: time.Hour}, svc)
	w.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestNewWorker_DefaultsInterval(t *testing.T) {
	w := NewWorker(WorkerConfig{}, nil)
	assert.Equal(t, 24*time.Hour, w.config.Interval)
}
