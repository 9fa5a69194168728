package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRuns struct {
	mu     sync.Mutex
	next   int
	status map[string]string
	done   chan string
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{status: map[string]string{}, done: make(chan string, 8)}
}

func (m *memoryRuns) CreateJobRun(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("run-%d", m.next)
	m.status[id] = StatusRunning
	return id, nil
}

func (m *memoryRuns) UpdateJobRun(_ context.Context, runID, status string, _ any) error {
	m.mu.Lock()
	m.status[runID] = status
	m.mu.Unlock()
	m.done <- runID
	return nil
}

func (m *memoryRuns) get(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id]
}

func TestRunNowRecordsOutcome(t *testing.T) {
	runs := newMemoryRuns()
	svc := New(runs, nil, 1)

	out, err := svc.RunNow(context.Background(), JobPayrollRun, func(context.Context) (any, error) {
		return map[string]int{"processed": 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"processed": 3}, out)
	assert.Equal(t, StatusCompleted, runs.get("run-1"))

	_, err = svc.RunNow(context.Background(), JobPayrollRun, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, runs.get("run-2"))
}

func TestEnqueueRunsInBackground(t *testing.T) {
	runs := newMemoryRuns()
	svc := New(runs, nil, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 1)

	id, err := svc.Enqueue(ctx, JobPayrollRun, func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)

	select {
	case finished := <-runs.done:
		assert.Equal(t, id, finished)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
	assert.Equal(t, StatusCompleted, runs.get(id))
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	runs := newMemoryRuns()
	svc := New(runs, nil, 1)
	noop := func(context.Context) (any, error) { return nil, nil }

	_, err := svc.Enqueue(context.Background(), JobPayrollRun, noop)
	require.NoError(t, err)
	_, err = svc.Enqueue(context.Background(), JobPayrollRun, noop)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, StatusFailed, runs.get("run-2"))
}

func TestStartRunsJobsConcurrently(t *testing.T) {
	runs := newMemoryRuns()
	svc := New(runs, nil, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 2)

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	blocking := func(context.Context) (any, error) {
		started.Done()
		<-release
		return nil, nil
	}
	for range 2 {
		_, err := svc.Enqueue(ctx, JobPayrollRun, blocking)
		require.NoError(t, err)
	}

	bothRunning := make(chan struct{})
	go func() {
		started.Wait()
		close(bothRunning)
	}()
	select {
	case <-bothRunning:
	case <-time.After(2 * time.Second):
		t.Fatal("expected two jobs to run at once")
	}
	close(release)
	for range 2 {
		select {
		case <-runs.done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not finish")
		}
	}
}
