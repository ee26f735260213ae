package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (c *countingLoader) Load(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestPoller_ReloadsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader := &countingLoader{}
	p := NewPoller(loader, 5*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var results []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, func(err error) {
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool { return loader.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for _, err := range results {
		assert.NoError(t, err)
	}
}

func TestPoller_SkipsSupersededLoads(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader := &countingLoader{err: ErrStale}
	p := NewPoller(loader, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var reported atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, func(error) { reported.Add(1) })
	}()

	require.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, reported.Load())
}

func TestPoller_ReportsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	loader := &countingLoader{err: errors.New("connection refused")}
	p := NewPoller(loader, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, func(err error) {
			select {
			case got <- err:
			default:
			}
		})
	}()

	select {
	case err := <-got:
		assert.EqualError(t, err, "connection refused")
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh reported")
	}
	cancel()
	<-done
}

func TestPoller_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultRefreshInterval, NewPoller(&countingLoader{}, 0, nil).Interval())
	assert.Equal(t, time.Minute, NewPoller(&countingLoader{}, time.Minute, nil).Interval())
}

func TestPoller_DrivesSynchronizer(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := boardtest.NewFakeBackend(boardtest.SamplePipeline())
	s, _ := newTestSync(t, fake)
	p := NewPoller(s, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, nil)
	}()

	require.Eventually(t, s.Loaded, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 6, s.Snapshot().Stats.Total)
}
