package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pizza-service/internal/broker"
	"pizza-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsTask(t *testing.T) {
	d := NewDispatcher(2, time.Second)

	var ran atomic.Bool
	d.Go("simple", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		ran.Store(true)
		return nil
	})
	d.Wait()

	assert.True(t, ran.Load())
}

func TestDispatcherSwallowsErrorsAndPanics(t *testing.T) {
	d := NewDispatcher(1, time.Second)

	var count atomic.Int32
	d.Go("fails", func(context.Context) error {
		count.Add(1)
		return errors.New("boom")
	})
	d.Go("panics", func(context.Context) error {
		count.Add(1)
		panic("unexpected")
	})
	d.Go("ok", func(context.Context) error {
		count.Add(1)
		return nil
	})
	d.Wait()

	assert.Equal(t, int32(3), count.Load())
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	d := NewDispatcher(2, time.Second)

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		d.Go("bounded", func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	d.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcherTaskTimeout(t *testing.T) {
	d := NewDispatcher(1, 20*time.Millisecond)

	errCh := make(chan error, 1)
	d.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	})
	d.Wait()

	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
}

func TestDispatcherStopRejectsNewTasks(t *testing.T) {
	d := NewDispatcher(1, time.Second)
	require.NoError(t, d.Stop(context.Background()))

	var ran atomic.Bool
	d.Go("late", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	d.Wait()

	assert.False(t, ran.Load())
}

func TestDispatcherStopCancelsOnDeadline(t *testing.T) {
	d := NewDispatcher(1, time.Minute)

	started := make(chan struct{})
	d.Go("stuck", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
}

func TestDispatcherStopConcurrentWithGo(t *testing.T) {
	d := NewDispatcher(4, time.Second)

	var submitted sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		submitted.Add(1)
		go func() {
			defer submitted.Done()
			d.Go("racing", func(context.Context) error {
				ran.Add(1)
				return nil
			})
		}()
	}

	require.NoError(t, d.Stop(context.Background()))
	submitted.Wait()

	// Every task accepted before Stop has finished once Stop returns.
	accepted := ran.Load()
	d.Wait()
	assert.Equal(t, accepted, ran.Load())
}

type queueReader struct {
	mu    sync.Mutex
	queue []kafka.Message
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (r *queueReader) Close() error { return nil }

type hubRecorder struct {
	updates chan models.StatusUpdate
}

func (h *hubRecorder) PublishStatus(_ context.Context, u models.StatusUpdate) error {
	h.updates <- u
	return nil
}

func TestStatusWorkerForwardsUpdates(t *testing.T) {
	event := models.OrderStatusChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   9,
		Status:    models.OrderStatusOutForDelivery,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	hub := &hubRecorder{updates: make(chan models.StatusUpdate, 1)}
	w := NewStatusWorker(broker.NewConsumerWithReader(&queueReader{queue: []kafka.Message{{Value: payload}}}, "orders"), hub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case u := <-hub.updates:
		assert.Equal(t, int64(9), u.OrderID)
		assert.Equal(t, models.OrderStatusOutForDelivery, u.Status)
		assert.True(t, u.UpdatedAt.Equal(event.Timestamp))
	case <-ctx.Done():
		t.Fatal("status update was not forwarded")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.NoError(t, w.Stop())
}

func TestDirectStatusPush(t *testing.T) {
	hub := &hubRecorder{updates: make(chan models.StatusUpdate, 1)}
	p := NewDirectStatusPush(hub)

	require.NoError(t, p.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{OrderID: 1}))
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), &models.OrderStatusChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   1,
		Status:    models.OrderStatusAccepted,
	}))

	u := <-hub.updates
	assert.Equal(t, int64(1), u.OrderID)
	assert.Equal(t, models.OrderStatusAccepted, u.Status)
}
