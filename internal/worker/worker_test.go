package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aforo/internal/events"
)

type fakeSheets struct {
	mu    sync.Mutex
	err   error
	calls int
	last  *events.AttendancePayload
}

func (f *fakeSheets) AppendAttendanceRow(ctx context.Context, payload *events.AttendancePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = payload
	return f.err
}

func (f *fakeSheets) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func attendancePayload(id string) events.AttendancePayload {
	return events.AttendancePayload{
		ReservationID: id,
		EventID:       "ev-1",
		UserID:        "user-1",
		Status:        "completed",
		OccurredAt:    time.Now(),
	}
}

func TestEnqueueWithoutRedisUsesLocalQueue(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewAttendanceWorker(sheets, nil, RetryPolicy{}, nil)

	require.NoError(t, w.Enqueue(context.Background(), events.EventCheckinCompleted, attendancePayload("res-1")))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, "res-1", task.Payload.ReservationID)

	w.processTask(context.Background(), task)
	assert.Equal(t, 1, sheets.callCount())
}

func TestEnqueueRequiresReservationID(t *testing.T) {
	w := NewAttendanceWorker(&fakeSheets{}, nil, RetryPolicy{}, nil)

	err := w.Enqueue(context.Background(), events.EventCheckinCompleted, events.AttendancePayload{})
	assert.Error(t, err)
}

func TestEnqueuePrefersRedis(t *testing.T) {
	mr, client := newMiniredisClient(t)
	w := NewAttendanceWorker(&fakeSheets{}, client, RetryPolicy{}, nil)

	require.NoError(t, w.Enqueue(context.Background(), events.EventReservationCreated, attendancePayload("res-2")))

	_, ok := w.tryLocalQueue()
	assert.False(t, ok)
	assert.Equal(t, 1, len(mr.Keys()))

	task, ok := w.tryRedis(context.Background())
	require.True(t, ok)
	assert.Equal(t, "res-2", task.Payload.ReservationID)
	assert.Equal(t, events.EventReservationCreated, task.EventType)
}

func TestEnqueueFallsBackWhenRedisDown(t *testing.T) {
	mr, client := newMiniredisClient(t)
	w := NewAttendanceWorker(&fakeSheets{}, client, RetryPolicy{}, nil)
	mr.Close()

	require.NoError(t, w.Enqueue(context.Background(), events.EventCheckinTrouble, attendancePayload("res-3")))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, "res-3", task.Payload.ReservationID)
}

func TestProcessTaskRetriesThenSucceeds(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	w := NewAttendanceWorker(sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := attendanceTask{ID: "t-1", EventType: events.EventCheckinCompleted, Payload: attendancePayload("res-4")}
	w.processTask(ctx, task)
	require.Equal(t, 1, sheets.callCount())

	// The retry lands back on the local queue after the backoff delay.
	sheets.mu.Lock()
	sheets.err = nil
	sheets.mu.Unlock()

	require.Eventually(t, func() bool {
		retried, ok := w.tryLocalQueue()
		if !ok {
			return false
		}
		w.processTask(ctx, retried)
		return true
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, sheets.callCount())
}

func TestExhaustedRetriesGoToDeadLetter(t *testing.T) {
	mr, client := newMiniredisClient(t)
	sheets := &fakeSheets{err: errors.New("permission denied")}
	w := NewAttendanceWorker(sheets, client, RetryPolicy{MaxRetries: 1}, nil)

	task := attendanceTask{ID: "t-2", EventType: events.EventCheckinCompleted, Payload: attendancePayload("res-5")}
	w.processTask(context.Background(), task)

	dead, err := mr.List(w.deadLetterKey)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0], "res-5")

	queued, err := client.LLen(context.Background(), w.redisQueueKey).Result()
	require.NoError(t, err)
	assert.Zero(t, queued)
}

func TestSubscribeToEnqueuesBusEvents(t *testing.T) {
	w := NewAttendanceWorker(&fakeSheets{}, nil, RetryPolicy{}, nil)
	bus := events.NewBus()
	w.SubscribeTo(bus)

	require.NoError(t, bus.PublishJSON(events.EventCheckinCompleted, attendancePayload("res-6")))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, "res-6", task.Payload.ReservationID)
	assert.Equal(t, events.EventCheckinCompleted, task.EventType)
}

func TestStartDrainsQueueUntilCancelled(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewAttendanceWorker(sheets, nil, RetryPolicy{}, nil)

	require.NoError(t, w.Enqueue(context.Background(), events.EventCheckinCompleted, attendancePayload("res-7")))
	require.NoError(t, w.Enqueue(context.Background(), events.EventCheckinCompleted, attendancePayload("res-8")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	require.Eventually(t, func() bool { return sheets.callCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
