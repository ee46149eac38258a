// Package worker ships attendance events to Google Sheets off the
// request path. Page actions stay fast; the sheet catches up.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aforo/internal/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SheetsClient is the slice of the Sheets service the worker needs.
type SheetsClient interface {
	AppendAttendanceRow(ctx context.Context, payload *events.AttendancePayload) error
}

// attendanceTask is the queued unit of work, persisted as JSON in the
// redis list so tasks survive a restart.
type attendanceTask struct {
	ID         string                   `json:"id"`
	EventType  string                   `json:"event_type"`
	Payload    events.AttendancePayload `json:"payload"`
	RetryCount int                      `json:"retry_count"`
	CreatedAt  time.Time                `json:"created_at"`
}

// AttendanceWorker consumes attendance events and appends them to the
// sheet. Tasks queue through redis when it is up, an in-memory channel
// otherwise; exhausted retries land in a dead-letter list.
type AttendanceWorker struct {
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan attendanceTask
	redisQueueKey string
	deadLetterKey string
	logger        zerolog.Logger
}

func NewAttendanceWorker(sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *AttendanceWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "attendance_worker").Logger()
	}

	return &AttendanceWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan attendanceTask, 128),
		redisQueueKey: "attendance:queue",
		deadLetterKey: "attendance:deadletter",
		logger:        base,
	}
}

// SubscribeTo wires the worker to the attendance event types on the
// bus. Publishing never blocks on the sheet.
func (w *AttendanceWorker) SubscribeTo(bus *events.Bus) {
	handler := func(event *events.Event) error {
		var payload events.AttendancePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		return w.Enqueue(context.Background(), event.Type, payload)
	}

	bus.Subscribe(events.EventReservationCreated, handler)
	bus.Subscribe(events.EventCheckinCompleted, handler)
	bus.Subscribe(events.EventCheckinTrouble, handler)
}

// Enqueue schedules one attendance row, via redis when available.
func (w *AttendanceWorker) Enqueue(ctx context.Context, eventType string, payload events.AttendancePayload) error {
	if payload.ReservationID == "" {
		return errors.New("reservation id is required")
	}

	task := attendanceTask{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	w.enqueue(ctx, task)
	return nil
}

func (w *AttendanceWorker) enqueue(ctx context.Context, task attendanceTask) {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.redisQueueKey, task)
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Msg("redis push failed, falling back to memory queue")
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Error().Str("task", task.ID).Msg("memory queue full, task dropped")
	}
}

// Start runs the consume loop until ctx is cancelled.
func (w *AttendanceWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("attendance worker started")
	defer w.logger.Info().Msg("attendance worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if task, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, task)
			continue
		}

		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, task)
		case <-time.After(time.Second):
		}
	}
}

func (w *AttendanceWorker) tryLocalQueue() (attendanceTask, bool) {
	select {
	case task := <-w.queue:
		return task, true
	default:
		return attendanceTask{}, false
	}
}

func (w *AttendanceWorker) tryRedis(ctx context.Context) (attendanceTask, bool) {
	if w.redis == nil {
		return attendanceTask{}, false
	}

	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("redis BRPOP error")
		}
		return attendanceTask{}, false
	}
	if len(res) != 2 {
		return attendanceTask{}, false
	}

	var task attendanceTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode queued task")
		return attendanceTask{}, false
	}
	return task, true
}

func (w *AttendanceWorker) processTask(ctx context.Context, task attendanceTask) {
	if err := w.sheets.AppendAttendanceRow(ctx, &task.Payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Debug().Str("task", task.ID).Str("event", task.EventType).Msg("attendance row appended")
}

func (w *AttendanceWorker) retryOrFail(ctx context.Context, task attendanceTask, cause error) {
	task.RetryCount++
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Str("task", task.ID).Int("retries", task.RetryCount).Msg("task exhausted retries")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(cause).Str("task", task.ID).Dur("retry_in", delay).Msg("task failed, will retry")

	timer := time.AfterFunc(delay, func() {
		w.enqueue(context.Background(), task)
	})
	go func() {
		<-ctx.Done()
		timer.Stop()
	}()
}

func (w *AttendanceWorker) pushRedis(ctx context.Context, key string, task attendanceTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *AttendanceWorker) pushDeadLetter(ctx context.Context, task attendanceTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Str("task", task.ID).Msg("dead letter push failed")
	}
}
