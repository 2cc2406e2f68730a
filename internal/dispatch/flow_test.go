package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskboard-app/taskboard/internal/channels"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/scheduler"
)

// memStore is an in-memory notification store with the same scheduling
// semantics as the SQL repository: due/lease filtering on claim, backoff
// rescheduling on retryable failures, terminal failure on exhaustion.
type memStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*models.Notification
	retry models.RetryPolicy
	lease time.Duration
	now   func() time.Time
}

func newMemStore(retry models.RetryPolicy, now func() time.Time) *memStore {
	return &memStore{
		rows:  make(map[uuid.UUID]*models.Notification),
		retry: retry,
		lease: 2 * time.Minute,
		now:   now,
	}
}

func (s *memStore) Create(ctx context.Context, n *models.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Status == models.NotificationStatusPending &&
			existing.TaskID != nil && n.TaskID != nil &&
			*existing.TaskID == *n.TaskID &&
			existing.Type == n.Type && existing.Channel == n.Channel {
			return false, nil
		}
	}
	cp := *n
	cp.Status = models.NotificationStatusPending
	s.rows[n.ID] = &cp
	return true, nil
}

func (s *memStore) ClaimDue(ctx context.Context, channel models.Channel, now time.Time, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.Notification
	for _, n := range s.rows {
		if n.Status != models.NotificationStatusPending || n.Channel != channel {
			continue
		}
		if n.ScheduledAt.After(now) {
			continue
		}
		if n.ClaimedUntil != nil && n.ClaimedUntil.After(now) {
			continue
		}
		due = append(due, n)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.Notification, 0, len(due))
	until := now.Add(s.lease)
	for _, n := range due {
		n.ClaimedUntil = &until
		cp := *n
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *memStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.Status != models.NotificationStatusPending {
		return nil
	}
	now := s.now()
	n.Status = models.NotificationStatusSent
	n.SentAt = &now
	n.ClaimedUntil = nil
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id uuid.UUID, retryable bool, deliveryErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.Status != models.NotificationStatusPending {
		return nil
	}
	if retryable && !s.retry.Exhausted(n.RetryCount+1) {
		n.ScheduledAt = s.now().Add(s.retry.Delay(n.RetryCount))
		n.RetryCount++
	} else {
		n.Status = models.NotificationStatusFailed
		n.RetryCount++
	}
	n.ClaimedUntil = nil
	n.LastError = deliveryErr
	return nil
}

func (s *memStore) Cancel(ctx context.Context, taskID uuid.UUID, types ...models.NotificationType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cancelled int64
	for id, n := range s.rows {
		if n.Status != models.NotificationStatusPending || n.TaskID == nil || *n.TaskID != taskID {
			continue
		}
		if len(types) > 0 {
			match := false
			for _, typ := range types {
				if n.Type == typ {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		delete(s.rows, id)
		cancelled++
	}
	return cancelled, nil
}

func (s *memStore) ListFailed(ctx context.Context, limit int) ([]*models.Notification, error) {
	return nil, nil
}

func (s *memStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.rows {
		if n.TaskID != nil && *n.TaskID == taskID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// scriptAdapter plays back a fixed sequence of outcomes
type scriptAdapter struct {
	mu       sync.Mutex
	outcomes []channels.Outcome
	attempts int
}

func (a *scriptAdapter) Channel() models.Channel { return models.ChannelInApp }

func (a *scriptAdapter) Deliver(ctx context.Context, n *models.Notification, address string) channels.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.attempts
	a.attempts++
	if idx < len(a.outcomes) {
		return a.outcomes[idx]
	}
	return channels.Success()
}

func (a *scriptAdapter) attemptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

// TestReminderFlow walks a reminder through its whole life: materialized an
// hour ahead of the due date, not claimable before its scheduled time,
// delivered with one transient failure and one backoff retry, ending sent.
func TestReminderFlow(t *testing.T) {
	t.Parallel()

	base := time.Now()
	clock := base
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}
	advanceTo := func(at time.Time) {
		clockMu.Lock()
		clock = at
		clockMu.Unlock()
	}

	retry := models.DefaultRetryPolicy
	store := newMemStore(retry, now)
	tasks := newFakeTaskRepo()
	prefs := &fakePrefsRepo{}

	due := base.Add(2 * time.Hour)
	task := &models.Task{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "submit expense report",
		Status: models.TaskStatusTodo,
		DueAt:  &due,
	}
	if err := tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("Failed to seed task: %v", err)
	}

	sched := scheduler.New(tasks, store, prefs, nil, scheduler.DefaultConfig, zap.NewNop())
	if err := sched.MaterializeTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to materialize task: %v", err)
	}

	rows, err := store.ListByTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Failed to list rows: %v", err)
	}
	var dueSoon *models.Notification
	for _, n := range rows {
		if n.Type == models.NotificationDueSoon {
			dueSoon = n
		}
	}
	if dueSoon == nil {
		t.Fatal("Expected a due_soon row")
	}
	wantAt := due.Add(-scheduler.DefaultConfig.LeadTime)
	if !dueSoon.ScheduledAt.Equal(wantAt) {
		t.Fatalf("Expected due_soon at %v, got %v", wantAt, dueSoon.ScheduledAt)
	}

	adapter := &scriptAdapter{outcomes: []channels.Outcome{
		channels.Retryable(errors.New("transient outage")),
	}}
	d := New(store, tasks, prefs, []channels.Adapter{adapter}, DefaultConfig, zap.NewNop())
	d.now = now

	// Nothing is due yet
	processed, err := d.RunBatch(context.Background(), models.ChannelInApp, adapter)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if processed != 0 {
		t.Fatalf("Expected no claims before the scheduled time, got %d", processed)
	}

	// An hour before due the reminder comes up; the first attempt fails
	// transiently
	advanceTo(wantAt.Add(time.Second))
	if _, err := d.RunBatch(context.Background(), models.ChannelInApp, adapter); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if adapter.attemptCount() != 1 {
		t.Fatalf("Expected one delivery attempt, got %d", adapter.attemptCount())
	}

	// The row is backed off, not claimable until the retry delay passes
	if _, err := d.RunBatch(context.Background(), models.ChannelInApp, adapter); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if adapter.attemptCount() != 1 {
		t.Fatal("Expected the backed-off row to stay unclaimed")
	}

	// After the base backoff the retry succeeds
	advanceTo(wantAt.Add(retry.Base + 2*time.Second))
	if _, err := d.RunBatch(context.Background(), models.ChannelInApp, adapter); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if adapter.attemptCount() != 2 {
		t.Fatalf("Expected a second delivery attempt, got %d", adapter.attemptCount())
	}

	rows, err = store.ListByTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Failed to list rows: %v", err)
	}
	for _, n := range rows {
		if n.Type != models.NotificationDueSoon {
			continue
		}
		if n.Status != models.NotificationStatusSent {
			t.Errorf("Expected sent, got %s", n.Status)
		}
		if n.RetryCount != 1 {
			t.Errorf("Expected one recorded retry, got %d", n.RetryCount)
		}
		if n.SentAt == nil {
			t.Error("Expected sent_at stamped")
		}
	}
}

// TestReminderFlow_WindowClearedBeforeDue checks that clearing the due window
// cancels the pending reminder before it is ever claimed.
func TestReminderFlow_WindowClearedBeforeDue(t *testing.T) {
	t.Parallel()

	base := time.Now()
	store := newMemStore(models.DefaultRetryPolicy, time.Now)
	tasks := newFakeTaskRepo()
	prefs := &fakePrefsRepo{}

	due := base.Add(2 * time.Hour)
	task := &models.Task{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "book flights",
		Status: models.TaskStatusTodo,
		DueAt:  &due,
	}
	if err := tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("Failed to seed task: %v", err)
	}

	sched := scheduler.New(tasks, store, prefs, nil, scheduler.DefaultConfig, zap.NewNop())
	if err := sched.MaterializeTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to materialize task: %v", err)
	}

	task.DueAt = nil
	ev := events.NewEvent(events.EventDueChanged, task.UserID, &task.ID)
	ev.OldDueAt = &due
	if err := sched.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("Failed to handle due_changed: %v", err)
	}

	adapter := &scriptAdapter{}
	d := New(store, tasks, prefs, []channels.Adapter{adapter}, DefaultConfig, zap.NewNop())
	d.now = func() time.Time { return due.Add(time.Hour) }

	processed, err := d.RunBatch(context.Background(), models.ChannelInApp, adapter)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if processed != 0 || adapter.attemptCount() != 0 {
		t.Error("Cancelled reminder must never be claimed or delivered")
	}
}
