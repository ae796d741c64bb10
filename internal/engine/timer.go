package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yukikurage/chainboard/internal/clock"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/notify"
	"github.com/yukikurage/chainboard/internal/repository"
)

// NewTask holds the caller-supplied fields of a task being added. Zero
// values take the board defaults.
type NewTask struct {
	Title           string
	Description     string
	Position        *models.Position
	BackgroundColor string
	Tags            []string
	Mode            models.TaskMode
	Time            string
	AlarmTime       string
	AlarmDate       string
	RemoteNotify    bool
}

// TaskEdit holds user edits. Timing state is changed through the timer
// operations, never here.
type TaskEdit struct {
	Title           *string
	Description     *string
	BackgroundColor *string
	Tags            *[]string
	Position        *models.Position
	RemoteNotify    *bool
}

// AddTask creates an idle task with a fresh id
func (b *Board) AddTask(in NewTask) (models.Task, error) {
	countdown := constants.DefaultTaskTime
	if in.Time != "" {
		normalized, err := NormalizeCountdown(in.Time)
		if err != nil {
			return models.Task{}, err
		}
		countdown = normalized
	}

	var alarmTime, alarmDate string
	if in.AlarmTime != "" {
		var err error
		alarmTime, alarmDate, err = NormalizeAlarm(in.AlarmTime, in.AlarmDate)
		if err != nil {
			return models.Task{}, err
		}
	}

	mode := models.TaskModeTimer
	if in.Mode == models.TaskModeAlarm {
		mode = models.TaskModeAlarm
	}

	task := models.Task{
		Title:           in.Title,
		Description:     in.Description,
		BackgroundColor: in.BackgroundColor,
		Tags:            append([]string{}, in.Tags...),
		Mode:            mode,
		Time:            countdown,
		OriginalTime:    countdown,
		AlarmTime:       alarmTime,
		AlarmDate:       alarmDate,
		RemoteNotify:    in.RemoteNotify,
		LinkedTo:        []int64{},
		LinkedFrom:      []int64{},
	}
	if task.Title == "" {
		task.Title = constants.DefaultTaskTitle
	}
	if task.Description == "" {
		task.Description = constants.DefaultTaskDescription
	}
	if task.BackgroundColor == "" {
		task.BackgroundColor = randomColor()
	}
	if in.Position != nil {
		task.Position = *in.Position
	} else {
		task.Position = models.Position{X: 50 + randomOffset(), Y: 150 + randomOffset()}
	}

	now := b.opts.Clock.Now()
	b.mu.Lock()
	task.ID = b.nextID(now)
	task.CreatedAt = now
	task.LastUpdated = now
	b.tasks = append(b.tasks, task)
	out := task.Clone()
	b.commit(putTask(task))

	log.Printf("session=%s task=%d added", b.sessionID, out.ID)
	return out, nil
}

// UpdateTask applies user edits to a task
func (b *Board) UpdateTask(id int64, edit TaskEdit) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	next, ok := b.apply(id, func(t models.Task) models.Task {
		if edit.Title != nil {
			t.Title = *edit.Title
		}
		if edit.Description != nil {
			t.Description = *edit.Description
		}
		if edit.BackgroundColor != nil {
			t.BackgroundColor = *edit.BackgroundColor
		}
		if edit.Tags != nil {
			t.Tags = append([]string{}, (*edit.Tags)...)
		}
		if edit.Position != nil {
			t.Position = *edit.Position
		}
		if edit.RemoteNotify != nil {
			t.RemoteNotify = *edit.RemoteNotify
		}
		t.LastUpdated = now
		return t
	})
	if !ok {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	b.commit(putTask(next))
	return next, nil
}

// ToggleTimer starts or pauses a task. A completed task stays completed
// until it is reset.
func (b *Board) ToggleTimer(id int64) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	current, ok := b.find(id)
	if !ok {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	if current.IsCompleted {
		b.mu.Unlock()
		return current.Clone(), nil
	}

	next, _ := b.apply(id, func(t models.Task) models.Task {
		t.IsRunning = !t.IsRunning
		t.LastUpdated = now
		return t
	})

	var effects []func()
	if next.IsRunning {
		b.startCadenceLocked(next, now)
		if b.shouldNotify(next, b.settings.NotifyOnStart) {
			effects = append(effects, b.dispatchEffect(next.ID, startMessage(next)))
		}
	} else {
		b.stopCadenceLocked(id)
	}
	b.commit(putTask(next))
	runEffects(effects)

	return next, nil
}

// ResetTimer restores the configured duration and clears run, completion
// and chain state.
func (b *Board) ResetTimer(id int64) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	b.stopCadenceLocked(id)
	b.activations.cancel(id)
	next, ok := b.apply(id, func(t models.Task) models.Task {
		t.Time = t.OriginalTime
		t.IsRunning = false
		t.IsCompleted = false
		t.IsChainActive = false
		t.ChainPosition = nil
		t.LastUpdated = now
		return t
	})
	if !ok {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	b.commit(putTask(next))
	return next, nil
}

// SetCustomTime replaces the countdown duration. The task is stopped and
// un-completed.
func (b *Board) SetCustomTime(id int64, value string) (models.Task, error) {
	countdown, err := NormalizeCountdown(value)
	if err != nil {
		return models.Task{}, err
	}
	return b.stopWith(id, func(t models.Task) models.Task {
		t.Time = countdown
		t.OriginalTime = countdown
		return t
	})
}

// SetAlarmTime replaces the alarm target. An empty date means today, or the
// next occurrence once the time has passed.
func (b *Board) SetAlarmTime(id int64, at, date string) (models.Task, error) {
	alarmTime, alarmDate, err := NormalizeAlarm(at, date)
	if err != nil {
		return models.Task{}, err
	}
	return b.stopWith(id, func(t models.Task) models.Task {
		t.AlarmTime = alarmTime
		t.AlarmDate = alarmDate
		return t
	})
}

// ToggleMode switches between timer and alarm. A running task is stopped.
func (b *Board) ToggleMode(id int64) (models.Task, error) {
	return b.stopWith(id, func(t models.Task) models.Task {
		if t.Mode == models.TaskModeAlarm {
			t.Mode = models.TaskModeTimer
		} else {
			t.Mode = models.TaskModeAlarm
		}
		return t
	})
}

// CompleteTask marks a task completed and runs the completion side effects.
// Completing an already completed task is a no-op.
func (b *Board) CompleteTask(id int64) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	current, ok := b.find(id)
	if !ok {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	if current.IsCompleted {
		b.mu.Unlock()
		return current.Clone(), nil
	}
	done, writes, effects := b.completeLocked(id, now)
	b.commit(writes...)
	runEffects(effects)
	return done, nil
}

// stopWith applies fn to a task and forces it idle and not completed.
func (b *Board) stopWith(id int64, fn func(models.Task) models.Task) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	b.stopCadenceLocked(id)
	next, ok := b.apply(id, func(t models.Task) models.Task {
		t = fn(t)
		t.IsRunning = false
		t.IsCompleted = false
		t.LastUpdated = now
		return t
	})
	if !ok {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	b.commit(putTask(next))
	return next, nil
}

// startCadenceLocked registers the repeating tick or alarm check for a
// running task. Caller holds b.mu.
func (b *Board) startCadenceLocked(t models.Task, now time.Time) {
	if t.Mode == models.TaskModeAlarm && b.opts.AlarmPolicy == AlarmCatchUp {
		if target, ok := nextOccurrence(t, now.In(b.opts.Location)); ok {
			b.alarmTargets[t.ID] = target
		}
	}
	b.armLocked(t.ID)
}

func (b *Board) armLocked(id int64) {
	b.cadences.register(id, func(token uint64) clock.Timer {
		return b.opts.Clock.AfterFunc(b.opts.TickInterval, func() {
			b.onCadence(id, token)
		})
	})
}

// stopCadenceLocked is the single deregistration path for a task's cadence.
func (b *Board) stopCadenceLocked(id int64) {
	b.cadences.cancel(id)
	delete(b.alarmTargets, id)
}

// onCadence evaluates one task for one tick.
func (b *Board) onCadence(id int64, token uint64) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	if !b.cadences.current(id, token) {
		b.mu.Unlock()
		return
	}

	t, ok := b.find(id)
	if !ok || !t.IsRunning || t.IsCompleted {
		b.stopCadenceLocked(id)
		b.mu.Unlock()
		return
	}

	switch t.Mode {
	case models.TaskModeAlarm:
		if b.alarmDue(t, now) {
			_, writes, effects := b.completeLocked(id, now)
			b.commit(writes...)
			runEffects(effects)
			return
		}
		b.armLocked(id)
		b.mu.Unlock()

	default:
		remaining, err := ParseCountdown(t.Time)
		if err != nil {
			log.Printf("session=%s task=%d malformed countdown %q, stopping: %v", b.sessionID, id, t.Time, err)
			b.stopCadenceLocked(id)
			next, _ := b.apply(id, func(t models.Task) models.Task {
				t.IsRunning = false
				t.LastUpdated = now
				return t
			})
			b.commit(putTask(next))
			return
		}
		if remaining == 0 {
			_, writes, effects := b.completeLocked(id, now)
			b.commit(writes...)
			runEffects(effects)
			return
		}
		b.apply(id, func(t models.Task) models.Task {
			t.Time = FormatCountdown(remaining - 1)
			t.LastUpdated = now
			return t
		})
		b.armLocked(id)
		b.mu.Unlock()
	}
}

// alarmDue reports whether an alarm task matches now.
func (b *Board) alarmDue(t models.Task, now time.Time) bool {
	if t.AlarmTime == "" {
		return false
	}
	local := now.In(b.opts.Location)

	if b.opts.AlarmPolicy == AlarmCatchUp {
		target, ok := b.alarmTargets[t.ID]
		return ok && !local.Before(target)
	}

	today := local.Format(dateLayout)
	if t.AlarmDate != "" && t.AlarmDate != today {
		return false
	}
	return local.Format(clockLayout) == t.AlarmTime
}

// nextOccurrence returns the first instant at or after now's minute that
// matches the alarm. With a date set the target is fixed, even if past.
func nextOccurrence(t models.Task, now time.Time) (time.Time, bool) {
	at, err := time.ParseInLocation(clockLayout, t.AlarmTime, now.Location())
	if err != nil {
		return time.Time{}, false
	}

	if t.AlarmDate != "" {
		day, err := time.ParseInLocation(dateLayout, t.AlarmDate, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, now.Location()), true
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !target.Add(time.Minute).After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, true
}

// completeLocked transitions a task into completed and schedules its
// downstream activations. It returns the store writes and side effects to
// run once b.mu is released. Caller holds b.mu and has checked the task
// exists and is not completed.
func (b *Board) completeLocked(id int64, now time.Time) (models.Task, []storeWrite, []func()) {
	b.stopCadenceLocked(id)

	done, _ := b.apply(id, func(t models.Task) models.Task {
		t.IsRunning = false
		t.IsCompleted = true
		t.CompletionCount++
		t.LastUpdated = now
		return t
	})
	log.Printf("session=%s task=%d completed (%s)", b.sessionID, id, done.Mode)

	var effects []func()
	if done.Mode == models.TaskModeAlarm {
		alerter, sessionID, snapshot := b.opts.Alerter, b.sessionID, done.Clone()
		effects = append(effects, func() { alerter.Alert(sessionID, snapshot) })
	}
	if b.shouldNotify(done, b.settings.NotifyOnComplete) {
		effects = append(effects, b.dispatchEffect(id, notify.FormatMessage(b.settings.CustomMessage, done.Title)))
	}

	b.propagateLocked(done)

	return done, []storeWrite{patchCompleted(done)}, effects
}

// patchCompleted writes the completion fields onto the stored record, or the
// whole task when the store has never seen it.
func patchCompleted(done models.Task) storeWrite {
	return func(ctx context.Context, store repository.TaskRepository, sessionID string) error {
		_, err := store.Patch(ctx, sessionID, done.ID, func(t *models.Task) {
			t.IsRunning = false
			t.IsCompleted = true
			t.CompletionCount = done.CompletionCount
			t.Time = done.Time
			t.LastUpdated = done.LastUpdated
		})
		if errors.Is(err, repository.ErrNotFound) {
			_, err = store.Put(ctx, sessionID, done)
		}
		return err
	}
}

func (b *Board) shouldNotify(t models.Task, event bool) bool {
	s := b.settings
	return t.RemoteNotify && s.Enabled && s.Configured() && event
}

// dispatchEffect captures the current settings and returns a send that logs
// instead of failing. Caller holds b.mu.
func (b *Board) dispatchEffect(taskID int64, message string) func() {
	settings, dispatcher, timeout, sessionID := b.settings, b.opts.Dispatcher, b.opts.NotifyTimeout, b.sessionID
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := dispatcher.Dispatch(ctx, settings, message); err != nil {
			log.Printf("session=%s task=%d notification failed: %v", sessionID, taskID, err)
		}
	}
}

func startMessage(t models.Task) string {
	if t.Mode == models.TaskModeAlarm {
		return "Alarm started for: " + t.Title
	}
	return "Timer started for: " + t.Title
}
