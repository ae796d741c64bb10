// Package engine runs the timer, alarm and chain logic of a task board.
// Each session owns one Board; a Manager keeps them per session id.
package engine

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/yukikurage/chainboard/internal/clock"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/notify"
	"github.com/yukikurage/chainboard/internal/repository"
)

// AlarmPolicy selects how alarm tasks match the clock.
type AlarmPolicy string

const (
	// AlarmExact fires only while the clock shows the alarm minute.
	AlarmExact AlarmPolicy = "exact"
	// AlarmCatchUp fires at or after the next occurrence computed on start.
	AlarmCatchUp AlarmPolicy = "catch-up"
)

const storeTimeout = 5 * time.Second

var palette = []string{"amber", "blue", "green", "purple", "pink", "indigo"}

// Options configures a Board.
type Options struct {
	Clock      clock.Clock
	Store      repository.TaskRepository
	Dispatcher notify.Dispatcher
	Alerter    notify.Alerter

	TickInterval    time.Duration
	StaggerDelay    time.Duration
	ChainStartDelay time.Duration
	NotifyTimeout   time.Duration
	AlarmPolicy     AlarmPolicy
	Location        *time.Location
	WelcomeTask     bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Store == nil {
		o.Store = repository.NewMemoryTaskRepository()
	}
	if o.Dispatcher == nil {
		o.Dispatcher = notify.NopDispatcher{}
	}
	if o.Alerter == nil {
		o.Alerter = notify.LogAlerter{}
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.StaggerDelay <= 0 {
		o.StaggerDelay = time.Second
	}
	if o.ChainStartDelay <= 0 {
		o.ChainStartDelay = 500 * time.Millisecond
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 10 * time.Second
	}
	if o.AlarmPolicy == "" {
		o.AlarmPolicy = AlarmExact
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// storeWrite is one persistence call, run after the task table is unlocked.
type storeWrite func(ctx context.Context, store repository.TaskRepository, sessionID string) error

// Board is the task table of one session together with its running
// cadences and pending chain activations.
type Board struct {
	sessionID string
	opts      Options

	mu           sync.Mutex
	tasks        []models.Task
	settings     models.NotificationSettings
	cadences     *registry
	activations  *registry
	alarmTargets map[int64]time.Time
	lastID       int64

	// writes is filled while mu is held so store writes keep mutation order.
	writes    *writeQueue
	closeOnce sync.Once
}

// NewBoard loads the session's tasks from the store, migrates them and
// resumes every running task. An empty session is seeded with the welcome
// task when enabled.
func NewBoard(ctx context.Context, sessionID string, opts Options) (*Board, error) {
	opts = opts.withDefaults()
	stored, err := opts.Store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	b := &Board{
		sessionID:    sessionID,
		opts:         opts,
		settings:     models.DefaultNotificationSettings(sessionID),
		cadences:     newRegistry(),
		activations:  newRegistry(),
		alarmTargets: make(map[int64]time.Time),
		writes:       newWriteQueue(sessionID, opts.Store),
	}

	now := opts.Clock.Now()
	b.mu.Lock()
	b.installLocked(Normalize(stored, now), now)

	var writes []storeWrite
	if len(b.tasks) == 0 && opts.WelcomeTask {
		welcome := b.welcomeTask(now)
		b.tasks = append(b.tasks, welcome)
		writes = append(writes, putTask(welcome))
		log.Printf("session=%s task=%d created welcome task", sessionID, welcome.ID)
	}
	b.commit(writes...)

	return b, nil
}

// SessionID returns the session scope of the board
func (b *Board) SessionID() string {
	return b.sessionID
}

// Tasks returns a copy of every task in board order
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Task, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Task returns a copy of one task
func (b *Board) Task(id int64) (models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.find(id)
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	return t.Clone(), nil
}

// Settings returns the notification settings in effect
func (b *Board) Settings() models.NotificationSettings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// ApplySettings replaces the notification settings used for new events
func (b *Board) ApplySettings(s models.NotificationSettings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.SessionID = b.sessionID
	b.settings = s
}

// Close cancels every cadence and pending activation, then waits for the
// queued store writes to finish.
func (b *Board) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.cadences.cancelAll()
		b.activations.cancelAll()
		b.alarmTargets = make(map[int64]time.Time)
		b.mu.Unlock()

		b.writes.close()
	})
}

// Flush waits until every store write queued so far has been attempted.
func (b *Board) Flush() {
	b.writes.flush()
}

// Pending reports the number of live cadences and pending activations.
func (b *Board) Pending() (cadences, activations int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cadences.size(), b.activations.size()
}

// installLocked swaps the task table, assigning ids where missing and
// re-arming running tasks. Caller holds b.mu.
func (b *Board) installLocked(tasks []models.Task, now time.Time) {
	b.tasks = tasks
	for _, t := range b.tasks {
		if t.ID > b.lastID {
			b.lastID = t.ID
		}
	}
	for i := range b.tasks {
		if b.tasks[i].ID <= 0 {
			b.tasks[i].ID = b.nextID(now)
		}
	}
	for _, t := range b.tasks {
		if t.IsRunning && !t.IsCompleted {
			b.startCadenceLocked(t, now)
		}
	}
}

// nextID derives an id from the creation time, bumped past the last one
// issued so two tasks created in the same millisecond never collide.
func (b *Board) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= b.lastID {
		id = b.lastID + 1
	}
	b.lastID = id
	return id
}

func (b *Board) indexOf(id int64) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) find(id int64) (models.Task, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	return b.tasks[i], true
}

// apply replaces the task matching id with fn applied to a copy of its
// previous value. Caller holds b.mu.
func (b *Board) apply(id int64, fn func(models.Task) models.Task) (models.Task, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	next := fn(b.tasks[i].Clone())
	next.ID = id
	b.tasks[i] = next
	return next.Clone(), true
}

// commit queues writes and releases b.mu. Failures are logged by the
// writer; the in-memory state stays authoritative.
func (b *Board) commit(writes ...storeWrite) {
	b.writes.enqueue(writes...)
	b.mu.Unlock()
}

func putTask(t models.Task) storeWrite {
	return func(ctx context.Context, store repository.TaskRepository, sessionID string) error {
		_, err := store.Put(ctx, sessionID, t)
		return err
	}
}

func deleteTask(id int64) storeWrite {
	return func(ctx context.Context, store repository.TaskRepository, sessionID string) error {
		_, err := store.Delete(ctx, sessionID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
}

func putAll(tasks []models.Task) []storeWrite {
	writes := make([]storeWrite, 0, len(tasks))
	for _, t := range tasks {
		writes = append(writes, putTask(t))
	}
	return writes
}

func runEffects(effects []func()) {
	for _, f := range effects {
		f()
	}
}

func (b *Board) welcomeTask(now time.Time) models.Task {
	return models.Task{
		ID:              b.nextID(now),
		Title:           constants.WelcomeTaskTitle,
		Description:     constants.WelcomeTaskDescription,
		Position:        models.Position{X: 150, Y: 150},
		BackgroundColor: "amber",
		Tags:            []string{"welcome", "private"},
		Mode:            models.TaskModeTimer,
		Time:            constants.DefaultTaskTime,
		OriginalTime:    constants.DefaultTaskTime,
		LinkedTo:        []int64{},
		LinkedFrom:      []int64{},
		CreatedAt:       now,
		LastUpdated:     now,
	}
}

func randomColor() string {
	return palette[rand.Intn(len(palette))]
}

func randomOffset() float64 {
	return float64(rand.Intn(400))
}
