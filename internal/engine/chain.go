package engine

import (
	"log"
	"math"
	"time"

	"github.com/yukikurage/chainboard/internal/clock"
	"github.com/yukikurage/chainboard/internal/models"
)

// propagateLocked schedules the activation of each downstream task of a
// completed one. The n-th existing target (1-based) activates after n
// stagger delays. A target that already has a pending activation keeps it.
// Caller holds b.mu.
func (b *Board) propagateLocked(done models.Task) {
	position := 0
	for _, id := range done.LinkedTo {
		if b.indexOf(id) < 0 {
			continue
		}
		position++
		if b.activations.has(id) {
			continue
		}

		targetID, pos := id, position
		delay := time.Duration(pos) * b.opts.StaggerDelay
		b.activations.register(targetID, func(token uint64) clock.Timer {
			return b.opts.Clock.AfterFunc(delay, func() {
				b.onActivation(targetID, token, pos)
			})
		})
	}
	if position > 0 {
		log.Printf("session=%s task=%d chain reaction: %d connected task(s) will start in sequence", b.sessionID, done.ID, position)
	}
}

// onActivation starts a downstream task unless it is already running or
// completed.
func (b *Board) onActivation(id int64, token uint64, position int) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	if !b.activations.take(id, token) {
		b.mu.Unlock()
		return
	}

	t, ok := b.find(id)
	if !ok || t.IsRunning || t.IsCompleted {
		b.mu.Unlock()
		return
	}

	next, _ := b.apply(id, func(t models.Task) models.Task {
		p := position
		t.IsRunning = true
		t.IsChainActive = true
		t.ChainPosition = &p
		t.LastUpdated = now
		return t
	})
	b.startCadenceLocked(next, now)
	log.Printf("session=%s task=%d chain activated at position %d", b.sessionID, id, position)
	b.commit(putTask(next))
}

// StartChain arms every member of the chain reachable from startID, then
// starts startID after the chain start delay.
func (b *Board) StartChain(startID int64) ([]models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	if b.indexOf(startID) < 0 {
		b.mu.Unlock()
		return nil, ErrTaskNotFound
	}

	chain := b.chainLocked(startID)
	armed := make([]models.Task, 0, len(chain))
	for i, member := range chain {
		b.stopCadenceLocked(member.ID)
		b.activations.cancel(member.ID)
		position := i + 1
		next, _ := b.apply(member.ID, func(t models.Task) models.Task {
			t.IsRunning = false
			t.IsCompleted = false
			t.Time = t.OriginalTime
			t.IsChainActive = true
			t.ChainPosition = &position
			t.LastUpdated = now
			return t
		})
		armed = append(armed, next)
	}

	b.activations.register(startID, func(token uint64) clock.Timer {
		return b.opts.Clock.AfterFunc(b.opts.ChainStartDelay, func() {
			b.onChainStart(startID, token)
		})
	})
	log.Printf("session=%s task=%d chain started with %d task(s)", b.sessionID, startID, len(armed))
	b.commit(putAll(armed)...)

	return armed, nil
}

func (b *Board) onChainStart(id int64, token uint64) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	if !b.activations.take(id, token) {
		b.mu.Unlock()
		return
	}

	t, ok := b.find(id)
	if !ok || t.IsRunning || t.IsCompleted {
		b.mu.Unlock()
		return
	}

	next, _ := b.apply(id, func(t models.Task) models.Task {
		t.IsRunning = true
		t.LastUpdated = now
		return t
	})
	b.startCadenceLocked(next, now)
	b.commit(putTask(next))
}

// ResetChain cancels pending activations for the given tasks and returns
// them to idle outside any chain. Unknown ids are skipped.
func (b *Board) ResetChain(ids []int64) []models.Task {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	for _, id := range ids {
		b.activations.cancel(id)
	}

	reset := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		b.stopCadenceLocked(id)
		next, ok := b.apply(id, func(t models.Task) models.Task {
			t.IsRunning = false
			t.IsCompleted = false
			t.Time = t.OriginalTime
			t.IsChainActive = false
			t.ChainPosition = nil
			t.LastUpdated = now
			return t
		})
		if ok {
			reset = append(reset, next)
		}
	}
	b.commit(putAll(reset)...)

	return reset
}

// ChainProgress returns the share of completed tasks as a rounded
// percentage, 0 for an empty chain.
func ChainProgress(chain []models.Task) int {
	if len(chain) == 0 {
		return 0
	}
	completed := 0
	for _, t := range chain {
		if t.IsCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(chain)) * 100))
}
