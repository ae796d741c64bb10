package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/repository"
)

// Link is one directed edge of the board's graph.
type Link struct {
	ID         string          `json:"id"`
	FromTaskID int64           `json:"fromTaskId"`
	ToTaskID   int64           `json:"toTaskId"`
	LinkType   models.LinkType `json:"linkType"`
}

// ParseLinkType validates a link type. Empty means sequential.
func ParseLinkType(s string) (models.LinkType, error) {
	switch models.LinkType(s) {
	case "", models.LinkSequential:
		return models.LinkSequential, nil
	case models.LinkParallel, models.LinkConditional:
		return models.LinkType(s), nil
	}
	return "", ErrInvalidLinkType
}

// Link adds the edge from -> to. Linking a task to itself is a no-op.
// Every link type currently propagates the same way.
func (b *Board) Link(fromID, toID int64, linkType models.LinkType) ([]models.Task, error) {
	if _, err := ParseLinkType(string(linkType)); err != nil {
		return nil, err
	}

	now := b.opts.Clock.Now()
	b.mu.Lock()
	from, okFrom := b.find(fromID)
	to, okTo := b.find(toID)
	if !okFrom || !okTo {
		b.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	if fromID == toID {
		b.mu.Unlock()
		return []models.Task{from.Clone()}, nil
	}
	if containsID(from.LinkedTo, toID) && containsID(to.LinkedFrom, fromID) {
		b.mu.Unlock()
		return []models.Task{from.Clone(), to.Clone()}, nil
	}

	nextFrom, _ := b.apply(fromID, func(t models.Task) models.Task {
		t.LinkedTo = addID(t.LinkedTo, toID)
		t.LastUpdated = now
		return t
	})
	nextTo, _ := b.apply(toID, func(t models.Task) models.Task {
		t.LinkedFrom = addID(t.LinkedFrom, fromID)
		t.LastUpdated = now
		return t
	})
	b.commit(putTask(nextFrom), putTask(nextTo))

	return []models.Task{nextFrom, nextTo}, nil
}

// Unlink removes both halves of the edge from -> to.
func (b *Board) Unlink(fromID, toID int64) ([]models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	from, okFrom := b.find(fromID)
	to, okTo := b.find(toID)
	if !okFrom || !okTo {
		b.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	if !containsID(from.LinkedTo, toID) && !containsID(to.LinkedFrom, fromID) {
		b.mu.Unlock()
		return []models.Task{from.Clone(), to.Clone()}, nil
	}

	nextFrom, _ := b.apply(fromID, func(t models.Task) models.Task {
		t.LinkedTo = removeID(t.LinkedTo, toID)
		t.LastUpdated = now
		return t
	})
	nextTo, _ := b.apply(toID, func(t models.Task) models.Task {
		t.LinkedFrom = removeID(t.LinkedFrom, fromID)
		t.LastUpdated = now
		return t
	})
	b.commit(putTask(nextFrom), putTask(nextTo))

	return []models.Task{nextFrom, nextTo}, nil
}

// DeleteTask removes a task, cancels its registrations and strips it from
// every other task's edges.
func (b *Board) DeleteTask(id int64) (models.Task, error) {
	now := b.opts.Clock.Now()
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}

	b.stopCadenceLocked(id)
	b.activations.cancel(id)

	removed := b.tasks[i].Clone()
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)

	writes := []storeWrite{deleteTask(id)}
	for _, t := range b.tasks {
		if !containsID(t.LinkedTo, id) && !containsID(t.LinkedFrom, id) {
			continue
		}
		next, _ := b.apply(t.ID, func(t models.Task) models.Task {
			t.LinkedTo = removeID(t.LinkedTo, id)
			t.LinkedFrom = removeID(t.LinkedFrom, id)
			t.LastUpdated = now
			return t
		})
		writes = append(writes, putTask(next))
	}
	b.commit(writes...)

	return removed, nil
}

// ClearAll cancels every registration and empties the board.
func (b *Board) ClearAll() {
	b.mu.Lock()
	b.cadences.cancelAll()
	b.activations.cancelAll()
	b.alarmTargets = make(map[int64]time.Time)
	b.tasks = nil
	b.commit(func(ctx context.Context, store repository.TaskRepository, sessionID string) error {
		return store.DeleteAll(ctx, sessionID)
	})
}

// ReplaceAll swaps the whole collection, as sync and import do. Records are
// migrated first; running ones resume.
func (b *Board) ReplaceAll(tasks []models.Task) []models.Task {
	now := b.opts.Clock.Now()
	migrated := Normalize(tasks, now)

	b.mu.Lock()
	b.cadences.cancelAll()
	b.activations.cancelAll()
	b.alarmTargets = make(map[int64]time.Time)
	b.installLocked(migrated, now)

	snapshot := make([]models.Task, len(b.tasks))
	for i, t := range b.tasks {
		snapshot[i] = t.Clone()
	}
	b.commit(func(ctx context.Context, store repository.TaskRepository, sessionID string) error {
		return store.ReplaceAll(ctx, sessionID, snapshot)
	})

	return snapshot
}

// Links derives the edge list from every task's linkedTo.
func (b *Board) Links() []Link {
	b.mu.Lock()
	defer b.mu.Unlock()

	links := []Link{}
	for _, t := range b.tasks {
		for _, to := range t.LinkedTo {
			links = append(links, Link{
				ID:         fmt.Sprintf("%d-%d", t.ID, to),
				FromTaskID: t.ID,
				ToTaskID:   to,
				LinkType:   models.LinkSequential,
			})
		}
	}
	return links
}

// Chain materializes the chain reachable from startID.
func (b *Board) Chain(startID int64) ([]models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(startID) < 0 {
		return nil, ErrTaskNotFound
	}
	return b.chainLocked(startID), nil
}

// Chains lists the chain of every task with outgoing links. Two chains
// sharing the same first task are treated as one; this is a display
// heuristic, not a structural identity.
func (b *Board) Chains() [][]models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[int64]bool)
	chains := [][]models.Task{}
	for _, t := range b.tasks {
		if len(t.LinkedTo) == 0 {
			continue
		}
		chain := b.chainLocked(t.ID)
		if len(chain) == 0 || seen[chain[0].ID] {
			continue
		}
		seen[chain[0].ID] = true
		chains = append(chains, chain)
	}
	return chains
}

// chainLocked walks linkedTo depth first, visiting each task once, then
// orders the result by chain position with undecorated tasks first.
func (b *Board) chainLocked(startID int64) []models.Task {
	visited := make(map[int64]bool)
	chain := []models.Task{}

	var walk func(id int64)
	walk = func(id int64) {
		if visited[id] {
			return
		}
		visited[id] = true
		t, ok := b.find(id)
		if !ok {
			return
		}
		chain = append(chain, t.Clone())
		for _, next := range t.LinkedTo {
			walk(next)
		}
	}
	walk(startID)

	sort.SliceStable(chain, func(i, j int) bool {
		return positionOf(chain[i]) < positionOf(chain[j])
	})
	return chain
}

func positionOf(t models.Task) int {
	if t.ChainPosition == nil {
		return 0
	}
	return *t.ChainPosition
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func addID(ids []int64, id int64) []int64 {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
