package engine

import (
	"context"
	"log"
	"sync"

	"github.com/yukikurage/chainboard/internal/repository"
)

// writeQueue runs store writes for one board in FIFO order on a single
// goroutine, so a slow store never holds the task table lock.
type writeQueue struct {
	sessionID string
	store     repository.TaskRepository

	mu      sync.Mutex
	cond    *sync.Cond
	pending []storeWrite
	busy    bool
	closed  bool
	done    chan struct{}
}

func newWriteQueue(sessionID string, store repository.TaskRepository) *writeQueue {
	q := &writeQueue{
		sessionID: sessionID,
		store:     store,
		done:      make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// enqueue appends writes behind everything already queued.
func (q *writeQueue) enqueue(writes ...storeWrite) {
	if len(writes) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Printf("session=%s board closed, dropping %d store writes", q.sessionID, len(writes))
		return
	}
	q.pending = append(q.pending, writes...)
	q.cond.Broadcast()
}

// flush blocks until every write queued so far has finished.
func (q *writeQueue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 || q.busy {
		q.cond.Wait()
	}
}

// close stops accepting writes and waits for the queued ones to drain.
func (q *writeQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *writeQueue) run() {
	defer close(q.done)

	q.mu.Lock()
	for {
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.busy = true
		q.mu.Unlock()

		for _, w := range batch {
			q.write(w)
		}

		q.mu.Lock()
		q.busy = false
		q.cond.Broadcast()
	}
}

func (q *writeQueue) write(w storeWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := w(ctx, q.store, q.sessionID); err != nil {
		log.Printf("session=%s store write failed, keeping local state: %v", q.sessionID, err)
	}
}
