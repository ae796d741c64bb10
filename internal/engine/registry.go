package engine

import "github.com/yukikurage/chainboard/internal/clock"

type registration struct {
	token uint64
	timer clock.Timer
}

// registry holds at most one scheduled callback per task id. Every
// registration carries a token; a callback that fires after its entry was
// cancelled or replaced finds a different token and does nothing. The owning
// board's mutex guards it.
type registry struct {
	seq     uint64
	entries map[int64]registration
}

func newRegistry() *registry {
	return &registry{entries: make(map[int64]registration)}
}

// register replaces any entry for id with the timer returned by schedule.
func (r *registry) register(id int64, schedule func(token uint64) clock.Timer) {
	r.cancel(id)
	r.seq++
	token := r.seq
	r.entries[id] = registration{token: token, timer: schedule(token)}
}

// cancel stops and forgets the entry for id. Unknown ids are a no-op.
func (r *registry) cancel(id int64) {
	entry, ok := r.entries[id]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(r.entries, id)
}

func (r *registry) current(id int64, token uint64) bool {
	entry, ok := r.entries[id]
	return ok && entry.token == token
}

// take removes the entry for id if token is still current.
func (r *registry) take(id int64, token uint64) bool {
	if !r.current(id, token) {
		return false
	}
	delete(r.entries, id)
	return true
}

func (r *registry) has(id int64) bool {
	_, ok := r.entries[id]
	return ok
}

func (r *registry) cancelAll() {
	for id := range r.entries {
		r.cancel(id)
	}
}

func (r *registry) size() int {
	return len(r.entries)
}
