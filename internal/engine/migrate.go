package engine

import (
	"time"

	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/models"
)

// Normalize migrates stored or imported records into fully-typed tasks. It
// runs once at load time so nothing downstream needs fallbacks:
//   - duplicate ids keep their first record
//   - unknown modes become timer, missing slices become empty
//   - malformed countdowns fall back to the original time, then 05:00
//   - malformed alarm fields are cleared
//   - edges are pruned to known ids and linkedFrom is rebuilt from linkedTo
//   - chain position is dropped outside an active chain
func Normalize(tasks []models.Task, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	known := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if t.ID != 0 && known[t.ID] {
			continue
		}
		known[t.ID] = true
		out = append(out, migrateTask(t.Clone(), now))
	}

	for i := range out {
		self := out[i].ID
		edges := make([]int64, 0, len(out[i].LinkedTo))
		for _, to := range out[i].LinkedTo {
			if to == self || !known[to] || to == 0 || containsID(edges, to) {
				continue
			}
			edges = append(edges, to)
		}
		out[i].LinkedTo = edges
		out[i].LinkedFrom = []int64{}
	}

	index := make(map[int64]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}
	for _, t := range out {
		for _, to := range t.LinkedTo {
			j := index[to]
			out[j].LinkedFrom = addID(out[j].LinkedFrom, t.ID)
		}
	}

	return out
}

func migrateTask(t models.Task, now time.Time) models.Task {
	if t.Mode != models.TaskModeAlarm {
		t.Mode = models.TaskModeTimer
	}
	if t.Title == "" {
		t.Title = constants.DefaultTaskTitle
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.LinkedTo == nil {
		t.LinkedTo = []int64{}
	}

	original, err := NormalizeCountdown(t.OriginalTime)
	if err != nil {
		original = ""
	}
	current, err := NormalizeCountdown(t.Time)
	if err != nil {
		current = original
	}
	if current == "" {
		current = constants.DefaultTaskTime
	}
	if original == "" {
		original = current
	}
	t.Time, t.OriginalTime = current, original

	if t.AlarmTime != "" || t.AlarmDate != "" {
		at, date, err := NormalizeAlarm(t.AlarmTime, t.AlarmDate)
		if err != nil {
			at, date = "", ""
		}
		t.AlarmTime, t.AlarmDate = at, date
	}

	if t.IsRunning && t.IsCompleted {
		t.IsRunning = false
	}
	if t.CompletionCount < 0 {
		t.CompletionCount = 0
	}
	if !t.IsChainActive {
		t.ChainPosition = nil
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastUpdated.IsZero() {
		t.LastUpdated = t.CreatedAt
	}
	return t
}
