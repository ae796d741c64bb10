// Package export writes and reads JSON backups of a session's tasks.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yukikurage/chainboard/internal/models"
)

// ErrInvalidBackup is returned when input is neither a backup envelope nor a
// bare task array.
var ErrInvalidBackup = errors.New("invalid backup: expected an export envelope or a task array")

// Backup is the export envelope.
type Backup struct {
	ExportedAt string        `json:"exportedAt"`
	SessionID  string        `json:"sessionId"`
	Count      int           `json:"count"`
	Tasks      []models.Task `json:"tasks"`
}

// NewBackup wraps tasks in an envelope stamped with now
func NewBackup(sessionID string, tasks []models.Task, now time.Time) Backup {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return Backup{
		ExportedAt: now.UTC().Format(time.RFC3339),
		SessionID:  sessionID,
		Count:      len(tasks),
		Tasks:      tasks,
	}
}

// Encode writes an indented backup of tasks to w
func Encode(w io.Writer, sessionID string, tasks []models.Task, now time.Time) error {
	data, err := json.MarshalIndent(NewBackup(sessionID, tasks, now), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Decode reads a backup envelope or a bare task array
func Decode(r io.Reader) ([]models.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrInvalidBackup
	}

	switch data[0] {
	case '[':
		var tasks []models.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		return tasks, nil
	case '{':
		var backup Backup
		if err := json.Unmarshal(data, &backup); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		if backup.Tasks == nil {
			return nil, ErrInvalidBackup
		}
		return backup.Tasks, nil
	}
	return nil, ErrInvalidBackup
}

// WriteFile writes a backup to path
func WriteFile(path, sessionID string, tasks []models.Task, now time.Time) error {
	var buf bytes.Buffer
	if err := Encode(&buf, sessionID, tasks, now); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// ReadFile reads a backup from path
func ReadFile(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
