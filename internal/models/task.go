package models

import (
	"time"
)

type TaskMode string

const (
	TaskModeTimer TaskMode = "timer"
	TaskModeAlarm TaskMode = "alarm"
)

type LinkType string

const (
	LinkSequential  LinkType = "sequential"
	LinkParallel    LinkType = "parallel"
	LinkConditional LinkType = "conditional"
)

// Position is the card's place on the board.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Task is a card carrying either countdown or alarm state. Records are
// scoped by SessionID; ID is unique within a session.
type Task struct {
	SessionID   string   `gorm:"primaryKey;type:varchar(64)" json:"-"`
	ID          int64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title       string   `gorm:"type:varchar(255);not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Position    Position `gorm:"embedded;embeddedPrefix:position_" json:"position"`
	// BackgroundColor is a palette name, not a CSS value.
	BackgroundColor string   `gorm:"type:varchar(32)" json:"backgroundColor,omitempty"`
	Tags            []string `gorm:"serializer:json" json:"tags"`

	Mode         TaskMode `gorm:"type:varchar(10);not null;default:'timer'" json:"mode"`
	Time         string   `gorm:"type:varchar(16);not null" json:"time"`
	OriginalTime string   `gorm:"type:varchar(16);not null" json:"originalTime"`
	AlarmTime    string   `gorm:"type:varchar(5)" json:"alarmTime,omitempty"`
	AlarmDate    string   `gorm:"type:varchar(10)" json:"alarmDate,omitempty"`

	IsRunning       bool `json:"isRunning"`
	IsCompleted     bool `json:"isCompleted"`
	CompletionCount int  `gorm:"not null;default:0" json:"completionCount"`

	// RemoteNotify opts the task into the session's remote message channel.
	RemoteNotify bool `json:"telegramNotifications"`

	LinkedTo      []int64 `gorm:"serializer:json" json:"linkedTo"`
	LinkedFrom    []int64 `gorm:"serializer:json" json:"linkedFrom"`
	IsChainActive bool    `json:"isChainActive,omitempty"`
	ChainPosition *int    `json:"chainPosition,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `gorm:"index" json:"lastUpdated"`
	UpdatedAt   time.Time `json:"-"`
}

// Clone returns a deep copy so callers never share slices with the engine.
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	c.LinkedTo = append([]int64(nil), t.LinkedTo...)
	c.LinkedFrom = append([]int64(nil), t.LinkedFrom...)
	if t.ChainPosition != nil {
		p := *t.ChainPosition
		c.ChainPosition = &p
	}
	return c
}
