package model

import "time"

// StageEventType tags a streaming event.
type StageEventType string

const (
	StageStarted   StageEventType = "stage_started"
	StageCompleted StageEventType = "stage_completed"
	StageFailed    StageEventType = "stage_failed"
)

// StageEvent is emitted to streaming subscribers as the session advances.
// State is a snapshot taken at emit time; later mutations are not visible
// through it.
type StageEvent struct {
	Type      StageEventType `json:"type"`
	Stage     string         `json:"stage"`
	State     *State         `json:"state,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
