package domain

import "time"

// EventType names a state change observable by dashboards.
type EventType string

const (
	EventDiceRolled         EventType = "dice_rolled"
	EventCheckpointApproved EventType = "checkpoint_approved"
	EventSnakeResolved      EventType = "snake_resolved"
	EventQuestionAssigned   EventType = "question_assigned"
	EventAnswerGraded       EventType = "answer_graded"
	EventCheckpointUndone   EventType = "checkpoint_undone"
	EventTimerChanged       EventType = "timer_changed"
	EventTeamStatusChanged  EventType = "team_status_changed"
	EventRoomChanged        EventType = "room_changed"
)

// Event is emitted after a committed engine mutation. Observers re-read state
// for anything not carried here.
type Event struct {
	Type         EventType  `json:"type"`
	TeamID       string     `json:"teamId"`
	CheckpointID string     `json:"checkpointId,omitempty"`
	Position     int        `json:"position"`
	Room         int        `json:"room"`
	Status       TeamStatus `json:"status,omitempty"`
	DeltaSeconds int        `json:"deltaSeconds,omitempty"`
	At           time.Time  `json:"at"`
}
