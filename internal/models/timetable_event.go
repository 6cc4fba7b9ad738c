package models

import (
	"time"

	"github.com/google/uuid"
)

// TimetableEventType names the lifecycle notification kinds.
type TimetableEventType string

const (
	EventEntryCreated     TimetableEventType = "timetable.entry.created"
	EventEntryRescheduled TimetableEventType = "timetable.entry.rescheduled"
	EventEntryReassigned  TimetableEventType = "timetable.entry.reassigned"
	EventEntryRoomChanged TimetableEventType = "timetable.entry.room_changed"
	EventEntryCancelled   TimetableEventType = "timetable.entry.cancelled"
)

// TimetableEntrySnapshot holds the fields of an entry before a mutation.
type TimetableEntrySnapshot struct {
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	DayOfWeek DayOfWeek `json:"day_of_week"`
	Period    int       `json:"period"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
	Room      string    `json:"room"`
}

// TimetableEvent is the payload handed to the notification collaborator.
type TimetableEvent struct {
	ID         string                  `json:"id"`
	Type       TimetableEventType      `json:"type"`
	EntryID    string                  `json:"entry_id"`
	SectionID  string                  `json:"section_id"`
	SubjectID  string                  `json:"subject_id"`
	TeacherID  string                  `json:"teacher_id"`
	DayOfWeek  DayOfWeek               `json:"day_of_week"`
	Period     int                     `json:"period"`
	StartTime  ClockTime               `json:"start_time"`
	EndTime    ClockTime               `json:"end_time"`
	Room       string                  `json:"room"`
	OccurredAt time.Time               `json:"occurred_at"`
	Previous   *TimetableEntrySnapshot `json:"previous,omitempty"`
}

// SnapshotOf captures the mutable fields of an entry.
func SnapshotOf(entry TimetableEntry) *TimetableEntrySnapshot {
	return &TimetableEntrySnapshot{
		SubjectID: entry.SubjectID,
		TeacherID: entry.TeacherID,
		DayOfWeek: entry.DayOfWeek,
		Period:    entry.Period,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		Room:      entry.Room,
	}
}

// NewTimetableEvent builds an event describing the current state of entry.
func NewTimetableEvent(eventType TimetableEventType, entry TimetableEntry, previous *TimetableEntrySnapshot) TimetableEvent {
	return TimetableEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		EntryID:    entry.ID,
		SectionID:  entry.SectionID,
		SubjectID:  entry.SubjectID,
		TeacherID:  entry.TeacherID,
		DayOfWeek:  entry.DayOfWeek,
		Period:     entry.Period,
		StartTime:  entry.StartTime,
		EndTime:    entry.EndTime,
		Room:       entry.Room,
		OccurredAt: time.Now().UTC(),
		Previous:   previous,
	}
}
