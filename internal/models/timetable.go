package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayOfWeek numbers school days from 1 (MONDAY) to 7 (SUNDAY).
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = map[DayOfWeek]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// ParseDayOfWeek accepts full names, three letter abbreviations or ISO numbers (1-7).
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return 0, fmt.Errorf("day of week is required")
	}
	if n, err := strconv.Atoi(value); err == nil {
		day := DayOfWeek(n)
		if !day.Valid() {
			return 0, fmt.Errorf("day of week %d out of range", n)
		}
		return day, nil
	}
	for day, name := range dayNames {
		if name == value || (len(value) == 3 && strings.HasPrefix(name, value)) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", raw)
}

// Valid reports whether the day is within MONDAY..SUNDAY.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d DayOfWeek) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DAY(%d)", int(d))
}

// MarshalText renders the day as its upper-case name.
func (d DayOfWeek) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day of week %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses names, abbreviations or numbers.
func (d *DayOfWeek) UnmarshalText(text []byte) error {
	day, err := ParseDayOfWeek(string(text))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// UnmarshalJSON accepts quoted names as well as bare ISO numbers.
func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		return nil
	}
	return d.UnmarshalText([]byte(raw))
}

// ClockTime is a wall-clock time of day expressed in minutes since midnight.
type ClockTime int

// ParseClockTime reads "HH:MM" or "HH:MM:SS".
func ParseClockTime(raw string) (ClockTime, error) {
	value := strings.TrimSpace(raw)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return ClockTime(hour*60 + minute), nil
}

// Add shifts the clock time by d, truncated to whole minutes.
func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Minute)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText renders the clock time as HH:MM.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses HH:MM.
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock time in a TIME column.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// Scan reads TIME columns returned as text or time.Time.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

// EntryStatus tracks the lifecycle of a timetable entry.
type EntryStatus string

const (
	EntryStatusProposed  EntryStatus = "PROPOSED"
	EntryStatusCommitted EntryStatus = "COMMITTED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// TimetableEntry is a single section/subject/teacher placement in the weekly grid.
type TimetableEntry struct {
	ID          string      `db:"id" json:"id"`
	SectionID   string      `db:"section_id" json:"section_id"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	TeacherID   string      `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   DayOfWeek   `db:"day_of_week" json:"day_of_week"`
	Period      int         `db:"period" json:"period"`
	StartTime   ClockTime   `db:"start_time" json:"start_time"`
	EndTime     ClockTime   `db:"end_time" json:"end_time"`
	Room        string      `db:"room" json:"room"`
	Status      EntryStatus `db:"status" json:"status"`
	Revision    int         `db:"revision" json:"revision"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	CancelledAt *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Active reports whether the entry still occupies its slot.
func (e TimetableEntry) Active() bool {
	return e.Status != EntryStatusCancelled
}

// Conflict dimensions reported by the checker.
const (
	ConflictDimensionSection = "SECTION"
	ConflictDimensionTeacher = "TEACHER"
	ConflictDimensionRoom    = "ROOM"
)

// TimetableConflict describes the committed entry that blocks a candidate.
type TimetableConflict struct {
	Dimension       string    `json:"dimension"`
	DayOfWeek       DayOfWeek `json:"day_of_week"`
	Period          int       `json:"period"`
	ExistingEntryID string    `json:"existing_entry_id"`
	SectionID       string    `json:"section_id"`
	SubjectID       string    `json:"subject_id"`
	TeacherID       string    `json:"teacher_id"`
	Room            string    `json:"room"`
}

// TimetableConflictError is returned when a candidate collides with a committed entry.
type TimetableConflictError struct {
	Dimension string            `json:"dimension"`
	Message   string            `json:"message"`
	Conflict  TimetableConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// CapacityError reports the first requirement the generator could not place.
type CapacityError struct {
	SubjectID string `json:"subject_id"`
	TeacherID string `json:"teacher_id"`
	Placed    int    `json:"placed"`
	Required  int    `json:"required"`
}

func (e *CapacityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subject %s placed %d of %d weekly periods", e.SubjectID, e.Placed, e.Required)
}

// PeriodWindow is the wall-clock window of one period of the school day.
type PeriodWindow struct {
	Period    int       `json:"period"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
}

// GridCell addresses one (day, period) position of the weekly grid.
type GridCell struct {
	Day    DayOfWeek `json:"day_of_week"`
	Period int       `json:"period"`
}
