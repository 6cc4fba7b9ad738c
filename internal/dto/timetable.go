package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// CreateTimetableEntryRequest places one subject lesson into the weekly grid.
type CreateTimetableEntryRequest struct {
	SectionID string           `json:"section_id" validate:"required"`
	SubjectID string           `json:"subject_id" validate:"required"`
	TeacherID string           `json:"teacher_id" validate:"required"`
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	Period    int              `json:"period"`
	Room      string           `json:"room" validate:"required"`
}

// RescheduleTimetableEntryRequest moves an entry to another day and period.
type RescheduleTimetableEntryRequest struct {
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	Period    int              `json:"period"`
}

// ReassignTimetableEntryRequest changes who teaches an entry, what is taught or where.
type ReassignTimetableEntryRequest struct {
	TeacherID *string `json:"teacher_id,omitempty"`
	SubjectID *string `json:"subject_id,omitempty"`
	Room      *string `json:"room,omitempty"`
}

// ValidateTimetableEntryRequest asks whether a placement would be accepted.
type ValidateTimetableEntryRequest struct {
	SectionID      string           `json:"section_id" validate:"required"`
	TeacherID      string           `json:"teacher_id" validate:"required"`
	DayOfWeek      models.DayOfWeek `json:"day_of_week" validate:"required"`
	Period         int              `json:"period"`
	Room           string           `json:"room"`
	ExcludeEntryID string           `json:"exclude_entry_id"`
}

// TimetableValidationResult reports the outcome of a dry conflict check.
type TimetableValidationResult struct {
	Valid    bool                      `json:"valid"`
	Code     string                    `json:"code,omitempty"`
	Message  string                    `json:"message,omitempty"`
	Conflict *models.TimetableConflict `json:"conflict,omitempty"`
}

// GenerateTimetableRequest instructs the generator to fill a section week.
type GenerateTimetableRequest struct {
	SectionID              string                             `json:"-"`
	PeriodsPerDay          int                                `json:"periods_per_day" validate:"omitempty,min=1,max=16"`
	PeriodDurationMinutes  int                                `json:"period_duration_minutes" validate:"omitempty,min=1,max=240"`
	DayStart               string                             `json:"day_start"`
	Days                   []models.DayOfWeek                 `json:"days" validate:"omitempty,dive,min=1,max=7"`
	Room                   string                             `json:"room"`
	Requirements           []models.SectionSubjectRequirement `json:"requirements" validate:"omitempty,dive"`
	DryRun                 bool                               `json:"dry_run"`
	SkipOptionalOnShortage bool                               `json:"skip_optional_on_shortage"`
}

// GenerateTimetableResponse lists the placements produced for a section.
type GenerateTimetableResponse struct {
	SectionID string                             `json:"section_id"`
	DryRun    bool                               `json:"dry_run"`
	Placed    int                                `json:"placed"`
	Entries   []models.TimetableEntry            `json:"entries"`
	Skipped   []models.SectionSubjectRequirement `json:"skipped,omitempty"`
}

// PeriodGridResponse describes the configured school week.
type PeriodGridResponse struct {
	Days    []models.DayOfWeek    `json:"days"`
	Periods []models.PeriodWindow `json:"periods"`
}
