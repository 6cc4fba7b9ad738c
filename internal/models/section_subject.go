package models

// SectionSubjectRequirement is the weekly load a section needs for one subject.
type SectionSubjectRequirement struct {
	SectionID     string `db:"section_id" json:"section_id,omitempty"`
	SubjectID     string `db:"subject_id" json:"subject_id" validate:"required"`
	TeacherID     string `db:"teacher_id" json:"teacher_id" validate:"required"`
	WeeklyPeriods int    `db:"weekly_periods" json:"weekly_periods" validate:"min=1"`
	IsMandatory   bool   `db:"is_mandatory" json:"is_mandatory"`
	Room          string `db:"room" json:"room,omitempty"`
}
