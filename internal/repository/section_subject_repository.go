package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SectionSubjectRepository reads the weekly subject load configured for each section.
type SectionSubjectRepository struct {
	db *sqlx.DB
}

// NewSectionSubjectRepository constructs the repository.
func NewSectionSubjectRepository(db *sqlx.DB) *SectionSubjectRepository {
	return &SectionSubjectRepository{db: db}
}

// ListBySection returns the requirements of a section in their configured order.
func (r *SectionSubjectRepository) ListBySection(ctx context.Context, sectionID string) ([]models.SectionSubjectRequirement, error) {
	const query = `SELECT section_id, subject_id, teacher_id, weekly_periods, is_mandatory, COALESCE(room, '') AS room FROM section_subjects WHERE section_id = $1 AND weekly_periods > 0 ORDER BY position ASC, subject_id ASC`
	requirements := make([]models.SectionSubjectRequirement, 0)
	if err := r.db.SelectContext(ctx, &requirements, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section subjects: %w", err)
	}
	return requirements, nil
}
