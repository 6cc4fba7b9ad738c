package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	timetableEntryColumns = "id, section_id, subject_id, teacher_id, day_of_week, period, start_time, end_time, room, status, revision, created_at, updated_at, cancelled_at"

	sectionSlotIndex = "timetable_entries_section_slot_key"
	teacherSlotIndex = "timetable_entries_teacher_slot_key"

	uniqueViolation = "23505"
)

// Unique index violations raised by the database when two writers race past the checker.
var (
	ErrSectionSlotTaken = errors.New("section slot already taken")
	ErrTeacherSlotTaken = errors.New("teacher slot already taken")
)

// TimetableEntryRepository is the committed set of timetable entries.
type TimetableEntryRepository struct {
	db *sqlx.DB
}

// NewTimetableEntryRepository creates a timetable entry repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{db: db}
}

func (r *TimetableEntryRepository) queryer(q sqlx.QueryerContext) sqlx.QueryerContext {
	if q != nil {
		return q
	}
	return r.db
}

func (r *TimetableEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads an entry regardless of status.
func (r *TimetableEntryRepository) FindByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE id = $1`
	var entry models.TimetableEntry
	if err := sqlx.GetContext(ctx, r.queryer(q), &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindBySectionDayPeriod returns the active entry occupying the section slot, or nil.
func (r *TimetableEntryRepository) FindBySectionDayPeriod(ctx context.Context, q sqlx.QueryerContext, sectionID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE section_id = $1 AND day_of_week = $2 AND period = $3 AND status <> 'CANCELLED'`
	return r.findOne(ctx, q, "find section slot", query, sectionID, int(day), period)
}

// FindByTeacherDayPeriod returns the active entry occupying the teacher slot, or nil.
func (r *TimetableEntryRepository) FindByTeacherDayPeriod(ctx context.Context, q sqlx.QueryerContext, teacherID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE teacher_id = $1 AND day_of_week = $2 AND period = $3 AND status <> 'CANCELLED'`
	return r.findOne(ctx, q, "find teacher slot", query, teacherID, int(day), period)
}

// FindByRoomDayPeriod returns the active entry booking the room, or nil.
func (r *TimetableEntryRepository) FindByRoomDayPeriod(ctx context.Context, q sqlx.QueryerContext, room string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE LOWER(room) = LOWER($1) AND day_of_week = $2 AND period = $3 AND status <> 'CANCELLED' ORDER BY created_at ASC LIMIT 1`
	return r.findOne(ctx, q, "find room slot", query, room, int(day), period)
}

func (r *TimetableEntryRepository) findOne(ctx context.Context, q sqlx.QueryerContext, label, query string, args ...interface{}) (*models.TimetableEntry, error) {
	var entry models.TimetableEntry
	if err := sqlx.GetContext(ctx, r.queryer(q), &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &entry, nil
}

// ListForSection returns the active week of a section ordered by day and period.
func (r *TimetableEntryRepository) ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE section_id = $1 AND status <> 'CANCELLED' ORDER BY day_of_week ASC, period ASC`
	entries := make([]models.TimetableEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, sectionID); err != nil {
		return nil, fmt.Errorf("list timetable by section: %w", err)
	}
	return entries, nil
}

// ListForTeacher returns the active week of a teacher ordered by day and period.
func (r *TimetableEntryRepository) ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE teacher_id = $1 AND status <> 'CANCELLED' ORDER BY day_of_week ASC, period ASC`
	entries := make([]models.TimetableEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable by teacher: %w", err)
	}
	return entries, nil
}

// Insert stores a committed entry.
func (r *TimetableEntryRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = models.EntryStatusCommitted
	}
	if entry.Revision == 0 {
		entry.Revision = 1
	}

	const query = `INSERT INTO timetable_entries (id, section_id, subject_id, teacher_id, day_of_week, period, start_time, end_time, room, status, revision, created_at, updated_at) VALUES (:id, :section_id, :subject_id, :teacher_id, :day_of_week, :period, :start_time, :end_time, :room, :status, :revision, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return classifyWriteError("insert timetable entry", err)
	}
	return nil
}

// Update rewrites the mutable fields of an active entry and bumps its revision.
func (r *TimetableEntryRepository) Update(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	entry.Revision++

	const query = `UPDATE timetable_entries SET subject_id = :subject_id, teacher_id = :teacher_id, day_of_week = :day_of_week, period = :period, start_time = :start_time, end_time = :end_time, room = :room, revision = :revision, updated_at = :updated_at WHERE id = :id AND status <> 'CANCELLED'`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry)
	if err != nil {
		return classifyWriteError("update timetable entry", err)
	}
	return requireAffected(res)
}

// Cancel marks an active entry as cancelled.
func (r *TimetableEntryRepository) Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	const query = `UPDATE timetable_entries SET status = 'CANCELLED', cancelled_at = $1, updated_at = $1 WHERE id = $2 AND status <> 'CANCELLED'`
	res, err := r.exec(exec).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("cancel timetable entry: %w", err)
	}
	return requireAffected(res)
}

// LockKeys takes transaction scoped advisory locks in a stable order.
func (r *TimetableEntryRepository) LockKeys(ctx context.Context, exec sqlx.ExtContext, keys ...string) error {
	unique := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := unique[key]; ok || key == "" {
			continue
		}
		unique[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	target := r.exec(exec)
	for _, key := range ordered {
		if _, err := target.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock timetable key %s: %w", key, err)
		}
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func classifyWriteError(label string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		switch pqErr.Constraint {
		case sectionSlotIndex:
			return fmt.Errorf("%s: %w", label, ErrSectionSlotTaken)
		case teacherSlotIndex:
			return fmt.Errorf("%s: %w", label, ErrTeacherSlotTaken)
		}
	}
	return fmt.Errorf("%s: %w", label, err)
}
