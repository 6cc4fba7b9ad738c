package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type slotLookup interface {
	FindBySectionDayPeriod(ctx context.Context, q sqlx.QueryerContext, sectionID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error)
	FindByTeacherDayPeriod(ctx context.Context, q sqlx.QueryerContext, teacherID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error)
	FindByRoomDayPeriod(ctx context.Context, q sqlx.QueryerContext, room string, day models.DayOfWeek, period int) (*models.TimetableEntry, error)
}

// Candidate is a placement that has not been committed yet.
type Candidate struct {
	SectionID string           `json:"section_id"`
	SubjectID string           `json:"subject_id,omitempty"`
	TeacherID string           `json:"teacher_id"`
	Room      string           `json:"room,omitempty"`
	Day       models.DayOfWeek `json:"day_of_week"`
	Period    int              `json:"period"`
}

// ConflictChecker decides whether a candidate collides with a committed entry.
type ConflictChecker struct {
	slots        slotLookup
	enforceRooms bool
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewConflictChecker constructs the checker. Room collisions are only reported when enforceRooms is set.
func NewConflictChecker(slots slotLookup, enforceRooms bool, metrics *MetricsService, logger *zap.Logger) *ConflictChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictChecker{slots: slots, enforceRooms: enforceRooms, metrics: metrics, logger: logger}
}

// RoomsEnforced reports whether room double booking is rejected.
func (c *ConflictChecker) RoomsEnforced() bool {
	return c.enforceRooms
}

// Validate runs the section, teacher and (when enabled) room checks in that order.
func (c *ConflictChecker) Validate(ctx context.Context, q sqlx.QueryerContext, candidate Candidate, excludingEntryID string) error {
	if err := c.ValidateSection(ctx, q, candidate, excludingEntryID); err != nil {
		return err
	}
	if err := c.ValidateTeacher(ctx, q, candidate, excludingEntryID); err != nil {
		return err
	}
	return c.ValidateRoom(ctx, q, candidate, excludingEntryID)
}

// ValidateSection rejects a candidate whose section is already busy in the slot.
func (c *ConflictChecker) ValidateSection(ctx context.Context, q sqlx.QueryerContext, candidate Candidate, excludingEntryID string) error {
	existing, err := c.slots.FindBySectionDayPeriod(ctx, q, candidate.SectionID, candidate.Day, candidate.Period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section slot")
	}
	if existing != nil && existing.ID != excludingEntryID {
		return c.conflict(appErrors.ErrSectionSlotTaken, models.ConflictDimensionSection, candidate, existing)
	}
	return nil
}

// ValidateTeacher rejects a candidate whose teacher is already teaching in the slot.
func (c *ConflictChecker) ValidateTeacher(ctx context.Context, q sqlx.QueryerContext, candidate Candidate, excludingEntryID string) error {
	existing, err := c.slots.FindByTeacherDayPeriod(ctx, q, candidate.TeacherID, candidate.Day, candidate.Period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher slot")
	}
	if existing != nil && existing.ID != excludingEntryID {
		return c.conflict(appErrors.ErrTeacherSlotTaken, models.ConflictDimensionTeacher, candidate, existing)
	}
	return nil
}

// ValidateRoom rejects a candidate whose room is already booked. It is a no-op unless rooms are enforced.
func (c *ConflictChecker) ValidateRoom(ctx context.Context, q sqlx.QueryerContext, candidate Candidate, excludingEntryID string) error {
	if !c.enforceRooms || strings.TrimSpace(candidate.Room) == "" {
		return nil
	}
	existing, err := c.slots.FindByRoomDayPeriod(ctx, q, candidate.Room, candidate.Day, candidate.Period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room slot")
	}
	if existing != nil && existing.ID != excludingEntryID {
		return c.conflict(appErrors.ErrRoomSlotTaken, models.ConflictDimensionRoom, candidate, existing)
	}
	return nil
}

// TranslateWriteError turns a unique index violation from the registry into the matching conflict.
func (c *ConflictChecker) TranslateWriteError(err error, candidate Candidate) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrSectionSlotTaken):
		return c.conflict(appErrors.ErrSectionSlotTaken, models.ConflictDimensionSection, candidate, nil)
	case errors.Is(err, repository.ErrTeacherSlotTaken):
		return c.conflict(appErrors.ErrTeacherSlotTaken, models.ConflictDimensionTeacher, candidate, nil)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable entry")
	}
}

func (c *ConflictChecker) conflict(kind *appErrors.Error, dimension string, candidate Candidate, existing *models.TimetableEntry) error {
	message := conflictMessage(dimension, candidate)
	conflict := models.TimetableConflict{
		Dimension: dimension,
		DayOfWeek: candidate.Day,
		Period:    candidate.Period,
		SectionID: candidate.SectionID,
		TeacherID: candidate.TeacherID,
		Room:      candidate.Room,
		SubjectID: candidate.SubjectID,
	}
	if existing != nil {
		conflict.ExistingEntryID = existing.ID
		conflict.SectionID = existing.SectionID
		conflict.SubjectID = existing.SubjectID
		conflict.TeacherID = existing.TeacherID
		conflict.Room = existing.Room
	}
	c.metrics.RecordConflict(dimension)
	c.logger.Debug("timetable conflict",
		zap.String("dimension", dimension),
		zap.String("day", candidate.Day.String()),
		zap.Int("period", candidate.Period),
		zap.String("existing_entry_id", conflict.ExistingEntryID),
	)
	conflictErr := &models.TimetableConflictError{Dimension: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(conflictErr, kind.Code, kind.Status, message)
}

func conflictMessage(dimension string, candidate Candidate) string {
	switch dimension {
	case models.ConflictDimensionSection:
		return fmt.Sprintf("section already scheduled on %s period %d", candidate.Day, candidate.Period)
	case models.ConflictDimensionTeacher:
		return fmt.Sprintf("teacher already scheduled on %s period %d", candidate.Day, candidate.Period)
	default:
		return fmt.Sprintf("room %s already booked on %s period %d", candidate.Room, candidate.Day, candidate.Period)
	}
}
