package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableRegistry interface {
	slotLookup
	FindByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.TimetableEntry, error)
	ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error
	Update(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error
	Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error
	LockKeys(ctx context.Context, exec sqlx.ExtContext, keys ...string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableNotifier interface {
	Publish(ctx context.Context, event models.TimetableEvent)
}

// TimetableService owns every write to the timetable registry.
type TimetableService struct {
	registry  timetableRegistry
	checker   *ConflictChecker
	clock     PeriodClock
	tx        txProvider
	notifier  timetableNotifier
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimetableService wires the lifecycle manager.
func NewTimetableService(
	registry timetableRegistry,
	checker *ConflictChecker,
	clock PeriodClock,
	tx txProvider,
	notifier timetableNotifier,
	cache *CacheService,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		registry:  registry,
		checker:   checker,
		clock:     clock,
		tx:        tx,
		notifier:  notifier,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Clock returns the configured period clock.
func (s *TimetableService) Clock() PeriodClock {
	return s.clock
}

// Create validates and commits a new entry.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableEntryRequest) (*models.TimetableEntry, error) {
	req.SectionID = strings.TrimSpace(req.SectionID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.Room = strings.TrimSpace(req.Room)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable entry payload")
	}
	if err := s.clock.ValidateSlot(req.DayOfWeek, req.Period); err != nil {
		return nil, err
	}
	start, end, err := s.clock.Window(req.Period)
	if err != nil {
		return nil, err
	}

	entry := &models.TimetableEntry{
		SectionID: req.SectionID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		DayOfWeek: req.DayOfWeek,
		Period:    req.Period,
		StartTime: start,
		EndTime:   end,
		Room:      req.Room,
		Status:    models.EntryStatusCommitted,
	}
	if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.insertWithinTx(ctx, tx, entry)
	}); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, []models.TimetableEvent{models.NewTimetableEvent(models.EventEntryCreated, *entry, nil)}, entryCacheKeys(*entry)...)
	return entry, nil
}

// Reschedule moves an entry to another day and period. Moving it onto its own slot is a no-op.
func (s *TimetableService) Reschedule(ctx context.Context, id string, req dto.RescheduleTimetableEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	if err := s.clock.ValidateSlot(req.DayOfWeek, req.Period); err != nil {
		return nil, err
	}
	start, end, err := s.clock.Window(req.Period)
	if err != nil {
		return nil, err
	}

	var (
		entry    *models.TimetableEntry
		previous *models.TimetableEntrySnapshot
	)
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.loadActiveForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		entry = existing
		if existing.DayOfWeek == req.DayOfWeek && existing.Period == req.Period {
			return nil
		}

		candidate := Candidate{
			SectionID: existing.SectionID,
			SubjectID: existing.SubjectID,
			TeacherID: existing.TeacherID,
			Room:      existing.Room,
			Day:       req.DayOfWeek,
			Period:    req.Period,
		}
		if err := s.registry.LockKeys(ctx, tx, s.slotKeys(candidate)...); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable slot")
		}
		if err := s.checker.Validate(ctx, tx, candidate, existing.ID); err != nil {
			return err
		}

		previous = models.SnapshotOf(*existing)
		existing.DayOfWeek = req.DayOfWeek
		existing.Period = req.Period
		existing.StartTime = start
		existing.EndTime = end
		return s.updateWithinTx(ctx, tx, existing, candidate)
	})
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return entry, nil
	}

	s.afterCommit(ctx, []models.TimetableEvent{models.NewTimetableEvent(models.EventEntryRescheduled, *entry, previous)}, entryCacheKeys(*entry)...)
	return entry, nil
}

// ReassignTeacherOrRoom changes the teacher, subject or room of an entry.
func (s *TimetableService) ReassignTeacherOrRoom(ctx context.Context, id string, req dto.ReassignTimetableEntryRequest) (*models.TimetableEntry, error) {
	teacherID, err := optionalField(req.TeacherID, "teacher_id")
	if err != nil {
		return nil, err
	}
	subjectID, err := optionalField(req.SubjectID, "subject_id")
	if err != nil {
		return nil, err
	}
	room, err := optionalField(req.Room, "room")
	if err != nil {
		return nil, err
	}
	if teacherID == "" && subjectID == "" && room == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id, subject_id or room is required")
	}

	var (
		entry         *models.TimetableEntry
		previous      *models.TimetableEntrySnapshot
		teacherChange bool
		subjectChange bool
		roomChange    bool
	)
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.loadActiveForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		entry = existing
		teacherChange = teacherID != "" && teacherID != existing.TeacherID
		subjectChange = subjectID != "" && subjectID != existing.SubjectID
		roomChange = room != "" && room != existing.Room
		if !teacherChange && !subjectChange && !roomChange {
			return nil
		}

		candidate := Candidate{
			SectionID: existing.SectionID,
			SubjectID: existing.SubjectID,
			TeacherID: existing.TeacherID,
			Room:      existing.Room,
			Day:       existing.DayOfWeek,
			Period:    existing.Period,
		}
		keys := make([]string, 0, 2)
		if teacherChange {
			candidate.TeacherID = teacherID
			keys = append(keys, teacherSlotKey(teacherID, existing.DayOfWeek, existing.Period))
		}
		if subjectChange {
			candidate.SubjectID = subjectID
		}
		if roomChange {
			candidate.Room = room
			if s.checker.RoomsEnforced() {
				keys = append(keys, roomSlotKey(room, existing.DayOfWeek, existing.Period))
			}
		}
		if err := s.registry.LockKeys(ctx, tx, keys...); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable slot")
		}
		if teacherChange {
			if err := s.checker.ValidateTeacher(ctx, tx, candidate, existing.ID); err != nil {
				return err
			}
		}
		if roomChange {
			if err := s.checker.ValidateRoom(ctx, tx, candidate, existing.ID); err != nil {
				return err
			}
		}

		previous = models.SnapshotOf(*existing)
		updated := *existing
		updated.TeacherID = candidate.TeacherID
		updated.SubjectID = candidate.SubjectID
		updated.Room = candidate.Room
		if err := s.updateWithinTx(ctx, tx, &updated, candidate); err != nil {
			return err
		}
		entry = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return entry, nil
	}

	events := make([]models.TimetableEvent, 0, 2)
	if teacherChange || subjectChange {
		events = append(events, models.NewTimetableEvent(models.EventEntryReassigned, *entry, previous))
	}
	if roomChange {
		events = append(events, models.NewTimetableEvent(models.EventEntryRoomChanged, *entry, previous))
	}
	keys := entryCacheKeys(*entry)
	if teacherChange {
		keys = append(keys, TeacherTimetableCacheKey(previous.TeacherID))
	}
	s.afterCommit(ctx, events, keys...)
	return entry, nil
}

// Cancel marks an entry as cancelled, freeing its slots.
func (s *TimetableService) Cancel(ctx context.Context, id string) (*models.TimetableEntry, error) {
	var entry *models.TimetableEntry
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.loadActiveForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		at := s.now()
		if err := s.registry.Cancel(ctx, tx, existing.ID, at); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel timetable entry")
		}
		existing.Status = models.EntryStatusCancelled
		existing.CancelledAt = &at
		existing.UpdatedAt = at
		entry = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, []models.TimetableEvent{models.NewTimetableEvent(models.EventEntryCancelled, *entry, nil)}, entryCacheKeys(*entry)...)
	return entry, nil
}

// Get returns an entry by id, including cancelled ones.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableEntry, error) {
	entry, err := s.registry.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	return entry, nil
}

// ListForSection returns the active week of a section.
func (s *TimetableService) ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error) {
	return s.cachedList(ctx, SectionTimetableCacheKey(sectionID), "failed to list section timetable", func() ([]models.TimetableEntry, error) {
		return s.registry.ListForSection(ctx, sectionID)
	})
}

// ListForTeacher returns the active week of a teacher.
func (s *TimetableService) ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return s.cachedList(ctx, TeacherTimetableCacheKey(teacherID), "failed to list teacher timetable", func() ([]models.TimetableEntry, error) {
		return s.registry.ListForTeacher(ctx, teacherID)
	})
}

// Check runs the conflict checker without writing anything.
func (s *TimetableService) Check(ctx context.Context, req dto.ValidateTimetableEntryRequest) (*dto.TimetableValidationResult, error) {
	req.SectionID = strings.TrimSpace(req.SectionID)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.Room = strings.TrimSpace(req.Room)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	if err := s.clock.ValidateSlot(req.DayOfWeek, req.Period); err != nil {
		return nil, err
	}

	candidate := Candidate{
		SectionID: req.SectionID,
		TeacherID: req.TeacherID,
		Room:      req.Room,
		Day:       req.DayOfWeek,
		Period:    req.Period,
	}
	err := s.checker.Validate(ctx, nil, candidate, strings.TrimSpace(req.ExcludeEntryID))
	if err == nil {
		return &dto.TimetableValidationResult{Valid: true}, nil
	}
	var conflictErr *models.TimetableConflictError
	if !errors.As(err, &conflictErr) {
		return nil, err
	}
	appErr := appErrors.FromError(err)
	return &dto.TimetableValidationResult{
		Valid:    false,
		Code:     appErr.Code,
		Message:  conflictErr.Message,
		Conflict: &conflictErr.Conflict,
	}, nil
}

// insertWithinTx locks, checks and inserts one entry using the caller's transaction.
func (s *TimetableService) insertWithinTx(ctx context.Context, tx sqlx.ExtContext, entry *models.TimetableEntry) error {
	if err := s.clock.ValidateSlot(entry.DayOfWeek, entry.Period); err != nil {
		return err
	}
	candidate := Candidate{
		SectionID: entry.SectionID,
		SubjectID: entry.SubjectID,
		TeacherID: entry.TeacherID,
		Room:      entry.Room,
		Day:       entry.DayOfWeek,
		Period:    entry.Period,
	}
	if err := s.registry.LockKeys(ctx, tx, s.slotKeys(candidate)...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable slot")
	}
	if err := s.checker.Validate(ctx, tx, candidate, ""); err != nil {
		return err
	}
	if err := s.registry.Insert(ctx, tx, entry); err != nil {
		return s.checker.TranslateWriteError(err, candidate)
	}
	return nil
}

func (s *TimetableService) updateWithinTx(ctx context.Context, tx sqlx.ExtContext, entry *models.TimetableEntry, candidate Candidate) error {
	if err := s.registry.Update(ctx, tx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return s.checker.TranslateWriteError(err, candidate)
	}
	return nil
}

func (s *TimetableService) loadActiveForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.TimetableEntry, error) {
	if err := s.registry.LockKeys(ctx, tx, entryKey(id)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable entry")
	}
	existing, err := s.registry.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	if !existing.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
	}
	return existing, nil
}

func (s *TimetableService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable changes")
	}
	return nil
}

// afterCommit hands events to the notifier and drops stale read models.
func (s *TimetableService) afterCommit(ctx context.Context, events []models.TimetableEvent, cacheKeys ...string) {
	if s.notifier != nil {
		for _, event := range events {
			s.notifier.Publish(ctx, event)
		}
	}
	if err := s.cache.Invalidate(ctx, cacheKeys...); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
	}
}

func (s *TimetableService) cachedList(ctx context.Context, key, failure string, load func() ([]models.TimetableEntry, error)) ([]models.TimetableEntry, error) {
	var cached []models.TimetableEntry
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	version := s.cache.Version(key)
	entries, err := load()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
	}
	_, _ = s.cache.SetIfUnchanged(ctx, key, entries, s.cacheTTL, version)
	return entries, nil
}

func (s *TimetableService) slotKeys(candidate Candidate) []string {
	keys := []string{
		sectionSlotKey(candidate.SectionID, candidate.Day, candidate.Period),
		teacherSlotKey(candidate.TeacherID, candidate.Day, candidate.Period),
	}
	if s.checker.RoomsEnforced() && candidate.Room != "" {
		keys = append(keys, roomSlotKey(candidate.Room, candidate.Day, candidate.Period))
	}
	return keys
}

func entryCacheKeys(entry models.TimetableEntry) []string {
	return []string{SectionTimetableCacheKey(entry.SectionID), TeacherTimetableCacheKey(entry.TeacherID)}
}

func entryKey(id string) string {
	return "entry:" + id
}

func sectionSlotKey(sectionID string, day models.DayOfWeek, period int) string {
	return fmt.Sprintf("section:%s:%d:%d", sectionID, int(day), period)
}

func teacherSlotKey(teacherID string, day models.DayOfWeek, period int) string {
	return fmt.Sprintf("teacher:%s:%d:%d", teacherID, int(day), period)
}

func roomSlotKey(room string, day models.DayOfWeek, period int) string {
	return fmt.Sprintf("room:%s:%d:%d", strings.ToLower(room), int(day), period)
}

func optionalField(value *string, field string) (string, error) {
	if value == nil {
		return "", nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, field+" must not be empty")
	}
	return trimmed, nil
}
