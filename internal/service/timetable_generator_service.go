package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type requirementSource interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.SectionSubjectRequirement, error)
}

// TimetableGeneratorService fills a section week from its subject requirements.
type TimetableGeneratorService struct {
	lifecycle    *TimetableService
	requirements requirementSource
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewTimetableGeneratorService constructs the generator on top of the lifecycle manager.
func NewTimetableGeneratorService(lifecycle *TimetableService, requirements requirementSource, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableGeneratorService{
		lifecycle:    lifecycle,
		requirements: requirements,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// occupancy tracks which grid cells are already taken for the section and for each teacher.
type occupancy struct {
	section     map[models.GridCell]bool
	teachers    map[string]map[models.GridCell]bool
	subjectDays map[string]map[models.DayOfWeek]bool
}

func newOccupancy() *occupancy {
	return &occupancy{
		section:     make(map[models.GridCell]bool),
		teachers:    make(map[string]map[models.GridCell]bool),
		subjectDays: make(map[string]map[models.DayOfWeek]bool),
	}
}

func (o *occupancy) teacherBusy(teacherID string, cell models.GridCell) bool {
	return o.teachers[teacherID][cell]
}

func (o *occupancy) subjectOnDay(subjectID string, day models.DayOfWeek) bool {
	return o.subjectDays[subjectID][day]
}

func (o *occupancy) occupy(subjectID, teacherID string, cell models.GridCell) {
	o.section[cell] = true
	if o.teachers[teacherID] == nil {
		o.teachers[teacherID] = make(map[models.GridCell]bool)
	}
	o.teachers[teacherID][cell] = true
	if o.subjectDays[subjectID] == nil {
		o.subjectDays[subjectID] = make(map[models.DayOfWeek]bool)
	}
	o.subjectDays[subjectID][cell.Day] = true
}

func (o *occupancy) clone() *occupancy {
	out := newOccupancy()
	for cell := range o.section {
		out.section[cell] = true
	}
	for teacher, cells := range o.teachers {
		out.teachers[teacher] = make(map[models.GridCell]bool, len(cells))
		for cell := range cells {
			out.teachers[teacher][cell] = true
		}
	}
	for subject, days := range o.subjectDays {
		out.subjectDays[subject] = make(map[models.DayOfWeek]bool, len(days))
		for day := range days {
			out.subjectDays[subject][day] = true
		}
	}
	return out
}

type placement struct {
	requirement models.SectionSubjectRequirement
	cell        models.GridCell
}

// Generate plans a conflict-free week for the section and commits it in one transaction unless DryRun is set.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	started := time.Now()
	req.SectionID = strings.TrimSpace(req.SectionID)
	if req.SectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	clock, err := s.clockFor(req)
	if err != nil {
		return nil, err
	}
	requirements, err := s.loadRequirements(ctx, req)
	if err != nil {
		return nil, err
	}
	occ, err := s.seedOccupancy(ctx, req.SectionID, requirements)
	if err != nil {
		return nil, err
	}

	placements, skipped, capErr := planPlacements(clock.Grid(), requirements, occ, req.SkipOptionalOnShortage)
	if capErr != nil {
		s.metrics.RecordGeneration(GenerationOutcomeShortage, time.Since(started))
		s.logger.Info("timetable generation short of capacity",
			zap.String("section_id", req.SectionID),
			zap.String("subject_id", capErr.SubjectID),
			zap.Int("placed", capErr.Placed),
			zap.Int("required", capErr.Required),
		)
		return nil, appErrors.Wrap(capErr, appErrors.ErrInsufficientCapacity.Code, appErrors.ErrInsufficientCapacity.Status, capErr.Error())
	}

	entries, err := buildEntries(clock, req, placements)
	if err != nil {
		return nil, err
	}
	resp := &dto.GenerateTimetableResponse{
		SectionID: req.SectionID,
		DryRun:    req.DryRun,
		Placed:    len(entries),
		Entries:   entries,
		Skipped:   skipped,
	}
	if req.DryRun {
		s.metrics.RecordGeneration(GenerationOutcomeDryRun, time.Since(started))
		return resp, nil
	}

	err = s.lifecycle.inTx(ctx, func(tx *sqlx.Tx) error {
		for i := range entries {
			if err := s.lifecycle.insertWithinTx(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordGeneration(GenerationOutcomeFailed, time.Since(started))
		return nil, err
	}

	events := make([]models.TimetableEvent, 0, len(entries))
	keys := []string{SectionTimetableCacheKey(req.SectionID)}
	seenTeachers := make(map[string]struct{})
	for _, entry := range entries {
		events = append(events, models.NewTimetableEvent(models.EventEntryCreated, entry, nil))
		if _, ok := seenTeachers[entry.TeacherID]; !ok {
			seenTeachers[entry.TeacherID] = struct{}{}
			keys = append(keys, TeacherTimetableCacheKey(entry.TeacherID))
		}
	}
	s.lifecycle.afterCommit(ctx, events, keys...)
	s.metrics.RecordGeneration(GenerationOutcomeCommitted, time.Since(started))
	s.logger.Info("timetable generated", zap.String("section_id", req.SectionID), zap.Int("entries", len(entries)), zap.Int("skipped", len(skipped)))
	return resp, nil
}

func (s *TimetableGeneratorService) clockFor(req dto.GenerateTimetableRequest) (PeriodClock, error) {
	var dayStart *models.ClockTime
	if strings.TrimSpace(req.DayStart) != "" {
		parsed, err := models.ParseClockTime(req.DayStart)
		if err != nil {
			return PeriodClock{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day_start")
		}
		dayStart = &parsed
	}
	duration := time.Duration(req.PeriodDurationMinutes) * time.Minute
	clock, err := s.lifecycle.Clock().Narrow(req.PeriodsPerDay, duration, dayStart, req.Days)
	if err != nil {
		return PeriodClock{}, err
	}
	if len(clock.Days) == 0 {
		return PeriodClock{}, appErrors.Clone(appErrors.ErrValidation, "at least one school day is required")
	}
	if err := clock.Validate(clock.PeriodsPerDay); err != nil {
		return PeriodClock{}, err
	}
	return clock, nil
}

func (s *TimetableGeneratorService) loadRequirements(ctx context.Context, req dto.GenerateTimetableRequest) ([]models.SectionSubjectRequirement, error) {
	source := req.Requirements
	if len(source) == 0 {
		if s.requirements == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requirements are required")
		}
		loaded, err := s.requirements.ListBySection(ctx, req.SectionID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section subjects")
		}
		source = loaded
	}
	if len(source) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section has no subject requirements")
	}

	out := make([]models.SectionSubjectRequirement, 0, len(source))
	for _, item := range source {
		item.SectionID = req.SectionID
		item.SubjectID = strings.TrimSpace(item.SubjectID)
		item.TeacherID = strings.TrimSpace(item.TeacherID)
		item.Room = strings.TrimSpace(item.Room)
		if err := s.validator.Struct(item); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject requirement "+item.SubjectID)
		}
		out = append(out, item)
	}
	return out, nil
}

// seedOccupancy marks cells already committed for the section and for every teacher involved.
func (s *TimetableGeneratorService) seedOccupancy(ctx context.Context, sectionID string, requirements []models.SectionSubjectRequirement) (*occupancy, error) {
	occ := newOccupancy()
	sectionEntries, err := s.lifecycle.registry.ListForSection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section timetable")
	}
	for _, entry := range sectionEntries {
		occ.occupy(entry.SubjectID, entry.TeacherID, models.GridCell{Day: entry.DayOfWeek, Period: entry.Period})
	}

	seen := make(map[string]struct{})
	for _, item := range requirements {
		if _, ok := seen[item.TeacherID]; ok {
			continue
		}
		seen[item.TeacherID] = struct{}{}
		teacherEntries, err := s.lifecycle.registry.ListForTeacher(ctx, item.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
		}
		for _, entry := range teacherEntries {
			cell := models.GridCell{Day: entry.DayOfWeek, Period: entry.Period}
			if occ.teachers[item.TeacherID] == nil {
				occ.teachers[item.TeacherID] = make(map[models.GridCell]bool)
			}
			occ.teachers[item.TeacherID][cell] = true
		}
	}
	return occ, nil
}

// planPlacements runs first-fit over the grid. A subject prefers a day it does not already have,
// falling back to any free cell once every day carries it.
func planPlacements(grid []models.GridCell, requirements []models.SectionSubjectRequirement, occ *occupancy, skipOptional bool) ([]placement, []models.SectionSubjectRequirement, *models.CapacityError) {
	placements := make([]placement, 0)
	skipped := make([]models.SectionSubjectRequirement, 0)

	for _, item := range requirements {
		trial := occ.clone()
		placed := make([]placement, 0, item.WeeklyPeriods)
		for n := 0; n < item.WeeklyPeriods; n++ {
			cell, ok := firstFit(grid, item, trial, true)
			if !ok {
				cell, ok = firstFit(grid, item, trial, false)
			}
			if !ok {
				break
			}
			trial.occupy(item.SubjectID, item.TeacherID, cell)
			placed = append(placed, placement{requirement: item, cell: cell})
		}

		if len(placed) < item.WeeklyPeriods {
			if skipOptional && !item.IsMandatory {
				skipped = append(skipped, item)
				continue
			}
			return nil, nil, &models.CapacityError{
				SubjectID: item.SubjectID,
				TeacherID: item.TeacherID,
				Placed:    len(placed),
				Required:  item.WeeklyPeriods,
			}
		}
		*occ = *trial
		placements = append(placements, placed...)
	}

	sort.SliceStable(placements, func(i, j int) bool {
		a, b := placements[i].cell, placements[j].cell
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return placements, skipped, nil
}

func firstFit(grid []models.GridCell, item models.SectionSubjectRequirement, occ *occupancy, freshDayOnly bool) (models.GridCell, bool) {
	for _, cell := range grid {
		if occ.section[cell] || occ.teacherBusy(item.TeacherID, cell) {
			continue
		}
		if freshDayOnly && occ.subjectOnDay(item.SubjectID, cell.Day) {
			continue
		}
		return cell, true
	}
	return models.GridCell{}, false
}

func buildEntries(clock PeriodClock, req dto.GenerateTimetableRequest, placements []placement) ([]models.TimetableEntry, error) {
	status := models.EntryStatusCommitted
	if req.DryRun {
		status = models.EntryStatusProposed
	}
	defaultRoom := strings.TrimSpace(req.Room)
	if defaultRoom == "" {
		defaultRoom = req.SectionID
	}

	entries := make([]models.TimetableEntry, 0, len(placements))
	for _, p := range placements {
		start, end, err := clock.Window(p.cell.Period)
		if err != nil {
			return nil, err
		}
		room := p.requirement.Room
		if room == "" {
			room = defaultRoom
		}
		entries = append(entries, models.TimetableEntry{
			SectionID: req.SectionID,
			SubjectID: p.requirement.SubjectID,
			TeacherID: p.requirement.TeacherID,
			DayOfWeek: p.cell.Day,
			Period:    p.cell.Period,
			StartTime: start,
			EndTime:   end,
			Room:      room,
			Status:    status,
		})
	}
	return entries, nil
}
