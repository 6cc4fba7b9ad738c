package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestConflictCheckerSectionSlotTaken(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 2, "R1"))
	checker := NewConflictChecker(registry, false, nil, nil)

	err := checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-x", TeacherID: "t-other", Day: models.Monday, Period: 2}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSectionSlotTaken))
	assert.Equal(t, "section already scheduled on MONDAY period 2", appErrors.FromError(err).Message)

	var conflictErr *models.TimetableConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictDimensionSection, conflictErr.Dimension)
	assert.Equal(t, "e-1", conflictErr.Conflict.ExistingEntryID)
	assert.Equal(t, models.Monday, conflictErr.Conflict.DayOfWeek)
	assert.Equal(t, 2, conflictErr.Conflict.Period)
}

func TestConflictCheckerTeacherSlotTaken(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 3, "R1"))
	checker := NewConflictChecker(registry, false, nil, nil)

	err := checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-y", TeacherID: "t-m", Day: models.Monday, Period: 3}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTeacherSlotTaken))
	assert.Equal(t, "teacher already scheduled on MONDAY period 3", appErrors.FromError(err).Message)
}

func TestConflictCheckerSectionCheckedBeforeTeacher(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 1, "R1"))
	checker := NewConflictChecker(registry, false, nil, nil)

	err := checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-x", TeacherID: "t-m", Day: models.Monday, Period: 1}, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrSectionSlotTaken))
}

func TestConflictCheckerExcludesSelf(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 1, "R1"))
	checker := NewConflictChecker(registry, true, nil, nil)

	err := checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-x", TeacherID: "t-m", Room: "R1", Day: models.Monday, Period: 1}, "e-1")
	assert.NoError(t, err)
}

func TestConflictCheckerIgnoresCancelled(t *testing.T) {
	cancelled := committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 1, "R1")
	cancelled.Status = models.EntryStatusCancelled
	checker := NewConflictChecker(newRegistryStub(cancelled), false, nil, nil)

	assert.NoError(t, checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-x", TeacherID: "t-m", Day: models.Monday, Period: 1}, ""))
}

func TestConflictCheckerRoomsOptIn(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Tuesday, 4, "Lab-1"))
	candidate := Candidate{SectionID: "sec-y", TeacherID: "t-b", Room: "lab-1", Day: models.Tuesday, Period: 4}

	relaxed := NewConflictChecker(registry, false, nil, nil)
	assert.NoError(t, relaxed.Validate(context.Background(), nil, candidate, ""))

	strict := NewConflictChecker(registry, true, nil, nil)
	err := strict.Validate(context.Background(), nil, candidate, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrRoomSlotTaken))
	assert.Contains(t, err.Error(), "TUESDAY period 4")
}

func TestConflictCheckerRejectionIsIdempotent(t *testing.T) {
	registry := newRegistryStub(committedEntry("e-1", "sec-x", "math", "t-m", models.Monday, 3, "R1"))
	checker := NewConflictChecker(registry, false, nil, nil)
	candidate := Candidate{SectionID: "sec-y", TeacherID: "t-m", Day: models.Monday, Period: 3}

	first := checker.Validate(context.Background(), nil, candidate, "")
	second := checker.Validate(context.Background(), nil, candidate, "")
	assert.Equal(t, appErrors.FromError(first).Code, appErrors.FromError(second).Code)
	assert.Equal(t, first.Error(), second.Error())
	assert.Equal(t, 1, registry.activeCount())
}

func TestConflictCheckerLookupFailure(t *testing.T) {
	registry := newRegistryStub()
	registry.lookupErr = errors.New("db down")
	checker := NewConflictChecker(registry, false, nil, nil)

	err := checker.Validate(context.Background(), nil, Candidate{SectionID: "sec-x", TeacherID: "t", Day: models.Monday, Period: 1}, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.ErrorIs(t, err, registry.lookupErr)
}

func TestConflictCheckerTranslateWriteError(t *testing.T) {
	checker := NewConflictChecker(newRegistryStub(), false, nil, nil)
	candidate := Candidate{SectionID: "sec-x", TeacherID: "t", Day: models.Friday, Period: 6}

	assert.NoError(t, checker.TranslateWriteError(nil, candidate))
	assert.True(t, appErrors.Is(checker.TranslateWriteError(fmt.Errorf("insert: %w", repository.ErrSectionSlotTaken), candidate), appErrors.ErrSectionSlotTaken))
	assert.True(t, appErrors.Is(checker.TranslateWriteError(fmt.Errorf("insert: %w", repository.ErrTeacherSlotTaken), candidate), appErrors.ErrTeacherSlotTaken))
	assert.True(t, appErrors.Is(checker.TranslateWriteError(errors.New("boom"), candidate), appErrors.ErrInternal))
}
