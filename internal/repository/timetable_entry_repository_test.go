package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var timetableEntryRowColumns = []string{"id", "section_id", "subject_id", "teacher_id", "day_of_week", "period", "start_time", "end_time", "room", "status", "revision", "created_at", "updated_at", "cancelled_at"}

func newTimetableEntryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableEntryRepositoryFindBySectionDayPeriod(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(timetableEntryRowColumns).
		AddRow("entry-1", "sec-x", "math", "teacher-m", 1, 2, "07:45:00", "08:30:00", "R101", "COMMITTED", 1, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE section_id = $1 AND day_of_week = $2 AND period = $3 AND status <> 'CANCELLED'")).
		WithArgs("sec-x", 1, 2).
		WillReturnRows(rows)

	entry, err := repo.FindBySectionDayPeriod(context.Background(), nil, "sec-x", models.Monday, 2)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "entry-1", entry.ID)
	assert.Equal(t, models.Monday, entry.DayOfWeek)
	assert.Equal(t, "07:45", entry.StartTime.String())
	assert.Equal(t, "08:30", entry.EndTime.String())
	assert.Nil(t, entry.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryFindByTeacherDayPeriodEmpty(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE teacher_id = $1 AND day_of_week = $2 AND period = $3")).
		WithArgs("teacher-t", 1, 3).
		WillReturnRows(sqlmock.NewRows(timetableEntryRowColumns))

	entry, err := repo.FindByTeacherDayPeriod(context.Background(), nil, "teacher-t", models.Monday, 3)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryListForSection(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(timetableEntryRowColumns).
		AddRow("entry-1", "sec-x", "math", "teacher-m", 1, 1, "07:00:00", "07:45:00", "R101", "COMMITTED", 1, now, now, nil).
		AddRow("entry-2", "sec-x", "bio", "teacher-b", 2, 1, "07:00:00", "07:45:00", "LAB", "COMMITTED", 2, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE section_id = $1 AND status <> 'CANCELLED' ORDER BY day_of_week ASC, period ASC")).
		WithArgs("sec-x").
		WillReturnRows(rows)

	entries, err := repo.ListForSection(context.Background(), "sec-x")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Tuesday, entries[1].DayOfWeek)
	assert.Equal(t, 2, entries[1].Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryInsertDefaults(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WithArgs(sqlmock.AnyArg(), "sec-x", "math", "teacher-m", 1, 3, "08:30:00", "09:15:00", "R101", "COMMITTED", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.TimetableEntry{
		SectionID: "sec-x",
		SubjectID: "math",
		TeacherID: "teacher-m",
		DayOfWeek: models.Monday,
		Period:    3,
		StartTime: models.ClockTime(510),
		EndTime:   models.ClockTime(555),
		Room:      "R101",
	}
	require.NoError(t, repo.Insert(context.Background(), nil, entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.EntryStatusCommitted, entry.Status)
	assert.Equal(t, 1, entry.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryInsertMapsUniqueViolation(t *testing.T) {
	cases := map[string]error{
		sectionSlotIndex: ErrSectionSlotTaken,
		teacherSlotIndex: ErrTeacherSlotTaken,
	}
	for constraint, want := range cases {
		t.Run(constraint, func(t *testing.T) {
			db, mock, cleanup := newTimetableEntryRepoMock(t)
			defer cleanup()
			repo := NewTimetableEntryRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
				WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: constraint})

			err := repo.Insert(context.Background(), nil, &models.TimetableEntry{SectionID: "sec-x", DayOfWeek: models.Monday, Period: 1})
			assert.ErrorIs(t, err, want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTimetableEntryRepositoryInsertPassesThroughOtherErrors(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).WillReturnError(boom)

	err := repo.Insert(context.Background(), nil, &models.TimetableEntry{SectionID: "sec-x"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrSectionSlotTaken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryUpdateBumpsRevision(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET subject_id")).
		WithArgs("math", "teacher-m", 2, 4, sqlmock.AnyArg(), sqlmock.AnyArg(), "R101", 2, sqlmock.AnyArg(), "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.TimetableEntry{ID: "entry-1", SubjectID: "math", TeacherID: "teacher-m", DayOfWeek: models.Tuesday, Period: 4, Room: "R101", Revision: 1}
	require.NoError(t, repo.Update(context.Background(), nil, entry))
	assert.Equal(t, 2, entry.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryCancelNotFound(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET status = 'CANCELLED'")).
		WithArgs(sqlmock.AnyArg(), "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Cancel(context.Background(), nil, "entry-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryLockKeysSortedAndUnique(t *testing.T) {
	db, mock, cleanup := newTimetableEntryRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("section:sec-x:1:2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("teacher:t-1:1:2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.LockKeys(context.Background(), nil, "teacher:t-1:1:2", "section:sec-x:1:2", "teacher:t-1:1:2", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
