package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// registryStub is an in-memory timetable registry. It ignores the transaction handle.
type registryStub struct {
	mu        sync.Mutex
	entries   map[string]models.TimetableEntry
	seq       int
	locks     [][]string
	inserts   int
	insertErr error
	lookupErr error
}

func newRegistryStub(entries ...models.TimetableEntry) *registryStub {
	r := &registryStub{entries: map[string]models.TimetableEntry{}}
	for _, entry := range entries {
		if entry.Status == "" {
			entry.Status = models.EntryStatusCommitted
		}
		if entry.Revision == 0 {
			entry.Revision = 1
		}
		r.entries[entry.ID] = entry
	}
	return r
}

func (r *registryStub) find(match func(models.TimetableEntry) bool) (*models.TimetableEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, entry := range r.sorted() {
		if entry.Active() && match(entry) {
			found := entry
			return &found, nil
		}
	}
	return nil, nil
}

func (r *registryStub) sorted() []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *registryStub) FindBySectionDayPeriod(ctx context.Context, q sqlx.QueryerContext, sectionID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	return r.find(func(e models.TimetableEntry) bool {
		return e.SectionID == sectionID && e.DayOfWeek == day && e.Period == period
	})
}

func (r *registryStub) FindByTeacherDayPeriod(ctx context.Context, q sqlx.QueryerContext, teacherID string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	return r.find(func(e models.TimetableEntry) bool {
		return e.TeacherID == teacherID && e.DayOfWeek == day && e.Period == period
	})
}

func (r *registryStub) FindByRoomDayPeriod(ctx context.Context, q sqlx.QueryerContext, room string, day models.DayOfWeek, period int) (*models.TimetableEntry, error) {
	return r.find(func(e models.TimetableEntry) bool {
		return strings.EqualFold(e.Room, room) && e.DayOfWeek == day && e.Period == period
	})
}

func (r *registryStub) FindByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.TimetableEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

func (r *registryStub) ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error) {
	return r.list(func(e models.TimetableEntry) bool { return e.SectionID == sectionID }), nil
}

func (r *registryStub) ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return r.list(func(e models.TimetableEntry) bool { return e.TeacherID == teacherID }), nil
}

func (r *registryStub) list(match func(models.TimetableEntry) bool) []models.TimetableEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TimetableEntry, 0)
	for _, entry := range r.sorted() {
		if entry.Active() && match(entry) {
			out = append(out, entry)
		}
	}
	return out
}

func (r *registryStub) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserts++
	r.seq++
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-new-%d", r.seq)
	}
	if entry.Status == "" {
		entry.Status = models.EntryStatusCommitted
	}
	entry.Revision = 1
	entry.CreatedAt = time.Now().UTC()
	entry.UpdatedAt = entry.CreatedAt
	r.entries[entry.ID] = *entry
	return nil
}

func (r *registryStub) Update(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[entry.ID]
	if !ok || !current.Active() {
		return sql.ErrNoRows
	}
	entry.Revision++
	entry.UpdatedAt = time.Now().UTC()
	r.entries[entry.ID] = *entry
	return nil
}

func (r *registryStub) Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[id]
	if !ok || !current.Active() {
		return sql.ErrNoRows
	}
	current.Status = models.EntryStatusCancelled
	current.CancelledAt = &at
	r.entries[id] = current
	return nil
}

func (r *registryStub) LockKeys(ctx context.Context, exec sqlx.ExtContext, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, append([]string(nil), keys...))
	return nil
}

func (r *registryStub) get(id string) models.TimetableEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

func (r *registryStub) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.Active() {
			count++
		}
	}
	return count
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type timetableFixture struct {
	service  *TimetableService
	registry *registryStub
	mock     sqlmock.Sqlmock
	events   *recordingPublisher
	cache    *memoryCacheRepo
	metrics  *MetricsService
}

func newTimetableFixture(t *testing.T, enforceRooms bool, entries ...models.TimetableEntry) *timetableFixture {
	registry := newRegistryStub(entries...)
	tx, mock := newTxProviderMock(t)
	metrics := NewMetricsService()
	events := &recordingPublisher{}
	cacheRepo := newMemoryCacheRepo()
	checker := NewConflictChecker(registry, enforceRooms, metrics, nil)
	svc := NewTimetableService(
		registry,
		checker,
		testClock(),
		tx,
		NewNotificationService(events, metrics, nil),
		NewCacheService(cacheRepo, metrics, time.Minute, nil, true),
		time.Minute,
		nil,
		nil,
	)
	return &timetableFixture{service: svc, registry: registry, mock: mock, events: events, cache: cacheRepo, metrics: metrics}
}

func committedEntry(id, section, subject, teacher string, day models.DayOfWeek, period int, room string) models.TimetableEntry {
	start, end, _ := testClock().Window(period)
	return models.TimetableEntry{
		ID:        id,
		SectionID: section,
		SubjectID: subject,
		TeacherID: teacher,
		DayOfWeek: day,
		Period:    period,
		StartTime: start,
		EndTime:   end,
		Room:      room,
		Status:    models.EntryStatusCommitted,
		Revision:  1,
	}
}
