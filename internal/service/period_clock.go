package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const minutesPerDay = 24 * 60

// TimeWindowFor maps a 1-based period number to its wall-clock window.
func TimeWindowFor(period, periodsPerDay int, periodDuration time.Duration, dayStart models.ClockTime) (models.ClockTime, models.ClockTime, error) {
	if periodsPerDay <= 0 || period < 1 || period > periodsPerDay {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidPeriod, fmt.Sprintf("period %d outside 1..%d", period, periodsPerDay))
	}
	if periodDuration < time.Minute {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidPeriod, "period duration must be at least one minute")
	}
	start := dayStart.Add(time.Duration(period-1) * periodDuration)
	end := start.Add(periodDuration)
	if int(end) >= minutesPerDay {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidPeriod, fmt.Sprintf("period %d ends after midnight", period))
	}
	return start, end, nil
}

// PeriodClock describes the school week grid.
type PeriodClock struct {
	DayStart       models.ClockTime
	PeriodDuration time.Duration
	PeriodsPerDay  int
	Days           []models.DayOfWeek
}

// NewPeriodClock builds the clock from configuration.
func NewPeriodClock(cfg config.TimetableConfig) (PeriodClock, error) {
	dayStart, err := models.ParseClockTime(cfg.DayStart)
	if err != nil {
		return PeriodClock{}, fmt.Errorf("timetable day start: %w", err)
	}
	days := make([]models.DayOfWeek, 0, len(cfg.SchoolDays))
	for _, raw := range cfg.SchoolDays {
		day, err := models.ParseDayOfWeek(raw)
		if err != nil {
			return PeriodClock{}, fmt.Errorf("timetable school days: %w", err)
		}
		days = append(days, day)
	}
	clock := PeriodClock{
		DayStart:       dayStart,
		PeriodDuration: cfg.PeriodDuration,
		PeriodsPerDay:  cfg.PeriodsPerDay,
		Days:           normalizeDays(days),
	}
	if len(clock.Days) == 0 {
		return PeriodClock{}, fmt.Errorf("timetable school days must not be empty")
	}
	if _, _, err := clock.Window(clock.PeriodsPerDay); err != nil {
		return PeriodClock{}, fmt.Errorf("timetable grid: %w", err)
	}
	return clock, nil
}

// Window returns the start and end of period.
func (c PeriodClock) Window(period int) (models.ClockTime, models.ClockTime, error) {
	return TimeWindowFor(period, c.PeriodsPerDay, c.PeriodDuration, c.DayStart)
}

// Validate checks period against the daily bounds.
func (c PeriodClock) Validate(period int) error {
	_, _, err := c.Window(period)
	return err
}

// HasDay reports whether day is a configured school day.
func (c PeriodClock) HasDay(day models.DayOfWeek) bool {
	for _, d := range c.Days {
		if d == day {
			return true
		}
	}
	return false
}

// ValidateSlot checks both the day and the period of a placement.
func (c PeriodClock) ValidateSlot(day models.DayOfWeek, period int) error {
	if !day.Valid() || !c.HasDay(day) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a school day", day))
	}
	return c.Validate(period)
}

// Grid lists every cell in calendar order, periods ascending within a day.
func (c PeriodClock) Grid() []models.GridCell {
	cells := make([]models.GridCell, 0, len(c.Days)*c.PeriodsPerDay)
	for _, day := range c.Days {
		for period := 1; period <= c.PeriodsPerDay; period++ {
			cells = append(cells, models.GridCell{Day: day, Period: period})
		}
	}
	return cells
}

// Slots lists the window of every period in the day.
func (c PeriodClock) Slots() ([]models.PeriodWindow, error) {
	windows := make([]models.PeriodWindow, 0, c.PeriodsPerDay)
	for period := 1; period <= c.PeriodsPerDay; period++ {
		start, end, err := c.Window(period)
		if err != nil {
			return nil, err
		}
		windows = append(windows, models.PeriodWindow{Period: period, StartTime: start, EndTime: end})
	}
	return windows, nil
}

// Narrow restricts the clock to a subset of its days and a prefix of its periods.
// The day start and period duration may be restated but not changed, so every
// narrowed cell keeps the window manual entry would give it.
func (c PeriodClock) Narrow(periodsPerDay int, duration time.Duration, dayStart *models.ClockTime, days []models.DayOfWeek) (PeriodClock, error) {
	out := c
	if periodsPerDay > 0 {
		if periodsPerDay > c.PeriodsPerDay {
			return PeriodClock{}, appErrors.Clone(appErrors.ErrInvalidPeriod, fmt.Sprintf("periods per day %d exceeds the school limit of %d", periodsPerDay, c.PeriodsPerDay))
		}
		out.PeriodsPerDay = periodsPerDay
	}
	if duration > 0 && duration != c.PeriodDuration {
		return PeriodClock{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period duration must be %d minutes", int(c.PeriodDuration/time.Minute)))
	}
	if dayStart != nil && *dayStart != c.DayStart {
		return PeriodClock{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day start must be %s", c.DayStart))
	}
	if len(days) > 0 {
		for _, day := range days {
			if !c.HasDay(day) {
				return PeriodClock{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a school day", day))
			}
		}
		out.Days = normalizeDays(days)
	}
	return out, nil
}

func normalizeDays(days []models.DayOfWeek) []models.DayOfWeek {
	seen := make(map[models.DayOfWeek]struct{}, len(days))
	out := make([]models.DayOfWeek, 0, len(days))
	for _, day := range days {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
