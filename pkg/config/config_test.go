package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "07:00", cfg.Timetable.DayStart)
	assert.Equal(t, 45*time.Minute, cfg.Timetable.PeriodDuration)
	assert.Equal(t, 8, cfg.Timetable.PeriodsPerDay)
	assert.Equal(t, []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}, cfg.Timetable.SchoolDays)
	assert.False(t, cfg.Timetable.EnforceRoomConflicts)
	assert.False(t, cfg.AMQP.Enabled)
	assert.Equal(t, "timetable.events", cfg.AMQP.Exchange)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMETABLE_PERIOD_DURATION", "40m")
	v.Set("TIMETABLE_PERIODS_PER_DAY", 6)
	v.Set("TIMETABLE_SCHOOL_DAYS", "monday, tuesday ,,saturday")
	v.Set("TIMETABLE_ENFORCE_ROOM_CONFLICTS", true)
	v.Set("NOTIFY_RETRY_DELAY", "not-a-duration")

	cfg := fromViper(v)

	assert.Equal(t, 40*time.Minute, cfg.Timetable.PeriodDuration)
	assert.Equal(t, 6, cfg.Timetable.PeriodsPerDay)
	assert.Equal(t, []string{"monday", "tuesday", "saturday"}, cfg.Timetable.SchoolDays)
	assert.True(t, cfg.Timetable.EnforceRoomConflicts)
	assert.Equal(t, time.Second, cfg.Notifications.RetryDelay)
}

func TestFromViperRejectsNonPositivePeriods(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMETABLE_PERIODS_PER_DAY", 0)

	cfg := fromViper(v)
	assert.Equal(t, 8, cfg.Timetable.PeriodsPerDay)
}
