package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayOfWeek(t *testing.T) {
	cases := map[string]DayOfWeek{
		"MONDAY":   Monday,
		"tuesday":  Tuesday,
		" wed ":    Wednesday,
		"thu":      Thursday,
		"5":        Friday,
		"Saturday": Saturday,
		"SUN":      Sunday,
	}
	for raw, want := range cases {
		got, err := ParseDayOfWeek(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "0", "8", "funday", "TU"} {
		_, err := ParseDayOfWeek(raw)
		assert.Error(t, err, raw)
	}
}

func TestDayOfWeekJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Day DayOfWeek `json:"day"`
	}{Day: Wednesday})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"WEDNESDAY"}`, string(payload))

	var decoded struct {
		Day DayOfWeek `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"friday"}`), &decoded))
	assert.Equal(t, Friday, decoded.Day)

	require.NoError(t, json.Unmarshal([]byte(`{"day":2}`), &decoded))
	assert.Equal(t, Tuesday, decoded.Day)
	assert.Error(t, json.Unmarshal([]byte(`{"day":9}`), &decoded))
}

func TestClockTimeParseAndFormat(t *testing.T) {
	c, err := ParseClockTime("07:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(450), c)
	assert.Equal(t, "08:15", c.Add(45*time.Minute).String())

	withSeconds, err := ParseClockTime("13:05:00")
	require.NoError(t, err)
	assert.Equal(t, "13:05", withSeconds.String())

	for _, raw := range []string{"", "24:00", "7", "07:60", "aa:bb"} {
		_, err := ParseClockTime(raw)
		assert.Error(t, err, raw)
	}
}

func TestClockTimeSQLRoundTrip(t *testing.T) {
	value, err := ClockTime(495).Value()
	require.NoError(t, err)
	assert.Equal(t, "08:15:00", value)

	var scanned ClockTime
	require.NoError(t, scanned.Scan([]byte("08:15:00")))
	assert.Equal(t, ClockTime(495), scanned)

	require.NoError(t, scanned.Scan(time.Date(0, 1, 1, 9, 40, 0, 0, time.UTC)))
	assert.Equal(t, "09:40", scanned.String())

	assert.Error(t, scanned.Scan(42))
}

func TestCapacityErrorMessage(t *testing.T) {
	err := &CapacityError{SubjectID: "math", Placed: 3, Required: 5}
	assert.Equal(t, "subject math placed 3 of 5 weekly periods", err.Error())
}
