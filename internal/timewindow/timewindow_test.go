package timewindow

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time { return MustClock(hhmm).On(day, time.UTC) }

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: Clock{0, 0}},
		{in: "07:30", want: Clock{7, 30}},
		{in: "23:59", want: Clock{23, 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "7:30", wantErr: true},
		{in: "07-30", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidClock), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}
}

func TestClockJSON(t *testing.T) {
	var v struct {
		At Clock `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"18:45"}`), &v))
	assert.Equal(t, Clock{18, 45}, v.At)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"18:45"}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"at":"6pm"}`), &v))
}

func TestClockScanValue(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan("11:15"))
	assert.Equal(t, Clock{11, 15}, c)
	require.NoError(t, c.Scan([]byte("12:30")))
	assert.Equal(t, Clock{12, 30}, c)
	assert.Error(t, c.Scan(42))

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "12:30", v)
}

func TestClockAddWraps(t *testing.T) {
	assert.Equal(t, "00:10", MustClock("23:50").Add(20*time.Minute).String())
	assert.Equal(t, "23:50", MustClock("00:10").Add(-20*time.Minute).String())
	assert.True(t, MustClock("06:00").Before(MustClock("06:01")))
}

func TestOnUsesLocalDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 9th is still the 8th in New York.
	instant := time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC)
	got := MustClock("07:30").On(instant, ny)
	assert.Equal(t, time.Date(2026, 3, 8, 7, 30, 0, 0, ny), got)
	assert.Equal(t, Clock{7, 30}, ClockOf(got, ny))

	// The spring-forward day is 23 hours long.
	morning := MustClock("00:00").On(instant, ny)
	evening := MustClock("23:00").On(instant, ny)
	assert.Equal(t, 22*time.Hour, evening.Sub(morning))
}

func TestClampAndMinutes(t *testing.T) {
	assert.Equal(t, at("09:00"), Clamp(at("08:00"), at("09:00"), at("10:00")))
	assert.Equal(t, at("10:00"), Clamp(at("11:00"), at("09:00"), at("10:00")))
	assert.Equal(t, at("09:30"), Clamp(at("09:30"), at("09:00"), at("10:00")))
	// Inverted bounds: the earlier instant wins.
	assert.Equal(t, at("09:00"), Clamp(at("09:30"), at("10:00"), at("09:00")))

	assert.Equal(t, 90, MinutesBetween(at("09:00"), at("10:30")))
	assert.Equal(t, 0, MinutesBetween(at("10:30"), at("09:00")))
	assert.Equal(t, 0, MinutesBetween(at("09:00"), at("09:00").Add(59*time.Second)))
	assert.Equal(t, at("09:15"), Midpoint(at("09:00"), at("09:30")))
}

func TestNewWindow(t *testing.T) {
	w, note := New(at("09:00"), at("09:30"))
	assert.Empty(t, note)
	assert.Equal(t, at("09:15"), w.Recommended)
	assert.True(t, w.Valid())

	w, note = New(at("10:00"), at("09:30"))
	assert.NotEmpty(t, note)
	assert.Equal(t, Point(at("09:30")), w)
}

func TestNarrow(t *testing.T) {
	base, _ := New(at("09:00"), at("10:00"))

	lo, hi := at("08:00"), at("11:00")
	w, note := base.Narrow(&lo, &hi)
	assert.Empty(t, note)
	assert.Equal(t, base, w)

	lo, hi = at("09:40"), at("09:50")
	w, note = base.Narrow(&lo, &hi)
	assert.Empty(t, note)
	assert.Equal(t, Window{Earliest: lo, Latest: hi, Recommended: lo}, w)

	w, _ = base.Narrow(nil, nil)
	assert.Equal(t, base, w)

	lo, hi = at("10:30"), at("11:00")
	w, note = base.Narrow(&lo, &hi)
	assert.Contains(t, note, "do not overlap")
	assert.Equal(t, Point(at("10:00")), w)
}

func TestRecenterStaysInBounds(t *testing.T) {
	lo, hi := at("18:30"), at("19:45")
	for rec := at("17:00"); rec.Before(at("21:00")); rec = rec.Add(time.Minute) {
		w := Point(rec).Recenter(7*time.Minute, lo, hi)
		require.True(t, w.Valid(), rec.Format("15:04"))
		require.False(t, w.Earliest.Before(lo))
		require.False(t, w.Latest.After(hi))
	}

	w := Point(at("19:00")).Recenter(7*time.Minute, lo, hi)
	assert.Equal(t, Window{Earliest: at("18:53"), Latest: at("19:07"), Recommended: at("19:00")}, w)
}

func TestAroundAndShift(t *testing.T) {
	w := Around(at("11:15"), 15*time.Minute)
	assert.Equal(t, at("11:00"), w.Earliest)
	assert.Equal(t, at("11:30"), w.Latest)

	s := w.Shift(time.Hour)
	assert.Equal(t, at("12:15"), s.Recommended)
	assert.Equal(t, w.LeanEarliest().Recommended, w.Earliest)
}
