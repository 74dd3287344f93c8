package daytime

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestParseExtended(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{
			name:  "midnight",
			value: "00:00:00",
			want:  0,
		},
		{
			name:  "early morning on the extended clock",
			value: "25:32:00",
			want:  25*3600 + 32*60,
		},
		{
			name:  "last accepted moment",
			value: "28:59:59",
			want:  28*3600 + 59*60 + 59,
		},
		{
			name:    "hour past the extended clock",
			value:   "29:00:00",
			wantErr: true,
		},
		{
			name:    "minutes out of range",
			value:   "12:60:00",
			wantErr: true,
		},
		{
			name:    "missing seconds",
			value:   "12:30",
			wantErr: true,
		},
		{
			name:    "not a number",
			value:   "ab:00:00",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := ParseExtended(tt.value)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}

func TestFormatExtended(t *testing.T) {
	is := is.New(t)
	is.Equal(FormatExtended(25*3600+32*60), "25:32:00")
	is.Equal(FormatExtended(0), "00:00:00")
	is.Equal(FormatExtended(8*3600+5*60+7), "08:05:07")
}

func TestFromWallClock(t *testing.T) {
	tests := []struct {
		name        string
		at          time.Time
		wantDay     string
		wantSeconds int
	}{
		{
			name:        "early morning belongs to the prior service day",
			at:          time.Date(2016, 7, 1, 1, 32, 0, 0, NetworkLocation()),
			wantDay:     "20160630",
			wantSeconds: 25*3600 + 32*60,
		},
		{
			name:        "midday stays on its own day",
			at:          time.Date(2012, 5, 23, 12, 55, 0, 0, NetworkLocation()),
			wantDay:     "20120523",
			wantSeconds: 12*3600 + 55*60,
		},
		{
			name:        "3am is the first hour of the new service day",
			at:          time.Date(2016, 7, 1, 3, 0, 0, 0, NetworkLocation()),
			wantDay:     "20160701",
			wantSeconds: 3 * 3600,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got := FromWallClock(tt.at)
			is.Equal(got.Day, tt.wantDay)
			is.Equal(got.Seconds, tt.wantSeconds)
		})
	}
}

func TestWallClockRoundTrip(t *testing.T) {
	is := is.New(t)

	// reducing then re-extending is identity for hours that stay clear of
	// the early morning rule
	for _, hour := range []int{3, 12, 23, 24, 25, 26} {
		d := DayTime{Day: "20160630", Seconds: hour*3600 + 15*60}
		wall, err := d.WallClock()
		is.NoErr(err)
		is.Equal(FromWallClock(wall), d)
	}

	// a plain early morning moment re-extends onto the previous service day
	d := DayTime{Day: "20160701", Seconds: 1*3600 + 32*60}
	wall, err := d.WallClock()
	is.NoErr(err)
	is.Equal(FromWallClock(wall), DayTime{Day: "20160630", Seconds: 25*3600 + 32*60})
}

func TestCompareClock(t *testing.T) {
	tests := []struct {
		name      string
		scheduled string
		real      string
		want      int
	}{
		{
			name:      "equal times",
			scheduled: "12:55:00",
			real:      "12:55:00",
			want:      0,
		},
		{
			name:      "five minutes late",
			scheduled: "12:00:00",
			real:      "12:05:00",
			want:      300,
		},
		{
			name:      "two minutes late across midnight",
			scheduled: "23:59:00",
			real:      "00:01:00",
			want:      120,
		},
		{
			name:      "two minutes early across midnight",
			scheduled: "00:01:00",
			real:      "23:59:00",
			want:      -120,
		},
		{
			name:      "extended hours reduce before comparing",
			scheduled: "24:10:00",
			real:      "00:12:00",
			want:      120,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := CompareClock(tt.scheduled, tt.real)
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}

func TestDelayBetween(t *testing.T) {
	is := is.New(t)

	real := DayTime{Day: "20160630", Seconds: 25*3600 + 32*60}
	scheduled := DayTime{Day: "20160630", Seconds: 25*3600 + 30*60}
	got, err := DelayBetween(real, scheduled)
	is.NoErr(err)
	is.Equal(got, 120)

	// the delay crosses the service day boundary through wall clock time
	real = DayTime{Day: "20160701", Seconds: 3 * 3600}
	scheduled = DayTime{Day: "20160630", Seconds: 26 * 3600}
	got, err = DelayBetween(real, scheduled)
	is.NoErr(err)
	is.Equal(got, 3600)
}

func TestDelayFrom(t *testing.T) {
	is := is.New(t)

	at := time.Date(2016, 6, 30, 14, 2, 0, 0, NetworkLocation())
	got, err := DelayFrom(at, DayTime{Day: "20160630", Seconds: 14 * 3600})
	is.NoErr(err)
	is.Equal(got, 120)
}
