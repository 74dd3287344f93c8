package schedule

import (
	"sort"
	"testing"
	"time"

	"github.com/matryer/is"
)

func exception(serviceId string, exceptionType int) CalendarDate {
	return CalendarDate{
		ServiceId:     serviceId,
		Date:          time.Date(2016, 6, 30, 0, 0, 0, 0, time.UTC),
		ExceptionType: exceptionType,
	}
}

func TestApplyServiceExceptions(t *testing.T) {
	tests := []struct {
		name       string
		base       []string
		exceptions []CalendarDate
		want       []string
	}{
		{
			name: "no exceptions keeps the weekday services",
			base: []string{"4610", "4611"},
			want: []string{"4610", "4611"},
		},
		{
			name: "added exception extends the base set",
			base: []string{"4610"},
			exceptions: []CalendarDate{
				exception("9001", ExceptionServiceAdded),
			},
			want: []string{"4610", "9001"},
		},
		{
			name: "removed exception strips a base service",
			base: []string{"4610", "4611"},
			exceptions: []CalendarDate{
				exception("4611", ExceptionServiceRemoved),
			},
			want: []string{"4610"},
		},
		{
			name: "added and removed combine",
			base: []string{"4610", "4611"},
			exceptions: []CalendarDate{
				exception("9001", ExceptionServiceAdded),
				exception("4610", ExceptionServiceRemoved),
			},
			want: []string{"4611", "9001"},
		},
		{
			name: "removing an absent service changes nothing",
			base: []string{"4610"},
			exceptions: []CalendarDate{
				exception("9999", ExceptionServiceRemoved),
			},
			want: []string{"4610"},
		},
		{
			name: "holiday with every service removed",
			base: []string{"4610", "4611"},
			exceptions: []CalendarDate{
				exception("4610", ExceptionServiceRemoved),
				exception("4611", ExceptionServiceRemoved),
			},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got := applyServiceExceptions(tt.base, tt.exceptions)
			sort.Strings(got)
			is.Equal(got, tt.want)
		})
	}
}
