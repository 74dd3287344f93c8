package schedule

import (
	"testing"

	"github.com/matryer/is"
)

func testStopTime(tripId string, stopId string, sequence int, departure string) *StopTime {
	return &StopTime{
		TripId:        tripId,
		StopId:        stopId,
		StopSequence:  sequence,
		ArrivalTime:   departure,
		DepartureTime: departure,
	}
}

func TestActiveTripIds(t *testing.T) {
	tripA := []*StopTime{
		testStopTime("DUASN111111F01", "StopPoint:DUA8727601", 0, "08:00:00"),
		testStopTime("DUASN111111F01", "StopPoint:DUA8727602", 1, "08:30:00"),
		testStopTime("DUASN111111F01", "StopPoint:DUA8727603", 2, "09:00:00"),
	}
	tripB := []*StopTime{
		testStopTime("DUASN222222F01", "StopPoint:DUA8727601", 0, "10:00:00"),
		testStopTime("DUASN222222F01", "StopPoint:DUA8727603", 1, "11:00:00"),
	}
	all := append(append([]*StopTime{}, tripA...), tripB...)

	tests := []struct {
		name  string
		clock string
		want  []string
	}{
		{
			name:  "before every trip",
			clock: "07:00:00",
			want:  nil,
		},
		{
			name:  "first trip underway",
			clock: "08:15:00",
			want:  []string{"DUASN111111F01"},
		},
		{
			name:  "boundary instant keeps the departing trip",
			clock: "10:00:00",
			want:  []string{"DUASN222222F01"},
		},
		{
			name:  "between trips",
			clock: "09:30:00",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got := activeTripIds(all, tt.clock)
			is.Equal(len(got), len(tt.want))
			for _, tripId := range tt.want {
				is.True(got[tripId])
			}
		})
	}
}

func TestActiveTripWindowSpansWholeTrip(t *testing.T) {
	is := is.New(t)

	// a stop filter would later keep only the 08:30 row; the underway test
	// must still see the trip's 08:00 to 09:00 span
	full := []*StopTime{
		testStopTime("DUASN111111F01", "StopPoint:DUA8727601", 0, "08:00:00"),
		testStopTime("DUASN111111F01", "StopPoint:DUA8727602", 1, "08:30:00"),
		testStopTime("DUASN111111F01", "StopPoint:DUA8727603", 2, "09:00:00"),
	}
	active := activeTripIds(full, "08:15:00")
	is.True(active["DUASN111111F01"])

	// the filtered row alone would degenerate the window to a single instant
	filtered := full[1:2]
	is.Equal(len(activeTripIds(filtered, "08:15:00")), 0)
}

func TestDedupeByRealtimeKey(t *testing.T) {
	is := is.New(t)

	first := testStopTime("DUASN111111F01", "StopPoint:DUA8727601", 0, "08:00:00")
	duplicate := testStopTime("DUASN111111F02", "StopPoint:DUA8727601", 3, "09:00:00")
	noStation := testStopTime("DUASN333333F01", "123", 0, "08:10:00")
	noTrain := testStopTime("DUA", "StopPoint:DUA8727602", 0, "08:20:00")
	other := testStopTime("DUASN222222F01", "StopPoint:DUA8727602", 0, "08:30:00")

	results := dedupeByRealtimeKey("20160630",
		[]*StopTime{first, duplicate, noStation, noTrain, other}, LevelEntity)

	// null derived keys drop, colliding keys keep the first row
	is.Equal(len(results), 2)
	is.Equal(results[0].StopTime, first)
	is.Equal(results[0].StationId, "8727601")
	is.Equal(results[0].DayTrainNum, "20160630_111111")
	is.Equal(results[1].StopTime, other)

	// id level carries keys only
	idResults := dedupeByRealtimeKey("20160630", []*StopTime{first}, LevelID)
	is.Equal(len(idResults), 1)
	is.True(idResults[0].StopTime == nil)
	is.Equal(idResults[0].StationId, "8727601")
}
