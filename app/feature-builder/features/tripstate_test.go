package features

import (
	"fmt"
	logger "log"
	"os"
	"testing"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/business/data/schedule"

	"github.com/matryer/is"
)

func testLogger() *logger.Logger {
	return logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
}

func testJoined(tripId string, stopId string, sequence int, departure string,
	route *schedule.Route, passage *realtime.Passage) *JoinedResult {

	return &JoinedResult{
		Scheduled: &schedule.ScheduledStop{
			Day: "20160630",
			StopTime: &schedule.StopTime{
				TripId:        tripId,
				StopId:        stopId,
				StopSequence:  sequence,
				ArrivalTime:   departure,
				DepartureTime: departure,
			},
			Route: route,
		},
		Realtime:    passage,
		HasRealtime: passage != nil,
	}
}

func testPassage(expectedTime string) *realtime.Passage {
	return &realtime.Passage{
		ExpectedPassageDay:  "20160630",
		ExpectedPassageTime: expectedTime,
	}
}

// tenStopTrip builds a trip departing every 10 minutes from 08:00, with a
// realtime passage one minute late at the first four stops and one expected
// ahead at the sixth.
func tenStopTrip(route *schedule.Route) []*JoinedResult {
	var joined []*JoinedResult
	for sequence := 0; sequence < 10; sequence++ {
		departure := fmt.Sprintf("%02d:%02d:00", 8+(sequence/6), (sequence%6)*10)
		var passage *realtime.Passage
		if sequence <= 3 {
			passage = testPassage(fmt.Sprintf("08:%02d:00", sequence*10+1))
		}
		if sequence == 5 {
			passage = testPassage("08:51:00")
		}
		joined = append(joined, testJoined("DUASN111111F01",
			fmt.Sprintf("StopPoint:DUA872760%d", sequence), sequence, departure, route, passage))
	}
	return joined
}

func TestComputeTripStates(t *testing.T) {
	is := is.New(t)

	route := &schedule.Route{RouteShortName: "L"}
	at := time.Date(2016, 6, 30, 8, 35, 0, 0, daytime.NetworkLocation())

	rows := ComputeTripStates(testLogger(), "20160630", at, DefaultMedianWindow, tenStopTrip(route))
	is.Equal(len(rows), 10)

	// four of ten scheduled departures have gone by
	for _, row := range rows {
		is.Equal(row.TripStatus, 0.4)
		is.Equal(row.TotalSequence, 10)
		is.Equal(row.RollingTripsOnLine, 1)
	}

	first := rows[0]
	is.True(first.PassedSchedule)
	is.True(first.PassedRealtime)
	is.True(first.ObservedDelay != nil)
	is.Equal(*first.ObservedDelay, 60)
	is.True(!first.Predictable)

	// the train was last seen at stop 3
	is.True(first.LastSequenceNumber != nil)
	is.Equal(*first.LastSequenceNumber, 3)
	is.True(first.LastObservedDelay != nil)
	is.Equal(*first.LastObservedDelay, 60)
	is.Equal(first.LastObservedScheduledDeparture, "08:30:00")

	// stop 5 is expected one minute late but has not gone by yet
	fifth := rows[5]
	is.True(!fifth.PassedRealtime)
	is.True(fifth.ExpectedDelay != nil)
	is.Equal(*fifth.ExpectedDelay, 60)
	is.True(fifth.Predictable)

	// stop 7 sits four stops and 40 scheduled minutes past the last sighting
	seventh := rows[7]
	is.True(seventh.SequenceDiff != nil)
	is.Equal(*seventh.SequenceDiff, 4)
	is.True(seventh.StationsScheduledTripTime != nil)
	is.Equal(*seventh.StationsScheduledTripTime, 2400)
	is.True(seventh.Predictable)

	// only passages inside the trailing window feed the medians
	is.True(first.LineMedianDelay != nil)
	is.Equal(*first.LineMedianDelay, 60.0)
	is.True(first.StationMedianDelay == nil)
	is.True(rows[2].StationMedianDelay != nil)
	is.Equal(*rows[2].StationMedianDelay, 60.0)
	is.True(seventh.StationMedianDelay == nil)
}

func TestBackPropagateRealtime(t *testing.T) {
	is := is.New(t)

	route := &schedule.Route{RouteShortName: "J"}
	joined := []*JoinedResult{
		testJoined("DUASN222222F01", "StopPoint:DUA8727601", 0, "08:00:00", route, testPassage("08:01:00")),
		testJoined("DUASN222222F01", "StopPoint:DUA8727602", 1, "08:10:00", route, nil),
		testJoined("DUASN222222F01", "StopPoint:DUA8727603", 2, "08:20:00", route, testPassage("08:21:00")),
		testJoined("DUASN222222F01", "StopPoint:DUA8727604", 3, "08:30:00", route, nil),
	}
	at := time.Date(2016, 6, 30, 8, 25, 0, 0, daytime.NetworkLocation())

	rows := ComputeTripStates(testLogger(), "20160630", at, DefaultMedianWindow, joined)

	// the silent stop before the last sighting must have been passed
	is.True(rows[1].PassedRealtime)
	is.True(!rows[1].Predictable)

	// the silent stop ahead of the last sighting stays open
	is.True(!rows[3].PassedRealtime)
	is.True(rows[3].Predictable)
}

func TestCompletedTripIsNotPredictable(t *testing.T) {
	is := is.New(t)

	route := &schedule.Route{RouteShortName: "L"}
	joined := []*JoinedResult{
		testJoined("DUASN333333F01", "StopPoint:DUA8727601", 0, "07:00:00", route, testPassage("07:01:00")),
		testJoined("DUASN333333F01", "StopPoint:DUA8727602", 1, "07:10:00", route, testPassage("07:11:00")),
	}
	at := time.Date(2016, 6, 30, 9, 0, 0, 0, daytime.NetworkLocation())

	rows := ComputeTripStates(testLogger(), "20160630", at, DefaultMedianWindow, joined)

	for _, row := range rows {
		is.Equal(row.TripStatus, 1.0)
		is.True(row.LastSequenceNumber == nil)
		is.True(!row.Predictable)
		is.Equal(row.RollingTripsOnLine, 0)
	}
}

func TestMedian(t *testing.T) {
	is := is.New(t)
	is.Equal(median([]float64{3, 1, 2}), 2.0)
	is.Equal(median([]float64{4, 1, 3, 2}), 2.5)
	is.Equal(median([]float64{7}), 7.0)
}
