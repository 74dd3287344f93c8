package features

import (
	"strings"
	"testing"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/schedule"
	"github.com/suburail/delaycast/foundation/bucket"

	"github.com/matryer/is"
)

// labeledDay builds two trips on line L. The first was last seen two minutes
// late at stop 3 and is expected three minutes late at stop 5. The second has
// already passed the fifth stop's station inside the median window, so the
// station median is defined for it.
func labeledDay(route *schedule.Route) []*JoinedResult {
	joined := []*JoinedResult{
		testJoined("DUASN111111F01", "StopPoint:DUA8727600", 0, "08:00:00", route, testPassage("08:02:00")),
		testJoined("DUASN111111F01", "StopPoint:DUA8727601", 1, "08:10:00", route, testPassage("08:12:00")),
		testJoined("DUASN111111F01", "StopPoint:DUA8727602", 2, "08:20:00", route, testPassage("08:22:00")),
		testJoined("DUASN111111F01", "StopPoint:DUA8727603", 3, "08:30:00", route, testPassage("08:32:00")),
		testJoined("DUASN111111F01", "StopPoint:DUA8727604", 4, "08:40:00", route, nil),
		testJoined("DUASN111111F01", "StopPoint:DUA8727605", 5, "08:50:00", route, testPassage("08:53:00")),
		testJoined("DUASN111111F01", "StopPoint:DUA8727606", 6, "09:00:00", route, nil),
	}
	joined = append(joined,
		testJoined("DUASN222222F01", "StopPoint:DUA8727605", 2, "08:20:00", route, testPassage("08:22:00")),
		testJoined("DUASN222222F01", "StopPoint:DUA8727699", 3, "09:30:00", route, nil),
	)
	return joined
}

func TestTrainingRows(t *testing.T) {
	is := is.New(t)

	route := &schedule.Route{RouteShortName: "L"}
	at := time.Date(2016, 6, 30, 8, 35, 0, 0, daytime.NetworkLocation())
	now := time.Date(2016, 6, 30, 23, 0, 0, 0, daytime.NetworkLocation())

	artifacts := bucket.NewMemory()
	builder := NewBuilder(testLogger(), nil, nil, artifacts, DefaultMedianWindow)

	stateRows := ComputeTripStates(testLogger(), "20160630", at, DefaultMedianWindow, labeledDay(route))
	rows := builder.trainingRows("20160630", at, now, stateRows)

	// only the stop with a defined station median and a known label survives
	is.Equal(len(rows), 1)
	row := rows[0]
	is.Equal(row.TripId, "DUASN111111F01")
	is.Equal(row.StopId, "StopPoint:DUA8727605")
	is.Equal(row.TripIdIx, row.TripId)
	is.Equal(row.StopIdIx, row.StopId)
	is.Equal(row.RouteShortName, "L")
	is.Equal(row.AtDatetime, "2016-06-30 08:35:00")

	is.Equal(row.LastObservedDelay, 120.0)
	is.Equal(row.SequenceDiff, 2)
	is.Equal(row.BetweenStationsScheduledTripTime, 1200)
	is.Equal(row.PredictedStationMedianDelay, 120.0)
	is.Equal(row.LineMedianDelay, 120.0)
	is.Equal(row.RollingTripsOnLine, 2)

	// 2016-06-30 is an ordinary thursday
	is.Equal(row.BusinessDay, 1)

	// the train arrived three minutes late where two were expected
	is.Equal(row.Label, 180.0)
	is.Equal(row.LabelEv, 60.0)
	is.Equal(row.NaivePredMae, 60.0)
	is.Equal(row.NaivePredMse, 3600.0)
}

func TestTrainingRowsSkipUnknownLabels(t *testing.T) {
	is := is.New(t)

	route := &schedule.Route{RouteShortName: "L"}
	at := time.Date(2016, 6, 30, 8, 35, 0, 0, daytime.NetworkLocation())

	// a snapshot taken before the passage went by cannot label it
	now := time.Date(2016, 6, 30, 8, 40, 0, 0, daytime.NetworkLocation())

	builder := NewBuilder(testLogger(), nil, nil, bucket.NewMemory(), DefaultMedianWindow)
	stateRows := ComputeTripStates(testLogger(), "20160630", at, DefaultMedianWindow, labeledDay(route))
	is.Equal(len(builder.trainingRows("20160630", at, now, stateRows)), 0)
}

func TestSweepInstants(t *testing.T) {
	is := is.New(t)

	instants, err := SweepInstants("20160630")
	is.NoErr(err)

	// hourly from 05:00, 23:45 cuts the sweep off after 23:00
	is.Equal(len(instants), 19)
	is.Equal(instants[0].Hour(), 5)
	is.Equal(instants[len(instants)-1].Hour(), 23)
	is.Equal(instants[0].Day(), 30)
}

func TestWriteCSV(t *testing.T) {
	is := is.New(t)

	artifacts := bucket.NewMemory()
	builder := NewBuilder(testLogger(), nil, nil, artifacts, DefaultMedianWindow)

	rows := []*TrainingRow{{
		FeatureRow: FeatureRow{TripId: "DUASN111111F01", StopId: "StopPoint:DUA8727605"},
		Label:      180,
		LabelEv:    60,
	}}
	is.NoErr(builder.writeCSV("20160630/training_matrix.csv", &rows))

	content, err := artifacts.Get("20160630/training_matrix.csv")
	is.NoErr(err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	is.Equal(len(lines), 2)
	is.True(strings.Contains(lines[0], "label_ev"))
	is.True(strings.Contains(lines[1], "DUASN111111F01"))
}
