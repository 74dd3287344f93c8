package schedmanager

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestParserColumnAccessors(t *testing.T) {
	is := is.New(t)

	contents := "trip_id,stop_sequence,departure_time,optional_note\n" +
		"DUASN123456F01001,12,8:05:00,\n"
	parser, err := makeCSVFileParser(strings.NewReader(contents), "stop_times.txt")
	is.NoErr(err)
	is.NoErr(parser.nextLine())

	is.Equal(parser.getString("trip_id", false), "DUASN123456F01001")
	is.Equal(parser.getInt("stop_sequence", false), 12)

	// single digit hours normalize to zero padded form for lexical ordering
	is.Equal(parser.getExtendedTime("departure_time", false), "08:05:00")

	// absent optional values come back empty without an error
	is.Equal(parser.getString("optional_note", true), "")
	is.Equal(parser.getString("not_a_column", true), "")
	is.NoErr(parser.getError())
}

func TestParserCollectsErrors(t *testing.T) {
	is := is.New(t)

	contents := "trip_id,stop_sequence\n" +
		"DUASN123456F01001,not-a-number\n"
	parser, err := makeCSVFileParser(strings.NewReader(contents), "stop_times.txt")
	is.NoErr(err)
	is.NoErr(parser.nextLine())

	is.Equal(parser.getInt("stop_sequence", false), 0)
	parser.getString("stop_id", false)

	err = parser.getError()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "stop_times.txt"))
}

func TestParserRemovesByteOrderMark(t *testing.T) {
	is := is.New(t)

	contents := "\ufeffagency_id,agency_name\nDUA,Transilien\n"
	parser, err := makeCSVFileParser(strings.NewReader(contents), "agency.txt")
	is.NoErr(err)
	is.NoErr(parser.nextLine())

	is.Equal(parser.getString("agency_id", false), "DUA")
	is.NoErr(parser.getError())
}

func TestBuildStopTime(t *testing.T) {
	is := is.New(t)

	contents := "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"DUASN123456F01001,25:31:00,25:32:00,StopPoint:DUA8727613,4\n"
	parser, err := makeCSVFileParser(strings.NewReader(contents), "stop_times.txt")
	is.NoErr(err)
	is.NoErr(parser.nextLine())

	stopTime, err := buildStopTime(parser)
	is.NoErr(err)
	is.Equal(stopTime.TripId, "DUASN123456F01001")
	is.Equal(stopTime.StopId, "StopPoint:DUA8727613")
	is.Equal(stopTime.StopSequence, 4)
	is.Equal(stopTime.ArrivalTime, "25:31:00")
	is.Equal(stopTime.DepartureTime, "25:32:00")
}

func TestBuildCalendar(t *testing.T) {
	is := is.New(t)

	contents := "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"4610,1,1,1,1,1,0,0,20160627,20160930\n"
	parser, err := makeCSVFileParser(strings.NewReader(contents), "calendar.txt")
	is.NoErr(err)
	is.NoErr(parser.nextLine())

	calendar, err := buildCalendar(parser)
	is.NoErr(err)
	is.Equal(calendar.ServiceId, "4610")
	is.Equal(calendar.Monday, 1)
	is.Equal(calendar.Saturday, 0)
	is.True(calendar.StartDate != nil)
	is.Equal(calendar.StartDate.Format("20060102"), "20160627")
	is.True(calendar.EndDate != nil)
	is.Equal(calendar.EndDate.Format("20060102"), "20160930")
}
