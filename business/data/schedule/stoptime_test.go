package schedule

import (
	"testing"

	"github.com/matryer/is"
)

func TestStopTimeDerivedKeys(t *testing.T) {
	tests := []struct {
		name            string
		stopTime        StopTime
		wantStationId   string
		wantTrainNum    string
		wantDayTrainNum string
	}{
		{
			name: "regular identifiers",
			stopTime: StopTime{
				TripId: "DUASN123456F01001-1_408503",
				StopId: "StopPoint:DUA8727613",
			},
			wantStationId:   "8727613",
			wantTrainNum:    "123456",
			wantDayTrainNum: "20160630_123456",
		},
		{
			name: "trip id too short for a train number",
			stopTime: StopTime{
				TripId: "DUA12",
				StopId: "StopPoint:DUA8727613",
			},
			wantStationId:   "8727613",
			wantTrainNum:    "",
			wantDayTrainNum: "",
		},
		{
			name: "stop id too short for a station",
			stopTime: StopTime{
				TripId: "DUASN123456F01001",
				StopId: "123",
			},
			wantStationId:   "",
			wantTrainNum:    "123456",
			wantDayTrainNum: "20160630_123456",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(tt.stopTime.StationId(), tt.wantStationId)
			is.Equal(tt.stopTime.TrainNum(), tt.wantTrainNum)
			is.Equal(tt.stopTime.DayTrainNum("20160630"), tt.wantDayTrainNum)
		})
	}
}

func TestTripTrainNum(t *testing.T) {
	is := is.New(t)

	trip := Trip{TripId: "DUASN847512F01001-1_408503"}
	is.Equal(trip.TrainNum(), "847512")

	trip = Trip{TripId: "short"}
	is.Equal(trip.TrainNum(), "")
}

func TestStopStationId(t *testing.T) {
	is := is.New(t)

	stop := Stop{StopId: "StopPoint:DUA8727613"}
	is.Equal(stop.StationId(), "8727613")
}
