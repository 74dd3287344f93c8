package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// tripRowReader implements rowReader for schedule.Trip
type tripRowReader struct {
	batch []*schedule.Trip
}

func (r *tripRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	trip, err := buildTrip(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, trip)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *tripRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordTrips(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildTrip(parser *csvFileParser) (*schedule.Trip, error) {
	trip := schedule.Trip{
		TripId:       parser.getString("trip_id", false),
		RouteId:      parser.getString("route_id", false),
		ServiceId:    parser.getString("service_id", false),
		TripHeadsign: parser.getStringPointer("trip_headsign", true),
		DirectionId:  parser.getStringPointer("direction_id", true),
	}
	return &trip, parser.getError()
}
