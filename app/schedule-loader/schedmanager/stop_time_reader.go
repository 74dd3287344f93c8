package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// stopTimeRowReader implements rowReader for schedule.StopTime
type stopTimeRowReader struct {
	batch []*schedule.StopTime
}

func (r *stopTimeRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	stopTime, err := buildStopTime(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, stopTime)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *stopTimeRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordStopTimes(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildStopTime(parser *csvFileParser) (*schedule.StopTime, error) {
	stopTime := schedule.StopTime{
		TripId:        parser.getString("trip_id", false),
		StopId:        parser.getString("stop_id", false),
		StopSequence:  parser.getInt("stop_sequence", false),
		ArrivalTime:   parser.getExtendedTime("arrival_time", false),
		DepartureTime: parser.getExtendedTime("departure_time", false),
	}
	return &stopTime, parser.getError()
}
