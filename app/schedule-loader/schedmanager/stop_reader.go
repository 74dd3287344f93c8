package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// stopRowReader implements rowReader for schedule.Stop
type stopRowReader struct {
	batch []*schedule.Stop
}

func (r *stopRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	stop, err := buildStop(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, stop)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *stopRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordStops(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildStop(parser *csvFileParser) (*schedule.Stop, error) {
	stop := schedule.Stop{
		StopId:        parser.getString("stop_id", false),
		StopName:      parser.getString("stop_name", false),
		StopLat:       parser.getFloat64("stop_lat", false),
		StopLon:       parser.getFloat64("stop_lon", false),
		LocationType:  parser.getIntPointer("location_type", true),
		ParentStation: parser.getStringPointer("parent_station", true),
	}
	return &stop, parser.getError()
}
