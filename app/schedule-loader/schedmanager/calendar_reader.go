package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// calendarRowReader implements rowReader for schedule.Calendar
type calendarRowReader struct {
	batch []*schedule.Calendar
}

func (r *calendarRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	calendar, err := buildCalendar(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, calendar)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *calendarRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordCalendars(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildCalendar(parser *csvFileParser) (*schedule.Calendar, error) {
	calendar := schedule.Calendar{
		ServiceId: parser.getString("service_id", false),
		Monday:    parser.getInt("monday", false),
		Tuesday:   parser.getInt("tuesday", false),
		Wednesday: parser.getInt("wednesday", false),
		Thursday:  parser.getInt("thursday", false),
		Friday:    parser.getInt("friday", false),
		Saturday:  parser.getInt("saturday", false),
		Sunday:    parser.getInt("sunday", false),
		StartDate: parser.getDatePointer("start_date", false),
		EndDate:   parser.getDatePointer("end_date", false),
	}
	return &calendar, parser.getError()
}
