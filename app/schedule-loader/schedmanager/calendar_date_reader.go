package schedmanager

import (
	"fmt"

	"github.com/suburail/delaycast/business/data/schedule"
)

// calendarDateRowReader implements rowReader for schedule.CalendarDate
type calendarDateRowReader struct {
	batch []*schedule.CalendarDate
}

func (r *calendarDateRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	calendarDate, err := buildCalendarDate(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, calendarDate)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *calendarDateRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordCalendarDates(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildCalendarDate(parser *csvFileParser) (*schedule.CalendarDate, error) {
	date := parser.getDatePointer("date", false)
	exceptionType := parser.getInt("exception_type", false)
	if exceptionType != schedule.ExceptionServiceAdded && exceptionType != schedule.ExceptionServiceRemoved {
		return nil, fmt.Errorf("unexpected exception_type %d", exceptionType)
	}
	calendarDate := schedule.CalendarDate{
		ServiceId:     parser.getString("service_id", false),
		ExceptionType: exceptionType,
	}
	if date != nil {
		calendarDate.Date = *date
	}
	return &calendarDate, parser.getError()
}
