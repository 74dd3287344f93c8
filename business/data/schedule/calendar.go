package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// Calendar contains data from a record in a gtfs calendar.txt file
type Calendar struct {
	DataSetId int64      `db:"data_set_id" json:"data_set_id"`
	ServiceId string     `db:"service_id" json:"service_id"`
	Monday    int        `json:"monday"`
	Tuesday   int        `json:"tuesday"`
	Wednesday int        `json:"wednesday"`
	Thursday  int        `json:"thursday"`
	Friday    int        `json:"friday"`
	Saturday  int        `json:"saturday"`
	Sunday    int        `json:"sunday"`
	StartDate *time.Time `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date"`
}

const (
	// ExceptionServiceAdded marks a calendar_date row adding service on its date.
	ExceptionServiceAdded = 1
	// ExceptionServiceRemoved marks a calendar_date row removing service on its date.
	ExceptionServiceRemoved = 2
)

// CalendarDate contains data from a record in a gtfs calendar_dates.txt file
type CalendarDate struct {
	DataSetId     int64     `db:"data_set_id" json:"data_set_id"`
	ServiceId     string    `db:"service_id" json:"service_id"`
	Date          time.Time `json:"date"`
	ExceptionType int       `db:"exception_type" json:"exception_type"`
}

// RecordCalendars saves calendars to database in batch, falling back to per
// row upserts when the batch violates a constraint.
func RecordCalendars(calendars []*Calendar, dsTx *DataSetTransaction) error {
	for _, calendar := range calendars {
		calendar.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into calendar ( " +
		"data_set_id, " +
		"service_id, " +
		"monday, " +
		"tuesday, " +
		"wednesday, " +
		"thursday, " +
		"friday, " +
		"saturday, " +
		"sunday, " +
		"start_date," +
		"end_date) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":monday, " +
		":tuesday, " +
		":wednesday, " +
		":thursday, " +
		":friday, " +
		":saturday, " +
		":sunday, " +
		":start_date," +
		":end_date) "
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), calendars)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, service_id) do update set " +
		"monday = excluded.monday, " +
		"tuesday = excluded.tuesday, " +
		"wednesday = excluded.wednesday, " +
		"thursday = excluded.thursday, " +
		"friday = excluded.friday, " +
		"saturday = excluded.saturday, " +
		"sunday = excluded.sunday, " +
		"start_date = excluded.start_date, " +
		"end_date = excluded.end_date"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, calendar := range calendars {
		if _, err = dsTx.Tx.NamedExec(upsertString, calendar); err != nil {
			return err
		}
	}
	return nil
}

// RecordCalendarDates saves calendar dates to database in batch, falling back
// to per row upserts when the batch violates a constraint.
func RecordCalendarDates(calendarDates []*CalendarDate, dsTx *DataSetTransaction) error {
	for _, calendarDate := range calendarDates {
		calendarDate.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into calendar_date ( " +
		"data_set_id, " +
		"service_id, " +
		"date, " +
		"exception_type) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":date, " +
		":exception_type)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), calendarDates)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, service_id, date) do update set " +
		"exception_type = excluded.exception_type"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, calendarDate := range calendarDates {
		if _, err = dsTx.Tx.NamedExec(upsertString, calendarDate); err != nil {
			return err
		}
	}
	return nil
}

// GetActiveServiceIds retrieves the active serviceIds on serviceDay, a
// yyyymmdd day. Base weekday services inside their validity window are
// extended with added exceptions and stripped of removed exceptions.
func GetActiveServiceIds(db *sqlx.DB, dataSet *DataSet, serviceDay string) ([]string, error) {
	dayDate, err := daytime.ParseDay(serviceDay)
	if err != nil {
		return nil, fmt.Errorf("bad service day %q: %w", serviceDay, err)
	}

	// the calendar week day columns are named after the english weekdays
	weekday := strings.ToLower(dayDate.Weekday().String())

	query := fmt.Sprintf("select service_id from calendar where data_set_id = $1 "+
		"and $2 between start_date and end_date "+
		"and %s = 1", weekday)
	var calendarServiceKeys []string
	err = db.Select(&calendarServiceKeys, query, dataSet.Id, dayDate)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve service_ids from calendar table. query:%s error: %w", query, err)
	}

	var calendarDates []CalendarDate
	query = "select * from calendar_date where data_set_id = $1 and date = $2"
	err = db.Select(&calendarDates, query, dataSet.Id, dayDate)
	if err != nil {
		return nil, fmt.Errorf("unable to query calendar_date table. query:%s error: %w", query, err)
	}

	return applyServiceExceptions(calendarServiceKeys, calendarDates), nil
}

// applyServiceExceptions resolves the day's service set from the base weekday
// services and its calendar_date exception rows, adding type 1 rows and
// removing type 2 rows. Removing a service the base set never held is a no-op.
func applyServiceExceptions(baseServiceIds []string, exceptions []CalendarDate) []string {
	serviceIdMap := make(map[string]bool, len(baseServiceIds))
	for _, serviceId := range baseServiceIds {
		serviceIdMap[serviceId] = true
	}
	for _, exception := range exceptions {
		switch exception.ExceptionType {
		case ExceptionServiceAdded:
			serviceIdMap[exception.ServiceId] = true
		case ExceptionServiceRemoved:
			delete(serviceIdMap, exception.ServiceId)
		}
	}
	return trueStringsFromMap(serviceIdMap)
}

// GetCalendarsByServiceId loads the calendars with serviceIds into a map keyed
// by service_id.
func GetCalendarsByServiceId(db *sqlx.DB, dataSetId int64, serviceIds []string) (map[string]*Calendar, error) {
	results := make(map[string]*Calendar)
	if len(serviceIds) == 0 {
		return results, nil
	}
	statementString := "select * from calendar where data_set_id = :data_set_id and service_id in (:service_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"service_ids": serviceIds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		calendar := Calendar{}
		if err = rows.StructScan(&calendar); err != nil {
			return nil, err
		}
		results[calendar.ServiceId] = &calendar
	}
	return results, rows.Err()
}

func trueStringsFromMap(stringMap map[string]bool) []string {
	results := make([]string, 0, len(stringMap))
	for key, value := range stringMap {
		if value {
			results = append(results, key)
		}
	}
	return results
}
