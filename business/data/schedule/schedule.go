// Package schedule provides CRUD functionality and day level queries over the
// gtfs schedule tables.
package schedule

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNoSchedule indicates no usable gtfs schedule is available, either because
// the canonical gtfs directory is incomplete or because no DataSet has been saved.
var ErrNoSchedule = errors.New("no gtfs schedule loaded")

// DataSetTransaction contains required data for recording new gtfs records owned by a DataSet
type DataSetTransaction struct {
	DS DataSet
	Tx *sqlx.Tx
}

// DataSet encompasses a gtfs schedule loaded from the publisher at a point in time.
// Each record from a gtfs file shares the DataSet.Id value as part of the primary key.
type DataSet struct {
	Id           int64
	URL          string
	DownloadedAt time.Time  `db:"downloaded_at"`
	SavedAt      *time.Time `db:"saved_at"`
}

func (d DataSet) String() string {
	return fmt.Sprintf("DataSet Id:%d, url:%s, downloaded:%s savedAt:%s",
		d.Id, d.URL, formatTime(&d.DownloadedAt), formatTime(d.SavedAt))
}

func formatTime(time *time.Time) string {
	if time == nil {
		return ""
	}
	return time.Format("2006-01-02T15:04:05")
}

// SaveDataSet saves new or updates existing DataSets. Existing records are determined by a non-zero DataSet.Id
func SaveDataSet(tx *sqlx.Tx, ds *DataSet) error {
	statementString := "insert into data_set ( " +
		"url, " +
		"downloaded_at, " +
		"saved_at) " +
		"values (" +
		":url, " +
		":downloaded_at, " +
		":saved_at)"
	if ds.Id != 0 {
		statementString = "update data_set set " +
			"url = :url, " +
			"downloaded_at = :downloaded_at, " +
			"saved_at = :saved_at " +
			" where id = :id"
	}

	statementString = tx.Rebind(statementString)
	_, err := tx.NamedExec(statementString, ds)
	if err != nil {
		return err
	}
	// retrieve new id if zero
	if ds.Id == 0 {
		statementString = tx.Rebind("SELECT id FROM data_set " +
			"where url = ? " +
			"and downloaded_at = ? order by id desc limit 1")
		err = tx.Get(&ds.Id, statementString, ds.URL, ds.DownloadedAt)
		if err != nil {
			return err
		}
	}

	return err
}

// MarkDataSetSaved stamps ds with savedAt inside the loading transaction,
// making it the one future queries resolve to.
func MarkDataSetSaved(tx *sqlx.Tx, ds *DataSet, savedAt time.Time) error {
	ds.SavedAt = &savedAt
	return SaveDataSet(tx, ds)
}

// GetDataSet retrieves DataSet with dataSetId
func GetDataSet(db *sqlx.DB, dataSetId int64) (*DataSet, error) {
	query := "select * from data_set where id = $1"
	ds := DataSet{}
	err := db.Get(&ds, db.Rebind(query), dataSetId)
	return &ds, err
}

// GetLatestSavedDataSet retrieves the latest DataSet with a saved_at date.
// Returns ErrNoSchedule when none has ever been saved.
func GetLatestSavedDataSet(db *sqlx.DB) (*DataSet, error) {
	query := "select * from data_set where saved_at is not null order by saved_at desc, downloaded_at desc limit 1"
	ds := DataSet{}
	err := db.Get(&ds, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSchedule
	}
	return &ds, err
}

// GetAllDataSets retrieves all DataSets currently loaded
func GetAllDataSets(db *sqlx.DB) ([]DataSet, error) {
	query := "select * from data_set"
	var results []DataSet
	err := db.Select(&results, query)
	return results, err
}

// DeleteDataSetContents removes every gtfs row owned by dataSetId, the
// data_set row included. Used when replacing or discarding a schedule.
func DeleteDataSetContents(tx *sqlx.Tx, dataSetId int64) (map[string]int64, error) {
	deleteStatements := []struct {
		name  string
		query string
	}{
		{"stop_time", "delete from stop_time where data_set_id = ?"},
		{"trip", "delete from trip where data_set_id = ?"},
		{"stop", "delete from stop where data_set_id = ?"},
		{"route", "delete from route where data_set_id = ?"},
		{"agency", "delete from agency where data_set_id = ?"},
		{"calendar", "delete from calendar where data_set_id = ?"},
		{"calendar_date", "delete from calendar_date where data_set_id = ?"},
		{"data_set", "delete from data_set where id = ?"},
	}
	rowsDeleted := make(map[string]int64)
	for _, deleteStatement := range deleteStatements {
		result, err := tx.Exec(tx.Rebind(deleteStatement.query), dataSetId)
		if err != nil {
			return rowsDeleted, fmt.Errorf("error running '%s' error:%w", deleteStatement.query, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return rowsDeleted, fmt.Errorf("error retrieving rows affected after '%s' error:%w",
				deleteStatement.query, err)
		}
		rowsDeleted[deleteStatement.name] = rows
	}
	return rowsDeleted, nil
}
