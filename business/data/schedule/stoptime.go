package schedule

import (
	"fmt"

	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// StopTime contains data from a record in a gtfs stop_times.txt file.
// ArrivalTime and DepartureTime are extended clock strings, zero padded
// hh:mm:ss with hours running past midnight up to 28, so lexical comparison
// orders them within a service day.
type StopTime struct {
	DataSetId     int64  `db:"data_set_id" json:"data_set_id"`
	TripId        string `db:"trip_id" json:"trip_id"`
	StopSequence  int    `db:"stop_sequence" json:"stop_sequence"`
	StopId        string `db:"stop_id" json:"stop_id"`
	ArrivalTime   string `db:"arrival_time" json:"arrival_time"`
	DepartureTime string `db:"departure_time" json:"departure_time"`
}

// StationId returns the 7 digit station identifier shared with the realtime
// feed, derived from the stop_id.
func (st *StopTime) StationId() string {
	return stationIdFromStopId(st.StopId)
}

// TrainNum returns the 6 digit train number embedded in the trip_id.
func (st *StopTime) TrainNum() string {
	return trainNumFromTripId(st.TripId)
}

// DayTrainNum builds the realtime range key for day, a yyyymmdd string.
// Empty when the trip_id carries no train number.
func (st *StopTime) DayTrainNum(day string) string {
	trainNum := st.TrainNum()
	if trainNum == "" {
		return ""
	}
	return day + "_" + trainNum
}

// RecordStopTimes saves stopTimes to database in batch, falling back to per
// row upserts when the batch violates a constraint.
func RecordStopTimes(stopTimes []*StopTime, dsTx *DataSetTransaction) error {
	for _, stopTime := range stopTimes {
		stopTime.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into stop_time ( " +
		"data_set_id, " +
		"trip_id, " +
		"stop_sequence, " +
		"stop_id, " +
		"arrival_time, " +
		"departure_time) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":stop_sequence, " +
		":stop_id, " +
		":arrival_time, " +
		":departure_time)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), stopTimes)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, trip_id, stop_id) do update set " +
		"stop_sequence = excluded.stop_sequence, " +
		"arrival_time = excluded.arrival_time, " +
		"departure_time = excluded.departure_time"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, stopTime := range stopTimes {
		if _, err = dsTx.Tx.NamedExec(upsertString, stopTime); err != nil {
			return err
		}
	}
	return nil
}

// StopTimeFilter narrows GetStopTimesForTrips. Zero values leave their
// dimension unfiltered. Departure bounds are extended clock strings and are
// inclusive.
type StopTimeFilter struct {
	StopId         string
	DepartureAfter string
	DepartureUntil string
}

// GetStopTimesForTrips retrieves the stop times of tripIds ordered by trip_id
// and stop_sequence.
func GetStopTimesForTrips(db *sqlx.DB,
	dataSetId int64,
	tripIds []string,
	filter StopTimeFilter) ([]*StopTime, error) {

	if len(tripIds) == 0 {
		return nil, nil
	}
	statementString := "select * from stop_time " +
		"where data_set_id = :data_set_id and trip_id in (:trip_ids)"
	sqlArgMap := map[string]interface{}{
		"data_set_id": dataSetId,
		"trip_ids":    tripIds,
	}
	if filter.StopId != "" {
		statementString += " and stop_id = :stop_id"
		sqlArgMap["stop_id"] = filter.StopId
	}
	if filter.DepartureAfter != "" {
		statementString += " and departure_time >= :departure_after"
		sqlArgMap["departure_after"] = filter.DepartureAfter
	}
	if filter.DepartureUntil != "" {
		statementString += " and departure_time <= :departure_until"
		sqlArgMap["departure_until"] = filter.DepartureUntil
	}
	statementString += " order by trip_id, stop_sequence"

	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, sqlArgMap)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stop times. query:%s error: %w", statementString, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*StopTime
	for rows.Next() {
		stopTime := StopTime{}
		if err = rows.StructScan(&stopTime); err != nil {
			return nil, err
		}
		results = append(results, &stopTime)
	}
	return results, rows.Err()
}
