package schedule

import (
	"fmt"

	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// Stop contains data from a record in a gtfs stops.txt file
type Stop struct {
	DataSetId     int64   `db:"data_set_id" json:"data_set_id"`
	StopId        string  `db:"stop_id" json:"stop_id"`
	StopName      string  `db:"stop_name" json:"stop_name"`
	StopLat       float64 `db:"stop_lat" json:"stop_lat"`
	StopLon       float64 `db:"stop_lon" json:"stop_lon"`
	LocationType  *int    `db:"location_type" json:"location_type"`
	ParentStation *string `db:"parent_station" json:"parent_station"`
}

// StationId returns the 7 digit station identifier shared with the realtime
// feed, the last seven characters of the stop_id.
func (s *Stop) StationId() string {
	return stationIdFromStopId(s.StopId)
}

func stationIdFromStopId(stopId string) string {
	if len(stopId) < 7 {
		return ""
	}
	return stopId[len(stopId)-7:]
}

// RecordStops saves stops to database in batch, falling back to per row
// upserts when the batch violates a constraint.
func RecordStops(stops []*Stop, dsTx *DataSetTransaction) error {
	for _, stop := range stops {
		stop.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into stop ( " +
		"data_set_id, " +
		"stop_id, " +
		"stop_name, " +
		"stop_lat, " +
		"stop_lon, " +
		"location_type, " +
		"parent_station) " +
		"values (" +
		":data_set_id, " +
		":stop_id, " +
		":stop_name, " +
		":stop_lat, " +
		":stop_lon, " +
		":location_type, " +
		":parent_station)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), stops)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, stop_id) do update set " +
		"stop_name = excluded.stop_name, " +
		"stop_lat = excluded.stop_lat, " +
		"stop_lon = excluded.stop_lon, " +
		"location_type = excluded.location_type, " +
		"parent_station = excluded.parent_station"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, stop := range stops {
		if _, err = dsTx.Tx.NamedExec(upsertString, stop); err != nil {
			return err
		}
	}
	return nil
}

// GetStops retrieves stops of dataSet. When onRouteShortName is non-empty only
// stops touched by that route are returned, resolved through
// stop_time -> trip -> route.
func GetStops(db *sqlx.DB, dataSet *DataSet, onRouteShortName string) ([]Stop, error) {
	if onRouteShortName == "" {
		var results []Stop
		query := "select * from stop where data_set_id = $1 order by stop_id"
		err := db.Select(&results, query, dataSet.Id)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve stops. query:%s error: %w", query, err)
		}
		return results, nil
	}

	statementString := "select distinct on (stop.stop_id) stop.* from stop " +
		"join stop_time on stop_time.data_set_id = stop.data_set_id and stop_time.stop_id = stop.stop_id " +
		"join trip on trip.data_set_id = stop.data_set_id and trip.trip_id = stop_time.trip_id " +
		"join route on route.data_set_id = stop.data_set_id and route.route_id = trip.route_id " +
		"where stop.data_set_id = :data_set_id and route.route_short_name = :route_short_name " +
		"order by stop.stop_id"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id":      dataSet.Id,
		"route_short_name": onRouteShortName,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stops on route %s. error: %w", onRouteShortName, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []Stop
	for rows.Next() {
		stop := Stop{}
		if err = rows.StructScan(&stop); err != nil {
			return nil, err
		}
		results = append(results, stop)
	}
	return results, rows.Err()
}

// GetStopsById loads the stops with stopIds into a map keyed by stop_id.
func GetStopsById(db *sqlx.DB, dataSetId int64, stopIds []string) (map[string]*Stop, error) {
	results := make(map[string]*Stop)
	if len(stopIds) == 0 {
		return results, nil
	}
	statementString := "select * from stop where data_set_id = :data_set_id and stop_id in (:stop_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"stop_ids":    stopIds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		stop := Stop{}
		if err = rows.StructScan(&stop); err != nil {
			return nil, err
		}
		results[stop.StopId] = &stop
	}
	return results, rows.Err()
}
