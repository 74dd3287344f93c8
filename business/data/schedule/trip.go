package schedule

import (
	"fmt"

	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// Trip contains data from a gtfs trip definition in a trips.txt file
type Trip struct {
	DataSetId    int64   `db:"data_set_id" json:"data_set_id"`
	TripId       string  `db:"trip_id" json:"trip_id"`
	RouteId      string  `db:"route_id" json:"route_id"`
	ServiceId    string  `db:"service_id" json:"service_id"`
	TripHeadsign *string `db:"trip_headsign" json:"trip_headsign"`
	DirectionId  *string `db:"direction_id" json:"direction_id"`
}

// trainNum positions inside a trip_id, the vendor train number the realtime
// feed keys on.
const (
	trainNumStart = 5
	trainNumEnd   = 11
)

// TrainNum returns the 6 digit train number embedded in the trip_id, empty
// when the trip_id is too short to carry one.
func (t *Trip) TrainNum() string {
	return trainNumFromTripId(t.TripId)
}

func trainNumFromTripId(tripId string) string {
	if len(tripId) < trainNumEnd {
		return ""
	}
	return tripId[trainNumStart:trainNumEnd]
}

// RecordTrips saves trips to database in batch, falling back to per row
// upserts when the batch violates a constraint.
func RecordTrips(trips []*Trip, dsTx *DataSetTransaction) error {
	for _, trip := range trips {
		trip.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into trip ( " +
		"data_set_id, " +
		"trip_id, " +
		"route_id, " +
		"service_id, " +
		"trip_headsign, " +
		"direction_id) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":route_id, " +
		":service_id, " +
		":trip_headsign, " +
		":direction_id)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), trips)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, trip_id) do update set " +
		"route_id = excluded.route_id, " +
		"service_id = excluded.service_id, " +
		"trip_headsign = excluded.trip_headsign, " +
		"direction_id = excluded.direction_id"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, trip := range trips {
		if _, err = dsTx.Tx.NamedExec(upsertString, trip); err != nil {
			return err
		}
	}
	return nil
}

// GetTripsForServiceIds retrieves all trips of dataSet whose service_id is in
// serviceIds, optionally restricted to trips of one route short name.
func GetTripsForServiceIds(db *sqlx.DB,
	dataSet *DataSet,
	serviceIds []string,
	routeShortName string) ([]*Trip, error) {

	if len(serviceIds) == 0 {
		return nil, nil
	}
	statementString := "select trip.* from trip " +
		"where trip.data_set_id = :data_set_id and trip.service_id in (:service_ids)"
	sqlArgMap := map[string]interface{}{
		"data_set_id": dataSet.Id,
		"service_ids": serviceIds,
	}
	if routeShortName != "" {
		statementString = "select trip.* from trip " +
			"join route on route.data_set_id = trip.data_set_id and route.route_id = trip.route_id " +
			"where trip.data_set_id = :data_set_id and trip.service_id in (:service_ids) " +
			"and route.route_short_name = :route_short_name"
		sqlArgMap["route_short_name"] = routeShortName
	}

	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, sqlArgMap)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trips. query:%s error: %w", statementString, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*Trip
	for rows.Next() {
		trip := Trip{}
		if err = rows.StructScan(&trip); err != nil {
			return nil, err
		}
		results = append(results, &trip)
	}
	return results, rows.Err()
}

// GetTripsById loads the trips with tripIds into a map keyed by trip_id.
func GetTripsById(db *sqlx.DB, dataSetId int64, tripIds []string) (map[string]*Trip, error) {
	results := make(map[string]*Trip)
	if len(tripIds) == 0 {
		return results, nil
	}
	statementString := "select * from trip where data_set_id = :data_set_id and trip_id in (:trip_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"trip_ids":    tripIds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		trip := Trip{}
		if err = rows.StructScan(&trip); err != nil {
			return nil, err
		}
		results[trip.TripId] = &trip
	}
	return results, rows.Err()
}

// GetRoutesById loads the routes with routeIds into a map keyed by route_id.
func GetRoutesById(db *sqlx.DB, dataSetId int64, routeIds []string) (map[string]*Route, error) {
	results := make(map[string]*Route)
	if len(routeIds) == 0 {
		return results, nil
	}
	statementString := "select * from route where data_set_id = :data_set_id and route_id in (:route_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"route_ids":   routeIds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		route := Route{}
		if err = rows.StructScan(&route); err != nil {
			return nil, err
		}
		results[route.RouteId] = &route
	}
	return results, rows.Err()
}
