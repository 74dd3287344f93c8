package schedule

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Route contains data from a record in a gtfs routes.txt file.
// RouteShortName carries the commercial line letter the network publishes.
type Route struct {
	DataSetId      int64   `db:"data_set_id" json:"data_set_id"`
	RouteId        string  `db:"route_id" json:"route_id"`
	AgencyId       string  `db:"agency_id" json:"agency_id"`
	RouteShortName string  `db:"route_short_name" json:"route_short_name"`
	RouteLongName  string  `db:"route_long_name" json:"route_long_name"`
	RouteDesc      *string `db:"route_desc" json:"route_desc"`
	RouteType      int     `db:"route_type" json:"route_type"`
}

// RecordRoutes saves routes to database in batch, falling back to per row
// upserts when the batch violates a constraint.
func RecordRoutes(routes []*Route, dsTx *DataSetTransaction) error {
	for _, route := range routes {
		route.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into route ( " +
		"data_set_id, " +
		"route_id, " +
		"agency_id, " +
		"route_short_name, " +
		"route_long_name, " +
		"route_desc, " +
		"route_type) " +
		"values (" +
		":data_set_id, " +
		":route_id, " +
		":agency_id, " +
		":route_short_name, " +
		":route_long_name, " +
		":route_desc, " +
		":route_type)"
	_, err := dsTx.Tx.NamedExec(dsTx.Tx.Rebind(statementString), routes)
	if err == nil {
		return nil
	}

	upsertString := statementString +
		" on conflict (data_set_id, route_id) do update set " +
		"agency_id = excluded.agency_id, " +
		"route_short_name = excluded.route_short_name, " +
		"route_long_name = excluded.route_long_name, " +
		"route_desc = excluded.route_desc, " +
		"route_type = excluded.route_type"
	upsertString = dsTx.Tx.Rebind(upsertString)
	for _, route := range routes {
		if _, err = dsTx.Tx.NamedExec(upsertString, route); err != nil {
			return err
		}
	}
	return nil
}

// GetRoutes retrieves the routes of dataSet, optionally collapsed to one row
// per route_short_name.
func GetRoutes(db *sqlx.DB, dataSet *DataSet, distinctShortName bool) ([]Route, error) {
	query := "select * from route where data_set_id = $1 order by route_id"
	if distinctShortName {
		query = "select distinct on (route_short_name) * from route " +
			"where data_set_id = $1 order by route_short_name, route_id"
	}
	var results []Route
	err := db.Select(&results, query, dataSet.Id)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve routes. query:%s error: %w", query, err)
	}
	return results, nil
}
