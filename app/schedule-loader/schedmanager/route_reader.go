package schedmanager

import (
	"github.com/suburail/delaycast/business/data/schedule"
)

// routeRowReader implements rowReader for schedule.Route
type routeRowReader struct {
	batch []*schedule.Route
}

func (r *routeRowReader) addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error {
	route, err := buildRoute(parser)
	if err != nil {
		return err
	}
	r.batch = append(r.batch, route)
	if len(r.batch) == batchRowCount {
		return r.flush(dsTx)
	}
	return nil
}

func (r *routeRowReader) flush(dsTx *schedule.DataSetTransaction) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := schedule.RecordRoutes(r.batch, dsTx); err != nil {
		return err
	}
	r.batch = nil
	return nil
}

func buildRoute(parser *csvFileParser) (*schedule.Route, error) {
	route := schedule.Route{
		RouteId:        parser.getString("route_id", false),
		AgencyId:       parser.getString("agency_id", false),
		RouteShortName: parser.getString("route_short_name", false),
		RouteLongName:  parser.getString("route_long_name", false),
		RouteDesc:      parser.getStringPointer("route_desc", true),
		RouteType:      parser.getInt("route_type", false),
	}
	return &route, parser.getError()
}
