package schedule

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Level selects how much of the schedule a Resolver query materializes.
type Level int

const (
	// LevelID produces only the derived realtime keys.
	LevelID Level = iota
	// LevelEntity adds the stop_time rows.
	LevelEntity
	// LevelJoined attaches trip, stop, route and calendar to each row.
	LevelJoined
)

// StopTimeQuery narrows Resolver.StopTimesOn. Zero values leave their
// dimension unfiltered.
type StopTimeQuery struct {
	RouteShortName string
	StopId         string
	TripIds        []string
	DepartureAfter string
	DepartureUntil string
	// ActiveAt keeps only trips whose first departure and last arrival
	// bracket this extended clock time.
	ActiveAt string
}

// ScheduledStop is one resolved scheduled passage. StationId and DayTrainNum
// are the keys the realtime feed uses. Pointers past StopTime are populated
// according to the query Level.
type ScheduledStop struct {
	Day         string
	StationId   string
	DayTrainNum string
	StopTime    *StopTime
	Trip        *Trip
	Stop        *Stop
	Route       *Route
	Calendar    *Calendar
}

// Resolver answers schedule questions for the latest saved data set.
type Resolver struct {
	db *sqlx.DB
	ds *DataSet
}

func NewResolver(db *sqlx.DB, ds *DataSet) *Resolver {
	return &Resolver{db: db, ds: ds}
}

// DataSet returns the data set this resolver reads from.
func (r *Resolver) DataSet() *DataSet {
	return r.ds
}

// ServicesOn returns the service_ids active on day, a yyyymmdd string.
func (r *Resolver) ServicesOn(day string) ([]string, error) {
	return GetActiveServiceIds(r.db, r.ds, day)
}

// TripsOn returns the trips running on day, optionally restricted to one
// route short name.
func (r *Resolver) TripsOn(day string, routeShortName string) ([]*Trip, error) {
	serviceIds, err := r.ServicesOn(day)
	if err != nil {
		return nil, err
	}
	return GetTripsForServiceIds(r.db, r.ds, serviceIds, routeShortName)
}

// StopTimesOn resolves the scheduled passages of day at the requested level.
// Rows whose derived keys cannot be built are dropped, and when two rows
// collide on (station_id, day_train_num) only the first is kept, preserving
// trip_id, stop_sequence order.
func (r *Resolver) StopTimesOn(day string, level Level, query StopTimeQuery) ([]*ScheduledStop, error) {
	trips, err := r.TripsOn(day, query.RouteShortName)
	if err != nil {
		return nil, err
	}
	if len(query.TripIds) > 0 {
		wanted := make(map[string]bool)
		for _, tripId := range query.TripIds {
			wanted[tripId] = true
		}
		var kept []*Trip
		for _, trip := range trips {
			if wanted[trip.TripId] {
				kept = append(kept, trip)
			}
		}
		trips = kept
	}
	if len(trips) == 0 {
		return nil, nil
	}

	tripIds := make([]string, 0, len(trips))
	tripsById := make(map[string]*Trip)
	for _, trip := range trips {
		tripIds = append(tripIds, trip.TripId)
		tripsById[trip.TripId] = trip
	}

	filter := StopTimeFilter{
		StopId:         query.StopId,
		DepartureAfter: query.DepartureAfter,
		DepartureUntil: query.DepartureUntil,
	}

	var stopTimes []*StopTime
	if query.ActiveAt != "" {
		// trip windows come from the full stop list, so the underway test
		// stays correct under the stop and departure range filters
		allStopTimes, err := GetStopTimesForTrips(r.db, r.ds.Id, tripIds, StopTimeFilter{})
		if err != nil {
			return nil, err
		}
		active := activeTripIds(allStopTimes, query.ActiveAt)
		if len(active) == 0 {
			return nil, nil
		}
		if filter == (StopTimeFilter{}) {
			for _, st := range allStopTimes {
				if active[st.TripId] {
					stopTimes = append(stopTimes, st)
				}
			}
		} else {
			activeIds := make([]string, 0, len(active))
			for _, tripId := range tripIds {
				if active[tripId] {
					activeIds = append(activeIds, tripId)
				}
			}
			if stopTimes, err = GetStopTimesForTrips(r.db, r.ds.Id, activeIds, filter); err != nil {
				return nil, err
			}
		}
	} else {
		if stopTimes, err = GetStopTimesForTrips(r.db, r.ds.Id, tripIds, filter); err != nil {
			return nil, err
		}
	}

	results := dedupeByRealtimeKey(day, stopTimes, level)
	if level != LevelJoined {
		return results, nil
	}
	if err = r.attachJoined(results, tripsById); err != nil {
		return nil, err
	}
	return results, nil
}

// activeTripIds reports which trips are underway at clock, a trip being
// underway from its first departure through its last arrival. stopTimes must
// hold each trip's complete stop list.
func activeTripIds(stopTimes []*StopTime, clock string) map[string]bool {
	type window struct {
		firstDeparture string
		lastArrival    string
	}
	windows := make(map[string]*window)
	for _, st := range stopTimes {
		w, present := windows[st.TripId]
		if !present {
			windows[st.TripId] = &window{firstDeparture: st.DepartureTime, lastArrival: st.ArrivalTime}
			continue
		}
		if st.DepartureTime < w.firstDeparture {
			w.firstDeparture = st.DepartureTime
		}
		if st.ArrivalTime > w.lastArrival {
			w.lastArrival = st.ArrivalTime
		}
	}
	active := make(map[string]bool)
	for tripId, w := range windows {
		if w.firstDeparture <= clock && clock <= w.lastArrival {
			active[tripId] = true
		}
	}
	return active
}

func dedupeByRealtimeKey(day string, stopTimes []*StopTime, level Level) []*ScheduledStop {
	seen := make(map[string]bool)
	var results []*ScheduledStop
	for _, st := range stopTimes {
		stationId := st.StationId()
		dayTrainNum := st.DayTrainNum(day)
		if stationId == "" || dayTrainNum == "" {
			continue
		}
		key := stationId + "|" + dayTrainNum
		if seen[key] {
			continue
		}
		seen[key] = true
		scheduled := ScheduledStop{
			Day:         day,
			StationId:   stationId,
			DayTrainNum: dayTrainNum,
		}
		if level != LevelID {
			scheduled.StopTime = st
		}
		results = append(results, &scheduled)
	}
	return results
}

// attachJoined loads the trips, stops, routes and calendars the rows
// reference and wires them onto each ScheduledStop.
func (r *Resolver) attachJoined(results []*ScheduledStop, tripsById map[string]*Trip) error {
	stopIdSet := make(map[string]bool)
	routeIdSet := make(map[string]bool)
	serviceIdSet := make(map[string]bool)
	for _, scheduled := range results {
		trip := tripsById[scheduled.StopTime.TripId]
		if trip == nil {
			return fmt.Errorf("stop time references unknown trip_id %s", scheduled.StopTime.TripId)
		}
		scheduled.Trip = trip
		stopIdSet[scheduled.StopTime.StopId] = true
		routeIdSet[trip.RouteId] = true
		serviceIdSet[trip.ServiceId] = true
	}

	stopsById, err := GetStopsById(r.db, r.ds.Id, trueStringsFromMap(stopIdSet))
	if err != nil {
		return fmt.Errorf("unable to load stops for joined schedule: %w", err)
	}
	routesById, err := GetRoutesById(r.db, r.ds.Id, trueStringsFromMap(routeIdSet))
	if err != nil {
		return fmt.Errorf("unable to load routes for joined schedule: %w", err)
	}
	calendarsByServiceId, err := GetCalendarsByServiceId(r.db, r.ds.Id, trueStringsFromMap(serviceIdSet))
	if err != nil {
		return fmt.Errorf("unable to load calendars for joined schedule: %w", err)
	}

	for _, scheduled := range results {
		scheduled.Stop = stopsById[scheduled.StopTime.StopId]
		scheduled.Route = routesById[scheduled.Trip.RouteId]
		scheduled.Calendar = calendarsByServiceId[scheduled.Trip.ServiceId]
	}
	return nil
}
