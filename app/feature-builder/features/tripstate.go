package features

import (
	"log"
	"sort"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
)

// DefaultMedianWindow is the trailing window line and station median delays
// are computed over.
const DefaultMedianWindow = 1200 * time.Second

// StopRow is one scheduled stop with its state at the engine instant and the
// trip and line aggregates it participates in.
type StopRow struct {
	Joined *JoinedResult

	PassedSchedule bool
	PassedRealtime bool

	// ObservedDelay is set once the realtime passage has gone by,
	// ExpectedDelay while it is still ahead. Signed seconds against the
	// scheduled departure.
	ObservedDelay *int
	ExpectedDelay *int

	TotalSequence int
	TripStatus    float64

	LastSequenceNumber             *int
	LastObservedDelay              *int
	LastObservedScheduledDeparture string

	SequenceDiff              *int
	StationsScheduledTripTime *int

	LineMedianDelay    *float64
	StationMedianDelay *float64
	RollingTripsOnLine int

	Predictable bool
}

// tripAggregate is the per trip state shared by the trip's rows.
type tripAggregate struct {
	rows        []*StopRow
	passedCount int

	lastSequence   *int
	lastDelay      *int
	lastDeparture  string
	maxRealtimeSeq int
	sawRealtime    bool
}

// ComputeTripStates evaluates every joined stop of service day at the instant
// at. The instant is an explicit parameter, the engine never reads the wall
// clock, which keeps retroactive runs honest. Rows whose times cannot be
// parsed are dropped with a log line.
func ComputeTripStates(log *log.Logger,
	day string,
	at time.Time,
	window time.Duration,
	joined []*JoinedResult) []*StopRow {

	rows := make([]*StopRow, 0, len(joined))
	trips := make(map[string]*tripAggregate)

	for _, j := range joined {
		row, err := evaluateStop(day, at, j)
		if err != nil {
			log.Printf("dropping stop %s of trip %s: %v",
				j.Scheduled.StopTime.StopId, j.Scheduled.StopTime.TripId, err)
			continue
		}
		rows = append(rows, row)

		tripId := j.Scheduled.StopTime.TripId
		aggregate, present := trips[tripId]
		if !present {
			aggregate = &tripAggregate{}
			trips[tripId] = aggregate
		}
		aggregate.rows = append(aggregate.rows, row)
		if row.PassedSchedule {
			aggregate.passedCount++
		}
	}

	applyTripAggregates(trips)
	applyLineAggregates(at, window, rows, trips)
	backPropagateRealtime(trips)

	for _, row := range rows {
		row.Predictable = row.TripStatus > 0 && row.TripStatus < 1 &&
			!row.PassedSchedule && !row.PassedRealtime && row.SequenceDiff != nil
	}
	return rows
}

// evaluateStop computes the per stop flags and delays before any grouping.
func evaluateStop(day string, at time.Time, j *JoinedResult) (*StopRow, error) {
	departureSeconds, err := daytime.ParseExtended(j.Scheduled.StopTime.DepartureTime)
	if err != nil {
		return nil, err
	}
	scheduledWall, err := daytime.DayTime{Day: day, Seconds: departureSeconds}.WallClock()
	if err != nil {
		return nil, err
	}

	row := StopRow{
		Joined:         j,
		PassedSchedule: !at.Before(scheduledWall),
	}
	if !j.HasRealtime {
		return &row, nil
	}

	expectedSeconds, err := daytime.ParseExtended(j.Realtime.ExpectedPassageTime)
	if err != nil {
		return nil, err
	}
	expectedWall, err := daytime.DayTime{Day: j.Realtime.ExpectedPassageDay, Seconds: expectedSeconds}.WallClock()
	if err != nil {
		return nil, err
	}

	delay := int(expectedWall.Sub(scheduledWall) / time.Second)
	if !at.Before(expectedWall) {
		row.PassedRealtime = true
		row.ObservedDelay = &delay
	} else {
		row.ExpectedDelay = &delay
	}
	return &row, nil
}

// applyTripAggregates fills the trip level fields on every row of each trip.
func applyTripAggregates(trips map[string]*tripAggregate) {
	for _, aggregate := range trips {
		total := len(aggregate.rows)
		status := float64(aggregate.passedCount) / float64(total)
		active := status > 0 && status < 1

		if active {
			for _, row := range aggregate.rows {
				if !row.PassedRealtime || row.ObservedDelay == nil {
					continue
				}
				seq := row.Joined.Scheduled.StopTime.StopSequence
				if aggregate.lastSequence == nil || seq > *aggregate.lastSequence {
					sequence := seq
					aggregate.lastSequence = &sequence
					aggregate.lastDelay = row.ObservedDelay
					aggregate.lastDeparture = row.Joined.Scheduled.StopTime.DepartureTime
				}
			}
		}

		var lastDepartureSeconds int
		if aggregate.lastSequence != nil {
			lastDepartureSeconds, _ = daytime.ParseExtended(aggregate.lastDeparture)
		}
		for _, row := range aggregate.rows {
			row.TotalSequence = total
			row.TripStatus = status
			row.LastSequenceNumber = aggregate.lastSequence
			row.LastObservedDelay = aggregate.lastDelay
			row.LastObservedScheduledDeparture = aggregate.lastDeparture

			if aggregate.lastSequence == nil {
				continue
			}
			diff := row.Joined.Scheduled.StopTime.StopSequence - *aggregate.lastSequence
			row.SequenceDiff = &diff
			if departureSeconds, err := daytime.ParseExtended(row.Joined.Scheduled.StopTime.DepartureTime); err == nil {
				tripTime := departureSeconds - lastDepartureSeconds
				row.StationsScheduledTripTime = &tripTime
			}
		}
	}
}

// applyLineAggregates computes the trailing window medians per route and per
// (route, stop), and the count of active trips per route.
func applyLineAggregates(at time.Time, window time.Duration, rows []*StopRow, trips map[string]*tripAggregate) {
	lineDelays := make(map[string][]float64)
	stationDelays := make(map[string][]float64)
	rollingTrips := make(map[string]map[string]bool)

	for _, row := range rows {
		route := rowRouteShortName(row)
		tripId := row.Joined.Scheduled.StopTime.TripId

		if row.TripStatus > 0 && row.TripStatus < 1 {
			if rollingTrips[route] == nil {
				rollingTrips[route] = make(map[string]bool)
			}
			rollingTrips[route][tripId] = true
		}

		if row.ObservedDelay == nil || !inWindow(at, window, row) {
			continue
		}
		delay := float64(*row.ObservedDelay)
		lineDelays[route] = append(lineDelays[route], delay)
		stationKey := route + "|" + row.Joined.Scheduled.StopTime.StopId
		stationDelays[stationKey] = append(stationDelays[stationKey], delay)
	}

	lineMedians := make(map[string]float64, len(lineDelays))
	for route, delays := range lineDelays {
		lineMedians[route] = median(delays)
	}
	stationMedians := make(map[string]float64, len(stationDelays))
	for key, delays := range stationDelays {
		stationMedians[key] = median(delays)
	}

	for _, row := range rows {
		route := rowRouteShortName(row)
		if m, present := lineMedians[route]; present {
			lineMedian := m
			row.LineMedianDelay = &lineMedian
		}
		if m, present := stationMedians[route+"|"+row.Joined.Scheduled.StopTime.StopId]; present {
			stationMedian := m
			row.StationMedianDelay = &stationMedian
		}
		row.RollingTripsOnLine = len(rollingTrips[route])
	}
}

// inWindow reports whether the row's realtime passage went by within the
// trailing window ending at the engine instant.
func inWindow(at time.Time, window time.Duration, row *StopRow) bool {
	if !row.HasRealtime() {
		return false
	}
	expectedSeconds, err := daytime.ParseExtended(row.Joined.Realtime.ExpectedPassageTime)
	if err != nil {
		return false
	}
	expectedWall, err := daytime.DayTime{
		Day:     row.Joined.Realtime.ExpectedPassageDay,
		Seconds: expectedSeconds,
	}.WallClock()
	if err != nil {
		return false
	}
	since := at.Sub(expectedWall)
	return since >= 0 && since < window
}

// HasRealtime reports whether the row came with a realtime passage attached.
func (r *StopRow) HasRealtime() bool {
	return r.Joined.HasRealtime
}

// backPropagateRealtime marks stops without realtime as realtime passed when
// a later stop of the same trip has gone by, the train must have passed them.
func backPropagateRealtime(trips map[string]*tripAggregate) {
	for _, aggregate := range trips {
		maxSeq := -1
		for _, row := range aggregate.rows {
			if row.PassedRealtime && row.Joined.Scheduled.StopTime.StopSequence > maxSeq {
				maxSeq = row.Joined.Scheduled.StopTime.StopSequence
			}
		}
		if maxSeq < 0 {
			continue
		}
		for _, row := range aggregate.rows {
			if !row.HasRealtime() && !row.PassedRealtime &&
				row.Joined.Scheduled.StopTime.StopSequence < maxSeq {
				row.PassedRealtime = true
			}
		}
	}
}

func rowRouteShortName(row *StopRow) string {
	if row.Joined.Scheduled.Route != nil {
		return row.Joined.Scheduled.Route.RouteShortName
	}
	return ""
}

// median returns the middle value of delays, averaging the two middle values
// on even counts.
func median(delays []float64) float64 {
	sorted := make([]float64, len(delays))
	copy(sorted, delays)
	sort.Float64s(sorted)
	middle := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[middle]
	}
	return (sorted[middle-1] + sorted[middle]) / 2
}
