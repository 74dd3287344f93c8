// Package features builds delay prediction matrices. It joins a day's
// scheduled stops with the recorded realtime passages, evaluates trip state
// at chosen instants and emits training rows with labels or inference
// vectors for stops still ahead.
package features

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/business/data/schedule"
	"github.com/suburail/delaycast/foundation/bucket"

	"github.com/gocarina/gocsv"
	"github.com/jmoiron/sqlx"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/fr"
)

// Sweep bounds of the daily build, the business window instants are
// evaluated at.
const (
	sweepStartSeconds = 5 * 3600
	sweepEndSeconds   = 23*3600 + 45*60
	sweepStep         = time.Hour
)

// atDatetimeLayout stamps the engine instant on every row.
const atDatetimeLayout = "2006-01-02 15:04:05"

// FeatureRow is one inference vector. The identification columns appear
// twice, once with an _ix suffix, so downstream consumers can filter without
// reindexing.
type FeatureRow struct {
	AtDatetimeIx                string `csv:"at_datetime_ix"`
	TripIdIx                    string `csv:"trip_id_ix"`
	StopIdIx                    string `csv:"stop_id_ix"`
	RouteShortNameIx            string `csv:"route_short_name_ix"`
	SequenceDiffIx              int    `csv:"sequence_diff_ix"`
	StationsScheduledTripTimeIx int    `csv:"stations_scheduled_trip_time_ix"`

	AtDatetime     string `csv:"at_datetime"`
	TripId         string `csv:"trip_id"`
	StopId         string `csv:"stop_id"`
	RouteShortName string `csv:"route_short_name"`

	LastObservedDelay                float64 `csv:"last_observed_delay"`
	PredictedStationMedianDelay      float64 `csv:"predicted_station_median_delay"`
	LineMedianDelay                  float64 `csv:"line_median_delay"`
	SequenceDiff                     int     `csv:"sequence_diff"`
	BetweenStationsScheduledTripTime int     `csv:"between_stations_scheduled_trip_time"`
	RollingTripsOnLine               int     `csv:"rolling_trips_on_line"`
	BusinessDay                      int     `csv:"business_day"`
}

// TrainingRow is a FeatureRow with its label, the delay that actually
// materialized, and the naive baseline scores.
type TrainingRow struct {
	FeatureRow
	Label        float64 `csv:"label"`
	LabelEv      float64 `csv:"label_ev"`
	NaivePredMae float64 `csv:"naive_pred_mae"`
	NaivePredMse float64 `csv:"naive_pred_mse"`
}

// Builder assembles matrices for one schedule and realtime store pair.
type Builder struct {
	log       *log.Logger
	db        *sqlx.DB
	store     realtime.Store
	artifacts bucket.Bucket
	window    time.Duration
	calendar  *cal.BusinessCalendar
}

func NewBuilder(log *log.Logger,
	db *sqlx.DB,
	store realtime.Store,
	artifacts bucket.Bucket,
	window time.Duration) *Builder {

	if window <= 0 {
		window = DefaultMedianWindow
	}
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(fr.Holidays...)
	return &Builder{
		log:       log,
		db:        db,
		store:     store,
		artifacts: artifacts,
		window:    window,
		calendar:  calendar,
	}
}

// loadJoinedDay materializes day's scheduled stops at the joined level and
// attaches the recorded realtime passages.
func (b *Builder) loadJoinedDay(ctx context.Context, day string) ([]*JoinedResult, error) {
	ds, err := schedule.GetLatestSavedDataSet(b.db)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve schedule for %s: %w", day, err)
	}
	resolver := schedule.NewResolver(b.db, ds)
	scheduled, err := resolver.StopTimesOn(day, schedule.LevelJoined, schedule.StopTimeQuery{})
	if err != nil {
		return nil, fmt.Errorf("unable to load scheduled stops for %s: %w", day, err)
	}
	return JoinRealtime(ctx, b.log, b.store, scheduled), nil
}

// BuildInference evaluates day at instant at and emits one vector per
// predictable stop. Rows missing any feature are dropped with a log event,
// never padded with sentinels.
func (b *Builder) BuildInference(ctx context.Context, day string, at time.Time) ([]*FeatureRow, error) {
	joined, err := b.loadJoinedDay(ctx, day)
	if err != nil {
		return nil, err
	}
	return b.buildVectors(day, at, ComputeTripStates(b.log, day, at, b.window, joined)), nil
}

func (b *Builder) buildVectors(day string, at time.Time, rows []*StopRow) []*FeatureRow {
	var vectors []*FeatureRow
	for _, row := range rows {
		if !row.Predictable {
			continue
		}
		vector, complete := b.featureVector(day, at, row)
		if !complete {
			b.log.Printf("dropping incomplete vector for trip %s stop %s at %s",
				row.Joined.Scheduled.StopTime.TripId, row.Joined.Scheduled.StopTime.StopId,
				at.Format(atDatetimeLayout))
			continue
		}
		vectors = append(vectors, vector)
	}
	return vectors
}

// featureVector builds the row's vector, reporting false when any feature is
// missing.
func (b *Builder) featureVector(day string, at time.Time, row *StopRow) (*FeatureRow, bool) {
	if row.LastObservedDelay == nil || row.StationMedianDelay == nil || row.LineMedianDelay == nil ||
		row.SequenceDiff == nil || row.StationsScheduledTripTime == nil {
		return nil, false
	}
	dayDate, err := daytime.ParseDay(day)
	if err != nil {
		return nil, false
	}
	businessDay := 0
	if b.calendar.IsWorkday(dayDate) {
		businessDay = 1
	}

	atDatetime := at.Format(atDatetimeLayout)
	stopTime := row.Joined.Scheduled.StopTime
	vector := FeatureRow{
		AtDatetimeIx:                atDatetime,
		TripIdIx:                    stopTime.TripId,
		StopIdIx:                    stopTime.StopId,
		RouteShortNameIx:            rowRouteShortName(row),
		SequenceDiffIx:              *row.SequenceDiff,
		StationsScheduledTripTimeIx: *row.StationsScheduledTripTime,

		AtDatetime:     atDatetime,
		TripId:         stopTime.TripId,
		StopId:         stopTime.StopId,
		RouteShortName: rowRouteShortName(row),

		LastObservedDelay:                float64(*row.LastObservedDelay),
		PredictedStationMedianDelay:      *row.StationMedianDelay,
		LineMedianDelay:                  *row.LineMedianDelay,
		SequenceDiff:                     *row.SequenceDiff,
		BetweenStationsScheduledTripTime: *row.StationsScheduledTripTime,
		RollingTripsOnLine:               row.RollingTripsOnLine,
		BusinessDay:                      businessDay,
	}
	return &vector, true
}

// BuildTraining evaluates day at the past instant at and labels each vector
// with the delay known by now. Rows whose label is not yet known at now are
// dropped.
func (b *Builder) BuildTraining(ctx context.Context, day string, at time.Time, now time.Time) ([]*TrainingRow, error) {
	joined, err := b.loadJoinedDay(ctx, day)
	if err != nil {
		return nil, err
	}
	return b.trainingRows(day, at, now, ComputeTripStates(b.log, day, at, b.window, joined)), nil
}

func (b *Builder) trainingRows(day string, at time.Time, now time.Time, rows []*StopRow) []*TrainingRow {
	var trainingRows []*TrainingRow
	for _, row := range rows {
		if !row.Predictable {
			continue
		}
		vector, complete := b.featureVector(day, at, row)
		if !complete {
			continue
		}
		label, known := labelAt(day, now, row)
		if !known {
			continue
		}
		labelEv := label - vector.LastObservedDelay
		trainingRows = append(trainingRows, &TrainingRow{
			FeatureRow:   *vector,
			Label:        label,
			LabelEv:      labelEv,
			NaivePredMae: abs(labelEv),
			NaivePredMse: labelEv * labelEv,
		})
	}
	return trainingRows
}

// labelAt returns the delay that materialized at the row's stop, when its
// realtime passage is known to have gone by at the snapshot instant now.
func labelAt(day string, now time.Time, row *StopRow) (float64, bool) {
	if !row.HasRealtime() {
		return 0, false
	}
	expectedSeconds, err := daytime.ParseExtended(row.Joined.Realtime.ExpectedPassageTime)
	if err != nil {
		return 0, false
	}
	expectedWall, err := daytime.DayTime{
		Day:     row.Joined.Realtime.ExpectedPassageDay,
		Seconds: expectedSeconds,
	}.WallClock()
	if err != nil || now.Before(expectedWall) {
		return 0, false
	}

	departureSeconds, err := daytime.ParseExtended(row.Joined.Scheduled.StopTime.DepartureTime)
	if err != nil {
		return 0, false
	}
	scheduledWall, err := daytime.DayTime{Day: day, Seconds: departureSeconds}.WallClock()
	if err != nil {
		return 0, false
	}
	return float64(expectedWall.Sub(scheduledWall) / time.Second), true
}

// SweepInstants lists the business window instants of day, from 05:00 up to
// 23:45 in sweepStep increments.
func SweepInstants(day string) ([]time.Time, error) {
	midnight, err := daytime.ParseDay(day)
	if err != nil {
		return nil, err
	}
	var instants []time.Time
	start := midnight.Add(time.Duration(sweepStartSeconds) * time.Second)
	end := midnight.Add(time.Duration(sweepEndSeconds) * time.Second)
	for at := start; !at.After(end); at = at.Add(sweepStep) {
		instants = append(instants, at)
	}
	return instants, nil
}

// BuildTrainingDay sweeps day's business window and writes the concatenated
// training matrix to the artifact bucket. Returns the object key written.
func (b *Builder) BuildTrainingDay(ctx context.Context, day string, now time.Time) (string, error) {
	instants, err := SweepInstants(day)
	if err != nil {
		return "", err
	}

	joined, err := b.loadJoinedDay(ctx, day)
	if err != nil {
		return "", err
	}

	var allRows []*TrainingRow
	for _, at := range instants {
		rows := b.trainingRows(day, at, now, ComputeTripStates(b.log, day, at, b.window, joined))
		b.log.Printf("built %d training rows for %s at %s", len(rows), day, at.Format(atDatetimeLayout))
		allRows = append(allRows, rows...)
	}

	key := day + "/training_matrix.csv"
	if err = b.writeCSV(key, &allRows); err != nil {
		return "", err
	}
	b.log.Printf("wrote %d training rows to %s", len(allRows), key)
	return key, nil
}

// BuildInferenceArtifact evaluates day at instant at and writes the vectors
// to the artifact bucket. Returns the object key written.
func (b *Builder) BuildInferenceArtifact(ctx context.Context, day string, at time.Time) (string, error) {
	vectors, err := b.BuildInference(ctx, day, at)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/inference_%s.csv", day, at.Format("150405"))
	if err = b.writeCSV(key, &vectors); err != nil {
		return "", err
	}
	b.log.Printf("wrote %d inference vectors to %s", len(vectors), key)
	return key, nil
}

func (b *Builder) writeCSV(key string, rows interface{}) error {
	content, err := gocsv.MarshalString(rows)
	if err != nil {
		return fmt.Errorf("unable to serialize %s: %w", key, err)
	}
	if err = b.artifacts.Put(key, strings.NewReader(content)); err != nil {
		return fmt.Errorf("unable to write %s: %w", key, err)
	}
	return nil
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}
