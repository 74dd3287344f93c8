// Package extractor polls the vendor departure feed across the station
// network, normalizes the responses into passage records, extends them with
// the loaded schedule and writes them to the realtime store.
package extractor

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/business/data/schedule"
	"github.com/suburail/delaycast/foundation/httpclient"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// Extractor runs poll cycles. Schedule lookups are cached per service day so
// a cycle straddling midnight only loads each day once.
type Extractor struct {
	log       *log.Logger
	db        *sqlx.DB
	poller    *poller
	publisher *passagePublisher
	stations  []string

	scheduleIndexes map[string]map[string]*schedule.StopTime
}

// Config carries the parts an Extractor polls with and writes to.
type Config struct {
	Client          *httpclient.Client
	Store           realtime.Store
	NatsConnection  *nats.Conn
	PublishOverNats bool
	Stations        []string
	CallsPerMinute  int
	Workers         int
}

func NewExtractor(log *log.Logger, db *sqlx.DB, cfg Config) *Extractor {
	return &Extractor{
		log:             log,
		db:              db,
		poller:          newPoller(log, cfg.Client, cfg.CallsPerMinute, cfg.Workers),
		publisher:       makePassagePublisher(log, cfg.Store, cfg.NatsConnection, cfg.PublishOverNats),
		stations:        cfg.Stations,
		scheduleIndexes: make(map[string]map[string]*schedule.StopTime),
	}
}

// RunOneCycle polls every station once, in two half lists, and publishes the
// normalized passages. Fatal only when the schedule is not loaded or the
// store rejects the whole write.
func (e *Extractor) RunOneCycle(ctx context.Context) error {
	start := time.Now()
	results := e.poller.pollCycle(ctx, e.stations)

	var passages []*realtime.Passage
	polled := 0
	for _, result := range results {
		if result.body != nil {
			polled++
		}
		passages = append(passages, normalizePassages(e.log, result)...)
	}
	e.log.Printf("polled %d/%d stations, normalized %d passages", polled, len(e.stations), len(passages))

	if err := e.extendWithSchedule(passages); err != nil {
		return err
	}

	cycleStart := daytime.FromWallClock(start.In(daytime.NetworkLocation()))
	return e.publisher.publish(ctx, &cycleResults{
		CycleStartDay:  cycleStart.Day,
		CycleStartTime: daytime.FormatExtended(cycleStart.Seconds),
		Passages:       passages,
	})
}

// extendWithSchedule attaches the scheduled departure and the signed delay to
// every passage the schedule knows about.
func (e *Extractor) extendWithSchedule(passages []*realtime.Passage) error {
	for _, passage := range passages {
		index, err := e.scheduleIndex(passage.ExpectedPassageDay)
		if err != nil {
			return err
		}
		stopTime, present := index[passage.StationId+"|"+passage.DayTrainNum]
		if !present {
			continue
		}
		expectedSeconds, err := daytime.ParseExtended(passage.ExpectedPassageTime)
		if err != nil {
			return err
		}
		scheduledSeconds, err := daytime.ParseExtended(stopTime.DepartureTime)
		if err != nil {
			continue
		}
		delay := expectedSeconds - scheduledSeconds
		scheduledDay := passage.ExpectedPassageDay
		scheduledTime := stopTime.DepartureTime
		passage.ScheduledDepartureDay = &scheduledDay
		passage.ScheduledDepartureTime = &scheduledTime
		passage.Delay = &delay
	}
	return nil
}

// scheduleIndex loads day's scheduled stop times keyed by
// station_id|day_train_num, caching the result.
func (e *Extractor) scheduleIndex(day string) (map[string]*schedule.StopTime, error) {
	if index, present := e.scheduleIndexes[day]; present {
		return index, nil
	}

	ds, err := schedule.GetLatestSavedDataSet(e.db)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve schedule for %s: %w", day, err)
	}
	resolver := schedule.NewResolver(e.db, ds)
	scheduledStops, err := resolver.StopTimesOn(day, schedule.LevelEntity, schedule.StopTimeQuery{})
	if err != nil {
		return nil, fmt.Errorf("unable to load scheduled stops for %s: %w", day, err)
	}

	index := make(map[string]*schedule.StopTime, len(scheduledStops))
	for _, scheduled := range scheduledStops {
		index[scheduled.StationId+"|"+scheduled.DayTrainNum] = scheduled.StopTime
	}
	e.log.Printf("indexed %d scheduled stops for %s", len(index), day)

	// a cycle never needs more than two service days at once
	if len(e.scheduleIndexes) >= 2 {
		e.scheduleIndexes = make(map[string]map[string]*schedule.StopTime)
	}
	e.scheduleIndexes[day] = index
	return index, nil
}

// RunExtractLoop runs poll cycles every cycleDuration until budget has
// elapsed, then returns nil. A cycle running long is followed immediately by
// the next one.
func (e *Extractor) RunExtractLoop(cycleDuration time.Duration,
	budget time.Duration,
	shutdownSignal chan os.Signal) error {

	loopStart := time.Now()

	sleepChan := make(chan bool)
	sleep := time.Duration(0)
	for {
		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			e.log.Printf("Exiting on shutdown signal")
			return nil
		case <-sleepChan:
			break
		}

		remaining := budget - time.Since(loopStart)
		if remaining <= 0 {
			e.log.Printf("extract budget of %v spent, stopping", budget)
			return nil
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), remaining)
		err := e.RunOneCycle(ctx)
		cancel()
		if err != nil {
			return err
		}

		workTook := time.Since(start)
		e.log.Printf("cycle took %v", workTook)
		if workTook >= cycleDuration {
			sleep = time.Duration(0)
		} else {
			sleep = cycleDuration - workTook
		}
	}
}
