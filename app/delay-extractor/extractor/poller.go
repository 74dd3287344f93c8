package extractor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/suburail/delaycast/foundation/httpclient"

	"golang.org/x/time/rate"
)

// halfCycleDuration is the minimum spacing between the two station half
// lists of a cycle, matching the vendor's per minute call budget.
const halfCycleDuration = 60 * time.Second

// pollResult carries the raw response body for one station. Body is nil when
// the station could not be polled this cycle.
type pollResult struct {
	station8d   string
	requestedAt time.Time
	body        []byte
}

// poller fans station departure requests out over a worker pool while a
// shared token bucket enforces the vendor's calls per minute cap.
type poller struct {
	log     *log.Logger
	client  *httpclient.Client
	limiter *rate.Limiter
	workers int
}

func newPoller(log *log.Logger, client *httpclient.Client, callsPerMinute int, workers int) *poller {
	if workers < 1 {
		workers = 1
	}
	return &poller{
		log:     log,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), workers),
		workers: workers,
	}
}

// pollCycle polls stations in two half lists at least halfCycleDuration
// apart. A half running longer than that is logged and the next half starts
// immediately.
func (p *poller) pollCycle(ctx context.Context, stations []string) []pollResult {
	firstHalf := stations[:len(stations)/2]
	secondHalf := stations[len(stations)/2:]

	start := time.Now()
	results := p.pollStations(ctx, firstHalf)

	elapsed := time.Since(start)
	if wait := halfWait(elapsed); wait > 0 {
		select {
		case <-ctx.Done():
			return results
		case <-time.After(wait):
		}
	} else if elapsed > halfCycleDuration {
		p.log.Printf("warning: first station half took %v, over the %v budget", elapsed, halfCycleDuration)
	}

	return append(results, p.pollStations(ctx, secondHalf)...)
}

// halfWait returns how long to hold off before the second half list so the
// halves start at least halfCycleDuration apart.
func halfWait(elapsed time.Duration) time.Duration {
	if elapsed >= halfCycleDuration {
		return 0
	}
	return halfCycleDuration - elapsed
}

// pollStations requests the departure list of every station concurrently.
// Failed stations yield a nil body result.
func (p *poller) pollStations(ctx context.Context, stations []string) []pollResult {
	stationChan := make(chan string)
	resultChan := make(chan pollResult)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for station := range stationChan {
				resultChan <- p.pollStation(ctx, station)
			}
		}()
	}
	go func() {
		defer close(stationChan)
		for _, station := range stations {
			select {
			case <-ctx.Done():
				return
			case stationChan <- station:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]pollResult, 0, len(stations))
	for result := range resultChan {
		results = append(results, result)
	}
	return results
}

func (p *poller) pollStation(ctx context.Context, station8d string) pollResult {
	result := pollResult{station8d: station8d}
	if err := p.limiter.Wait(ctx); err != nil {
		return result
	}
	result.requestedAt = time.Now()
	body, err := p.client.Get(ctx, "gare/"+station8d+"/depart")
	if err != nil {
		p.log.Printf("unable to poll station %s: %v", station8d, err)
		return result
	}
	result.body = body
	return result
}
