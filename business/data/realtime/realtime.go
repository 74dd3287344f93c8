// Package realtime stores observed train passages keyed the way the vendor
// realtime feed keys them, station_id plus day_train_num.
package realtime

import (
	"context"
	"errors"
)

// ErrItemNotFound is returned by Get when no passage exists under the key.
var ErrItemNotFound = errors.New("passage not found")

const (
	// MaxBatchPut is the most passages a single Put flush may carry.
	MaxBatchPut = 25
	// MaxBatchGet is the most keys a single BatchGet page may carry.
	MaxBatchGet = 100
	// maxBatchRetries bounds the backoff retries of a failing batch page.
	maxBatchRetries = 3
)

// Passage is one observed realtime passage of a train at a station.
// StationId and DayTrainNum form the key, last writer wins on collision.
type Passage struct {
	StationId   string `db:"station_id" json:"station_id"`
	DayTrainNum string `db:"day_train_num" json:"day_train_num"`

	// Station8d is the vendor's 8 digit station code, checksum digit included.
	Station8d string `db:"station_8d" json:"station_8d"`

	Day      string `db:"day" json:"day"`
	TrainNum string `db:"train_num" json:"train_num"`

	// Miss is the mission code, Term the terminus station, Etat the vendor
	// train state. All come through the feed only sometimes.
	Miss *string `db:"miss" json:"miss"`
	Term *string `db:"term" json:"term"`
	Etat *string `db:"etat" json:"etat"`

	// Expected passage, in network day terms with the extended clock.
	ExpectedPassageDay  string `db:"expected_passage_day" json:"expected_passage_day"`
	ExpectedPassageTime string `db:"expected_passage_time" json:"expected_passage_time"`

	// When the poller asked the feed.
	RequestDay  string `db:"request_day" json:"request_day"`
	RequestTime string `db:"request_time" json:"request_time"`

	// Scheduled departure when the loaded schedule knows this passage, and
	// the signed delay of the expected passage against it in seconds.
	ScheduledDepartureDay  *string `db:"scheduled_departure_day" json:"scheduled_departure_day"`
	ScheduledDepartureTime *string `db:"scheduled_departure_time" json:"scheduled_departure_time"`
	Delay                  *int    `db:"delay" json:"delay"`

	// DataFreshness is the absolute gap in seconds between the request and
	// the expected passage.
	DataFreshness int `db:"data_freshness" json:"data_freshness"`
}

// Key identifies one passage.
type Key struct {
	StationId   string
	DayTrainNum string
}

// Store reads and writes passages. Put and BatchGet page their work and a
// page that keeps failing after retries fails the call, earlier pages stay
// applied.
type Store interface {
	Put(ctx context.Context, passages []*Passage) error
	Get(ctx context.Context, key Key) (*Passage, error)
	BatchGet(ctx context.Context, keys []Key) ([]*Passage, error)
	PassagesOnDay(ctx context.Context, day string) ([]*Passage, error)
	StationPassagesOnDay(ctx context.Context, stationId, day string) ([]*Passage, error)
}
