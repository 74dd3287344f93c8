package realtime

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// baseRetryDelay seeds the doubling backoff between batch page retries.
const baseRetryDelay = 500 * time.Millisecond

// PostgresStore implements Store on a passage table.
type PostgresStore struct {
	log *log.Logger
	db  *sqlx.DB
}

func NewPostgresStore(log *log.Logger, db *sqlx.DB) *PostgresStore {
	return &PostgresStore{log: log, db: db}
}

// Put upserts passages in pages of MaxBatchPut. A failing page is retried
// with backoff, last writer wins on key collision.
func (s *PostgresStore) Put(ctx context.Context, passages []*Passage) error {
	statementString := "insert into passage ( " +
		"station_id, " +
		"day_train_num, " +
		"station_8d, " +
		"day, " +
		"train_num, " +
		"miss, " +
		"term, " +
		"etat, " +
		"expected_passage_day, " +
		"expected_passage_time, " +
		"request_day, " +
		"request_time, " +
		"scheduled_departure_day, " +
		"scheduled_departure_time, " +
		"delay, " +
		"data_freshness) " +
		"values (" +
		":station_id, " +
		":day_train_num, " +
		":station_8d, " +
		":day, " +
		":train_num, " +
		":miss, " +
		":term, " +
		":etat, " +
		":expected_passage_day, " +
		":expected_passage_time, " +
		":request_day, " +
		":request_time, " +
		":scheduled_departure_day, " +
		":scheduled_departure_time, " +
		":delay, " +
		":data_freshness) " +
		"on conflict (station_id, day_train_num) do update set " +
		"station_8d = excluded.station_8d, " +
		"day = excluded.day, " +
		"train_num = excluded.train_num, " +
		"miss = excluded.miss, " +
		"term = excluded.term, " +
		"etat = excluded.etat, " +
		"expected_passage_day = excluded.expected_passage_day, " +
		"expected_passage_time = excluded.expected_passage_time, " +
		"request_day = excluded.request_day, " +
		"request_time = excluded.request_time, " +
		"scheduled_departure_day = excluded.scheduled_departure_day, " +
		"scheduled_departure_time = excluded.scheduled_departure_time, " +
		"delay = excluded.delay, " +
		"data_freshness = excluded.data_freshness"
	statementString = s.db.Rebind(statementString)

	for start := 0; start < len(passages); start += MaxBatchPut {
		end := start + MaxBatchPut
		if end > len(passages) {
			end = len(passages)
		}
		page := passages[start:end]
		err := s.retryPage(ctx, func() error {
			_, pageErr := s.db.NamedExecContext(ctx, statementString, page)
			return pageErr
		})
		if err != nil {
			return fmt.Errorf("unable to save passage page of %d rows: %w", len(page), err)
		}
	}
	return nil
}

// Get retrieves one passage, ErrItemNotFound when absent.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*Passage, error) {
	passage := Passage{}
	query := "select * from passage where station_id = $1 and day_train_num = $2"
	err := s.db.GetContext(ctx, &passage, query, key.StationId, key.DayTrainNum)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve passage %s %s: %w", key.StationId, key.DayTrainNum, err)
	}
	return &passage, nil
}

// BatchGet retrieves the passages present under keys in pages of MaxBatchGet.
// Missing keys are simply absent from the result.
func (s *PostgresStore) BatchGet(ctx context.Context, keys []Key) ([]*Passage, error) {
	var results []*Passage
	for start := 0; start < len(keys); start += MaxBatchGet {
		end := start + MaxBatchGet
		if end > len(keys) {
			end = len(keys)
		}
		page := keys[start:end]
		err := s.retryPage(ctx, func() error {
			found, pageErr := s.getPage(ctx, page)
			if pageErr != nil {
				return pageErr
			}
			results = append(results, found...)
			return nil
		})
		if err != nil {
			return results, fmt.Errorf("unable to retrieve passage page of %d keys: %w", len(page), err)
		}
	}
	return results, nil
}

func (s *PostgresStore) getPage(ctx context.Context, keys []Key) ([]*Passage, error) {
	stationIds := make([]string, 0, len(keys))
	dayTrainNums := make([]string, 0, len(keys))
	wanted := make(map[Key]bool)
	for _, key := range keys {
		stationIds = append(stationIds, key.StationId)
		dayTrainNums = append(dayTrainNums, key.DayTrainNum)
		wanted[key] = true
	}

	// over-selects the cross product of the page's key parts, trimmed below
	statementString := "select * from passage " +
		"where station_id in (:station_ids) and day_train_num in (:day_train_nums)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, s.db, map[string]interface{}{
		"station_ids":    stationIds,
		"day_train_nums": dayTrainNums,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*Passage
	for rows.Next() {
		passage := Passage{}
		if err = rows.StructScan(&passage); err != nil {
			return nil, err
		}
		if wanted[Key{StationId: passage.StationId, DayTrainNum: passage.DayTrainNum}] {
			results = append(results, &passage)
		}
	}
	return results, rows.Err()
}

// PassagesOnDay retrieves every passage recorded for day.
func (s *PostgresStore) PassagesOnDay(ctx context.Context, day string) ([]*Passage, error) {
	var results []*Passage
	query := "select * from passage where day = $1 order by station_id, day_train_num"
	err := s.db.SelectContext(ctx, &results, query, day)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve passages on %s: %w", day, err)
	}
	return results, nil
}

// StationPassagesOnDay retrieves the passages of one station on day.
func (s *PostgresStore) StationPassagesOnDay(ctx context.Context, stationId, day string) ([]*Passage, error) {
	var results []*Passage
	query := "select * from passage where station_id = $1 and day = $2 order by day_train_num"
	err := s.db.SelectContext(ctx, &results, query, stationId, day)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve passages at %s on %s: %w", stationId, day, err)
	}
	return results, nil
}

// retryPage runs page, retrying with doubling backoff up to maxBatchRetries
// before giving up.
func (s *PostgresStore) retryPage(ctx context.Context, page func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = page()
		if err == nil {
			return nil
		}
		if attempt >= maxBatchRetries {
			return err
		}
		delay := baseRetryDelay * time.Duration(1<<attempt)
		s.log.Printf("passage batch attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
