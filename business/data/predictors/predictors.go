// Package predictors records trained delay predictors per line so the
// feature builder can stamp inference matrices with the model that will
// consume them.
package predictors

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNoPredictor is returned when a line has no recorded predictor yet.
var ErrNoPredictor = errors.New("no predictor recorded for line")

// Predictor is one trained model for a line. Features is the comma separated
// feature column list the model was fit on, Score its validation score as
// reported by the training run.
type Predictor struct {
	Id            int64     `db:"id" json:"id"`
	Line          string    `db:"line" json:"line"`
	Version       int       `db:"version" json:"version"`
	Features      string    `db:"features" json:"features"`
	TrainStartDay string    `db:"train_start_day" json:"train_start_day"`
	TrainEndDay   string    `db:"train_end_day" json:"train_end_day"`
	Score         *string   `db:"score" json:"score"`
	Blob          []byte    `db:"blob" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RecordPredictor saves predictor with the next version number for its line
// and fills in Id, Version and CreatedAt.
func RecordPredictor(db *sqlx.DB, predictor *Predictor) error {
	predictor.CreatedAt = time.Now()
	statementString := "insert into predictor ( " +
		"line, " +
		"version, " +
		"features, " +
		"train_start_day, " +
		"train_end_day, " +
		"score, " +
		"blob, " +
		"created_at) " +
		"values ($1, " +
		"coalesce((select max(version) from predictor where line = $1), 0) + 1, " +
		"$2, $3, $4, $5, $6, $7) " +
		"returning id, version"
	err := db.QueryRow(statementString,
		predictor.Line,
		predictor.Features,
		predictor.TrainStartDay,
		predictor.TrainEndDay,
		predictor.Score,
		predictor.Blob,
		predictor.CreatedAt).Scan(&predictor.Id, &predictor.Version)
	if err != nil {
		return fmt.Errorf("unable to save predictor for line %s: %w", predictor.Line, err)
	}
	return nil
}

// GetLatestPredictor retrieves the highest version predictor of line.
func GetLatestPredictor(db *sqlx.DB, line string) (*Predictor, error) {
	predictor := Predictor{}
	query := "select * from predictor where line = $1 order by version desc limit 1"
	err := db.Get(&predictor, query, line)
	if err == sql.ErrNoRows {
		return nil, ErrNoPredictor
	}
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve predictor for line %s: %w", line, err)
	}
	return &predictor, nil
}

// GetPredictors retrieves every recorded predictor of line, newest first.
func GetPredictors(db *sqlx.DB, line string) ([]*Predictor, error) {
	var results []*Predictor
	query := "select * from predictor where line = $1 order by version desc"
	err := db.Select(&results, query, line)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve predictors for line %s: %w", line, err)
	}
	return results, nil
}
