// Package schedmanager provides support for retrieving, parsing, deleting and
// saving gtfs schedules to a database, and mirroring the raw schedule files
// into an object bucket.
package schedmanager

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/schedule"
	"github.com/suburail/delaycast/foundation/bucket"
	"github.com/suburail/delaycast/foundation/database"

	"github.com/jmoiron/sqlx"
)

// batchRowCount is the number of rows a rowReader accumulates before
// recording them in one statement.
const batchRowCount = 250

// refreshLockId is the advisory lock serializing schedule refreshes.
const refreshLockId = 815471

// gtfsFile pairs a gtfs table file with the reader that records it. Files
// load in dependency order.
type gtfsFile struct {
	name     string
	reader   rowReader
	optional bool
}

func scheduleFiles() []gtfsFile {
	return []gtfsFile{
		{name: "agency.txt", reader: &agencyRowReader{}},
		{name: "routes.txt", reader: &routeRowReader{}},
		{name: "stops.txt", reader: &stopRowReader{}},
		{name: "calendar.txt", reader: &calendarRowReader{}},
		{name: "calendar_dates.txt", reader: &calendarDateRowReader{}, optional: true},
		{name: "trips.txt", reader: &tripRowReader{}},
		{name: "stop_times.txt", reader: &stopTimeRowReader{}},
	}
}

// UpdateSchedule fetches the published schedule archives, mirrors them into
// gtfsBucket under a yyyymmdd-gtfs prefix, and loads the canonical archive
// into a new data set inside one transaction. Returns without changes when
// another refresh holds the advisory lock.
func UpdateSchedule(log *log.Logger,
	db *sqlx.DB,
	gtfsBucket bucket.Bucket,
	workDirectory string,
	indexURL string) error {

	if err := os.MkdirAll(workDirectory, os.ModePerm); err != nil {
		return err
	}

	start := time.Now()
	archiveNames, err := fetchArchives(log, workDirectory, indexURL)
	if err != nil {
		return err
	}

	canonicalDirectory := filepath.Join(workDirectory, CanonicalArchiveName)
	if err = checkCanonicalDirectory(canonicalDirectory); err != nil {
		return err
	}

	prefix := daytime.FormatDay(start.In(daytime.NetworkLocation())) + "-gtfs"
	for _, archiveName := range archiveNames {
		err = bucket.MirrorDirectory(gtfsBucket, prefix+"/"+archiveName, filepath.Join(workDirectory, archiveName))
		if err != nil {
			return fmt.Errorf("unable to mirror archive %s into bucket: %w", archiveName, err)
		}
	}
	log.Printf("mirrored %d archives under %s/", len(archiveNames), prefix)

	ds := schedule.DataSet{
		URL:          indexURL,
		DownloadedAt: start,
	}
	err = database.Transact(log, db, func(tx *sqlx.Tx) error {
		var locked bool
		if innerErr := tx.Get(&locked, "select pg_try_advisory_xact_lock($1)", refreshLockId); innerErr != nil {
			return innerErr
		}
		if !locked {
			log.Printf("another schedule refresh is running, leaving data sets unchanged")
			return nil
		}
		if innerErr := schedule.SaveDataSet(tx, &ds); innerErr != nil {
			return innerErr
		}
		dsTx := schedule.DataSetTransaction{DS: ds, Tx: tx}
		if innerErr := loadGtfsDirectory(log, &dsTx, canonicalDirectory); innerErr != nil {
			return innerErr
		}
		return schedule.MarkDataSetSaved(tx, &ds, time.Now())
	})
	if err != nil {
		return err
	}
	log.Printf("loaded schedule %v in %v", ds, time.Since(start))
	return nil
}

// checkCanonicalDirectory verifies the canonical archive was extracted with
// every required gtfs table present.
func checkCanonicalDirectory(canonicalDirectory string) error {
	if _, err := os.Stat(canonicalDirectory); err != nil {
		return fmt.Errorf("archive %s missing after extraction: %w", CanonicalArchiveName, schedule.ErrNoSchedule)
	}
	var missing []string
	for _, f := range scheduleFiles() {
		if f.optional {
			continue
		}
		if _, err := os.Stat(filepath.Join(canonicalDirectory, f.name)); err != nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schedule directory is missing %v: %w", missing, schedule.ErrNoSchedule)
	}
	return nil
}

// loadGtfsDirectory reads the gtfs tables of directory into dsTx in order.
func loadGtfsDirectory(log *log.Logger, dsTx *schedule.DataSetTransaction, directory string) error {
	for _, f := range scheduleFiles() {
		filePath := filepath.Join(directory, f.name)
		if _, err := os.Stat(filePath); err != nil {
			if f.optional {
				continue
			}
			return fmt.Errorf("missing schedule file %s: %w", f.name, schedule.ErrNoSchedule)
		}
		if err := loadGtfsFile(log, dsTx, filePath, f.name, f.reader); err != nil {
			return err
		}
	}
	return nil
}

func loadGtfsFile(log *log.Logger,
	dsTx *schedule.DataSetTransaction,
	filePath string,
	name string,
	reader rowReader) error {

	start := time.Now()
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	parser, err := makeCSVFileParser(file, name)
	if err != nil {
		return err
	}
	log.Printf("loading %s", name)
	if err = loadRows(dsTx, parser, reader); err != nil {
		return err
	}
	log.Printf("loaded %d rows from %s in %v", parser.line, name, time.Since(start))
	return nil
}

// DeleteSchedule deletes the data set with dataSetId and all its gtfs rows.
func DeleteSchedule(log *log.Logger, db *sqlx.DB, dataSetId int64) error {
	dataSet, err := schedule.GetDataSet(db, dataSetId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no data set found with id %d", dataSetId)
		}
		return err
	}
	err = database.Transact(log, db, func(tx *sqlx.Tx) error {
		log.Printf("removing data set %v", dataSet)
		counts, innerErr := schedule.DeleteDataSetContents(tx, dataSet.Id)
		if innerErr != nil {
			return innerErr
		}
		for table, rows := range counts {
			log.Printf("deleted %d rows from %s", rows, table)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("deleted data set %v", dataSet)
	return nil
}

// ListSchedules prints every loaded data set.
func ListSchedules(db *sqlx.DB) error {
	fmt.Println("Loaded data sets:")
	dataSets, err := schedule.GetAllDataSets(db)
	if err != nil {
		return err
	}
	for _, ds := range dataSets {
		fmt.Println(ds)
	}
	return nil
}
