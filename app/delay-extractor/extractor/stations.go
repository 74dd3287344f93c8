package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// stationIdColumn is the header the station list file may carry. Without it
// the first column is used.
const stationIdColumn = "station_id"

// LoadStationIds reads the 8 digit station codes to poll from a csv file.
func LoadStationIds(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open station list %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	csvReader := csv.NewReader(file)
	first, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read station list %s: %v", path, err)
	}

	column := 0
	var stations []string
	if index := indexOf(stationIdColumn, first); index >= 0 {
		column = index
	} else if len(first) > 0 && isStationCode(first[column]) {
		stations = append(stations, first[column])
	}

	for {
		records, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read station list %s: %v", path, err)
		}
		if column < len(records) && isStationCode(records[column]) {
			stations = append(stations, records[column])
		}
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("station list %s holds no station codes", path)
	}
	return stations, nil
}

// isStationCode reports whether value looks like an 8 digit station code.
func isStationCode(value string) bool {
	if len(value) != 8 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}
