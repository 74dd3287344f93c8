package schedmanager

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/schedule"
)

// rowReader reads rows from one gtfs csv file and records them with the
// data set transaction, batching where the table is large.
type rowReader interface {

	// addRow reads the current line from csvFileParser and records the result
	// with dsTx, or holds it to be recorded in a batch by flush
	addRow(parser *csvFileParser, dsTx *schedule.DataSetTransaction) error

	// flush records any pending batched rows with dsTx
	flush(dsTx *schedule.DataSetTransaction) error
}

// csvFileParser walks a gtfs csv file line by line. Column accessors collect
// conversion errors with their line number instead of failing immediately.
type csvFileParser struct {
	filename       string
	line           int
	csvReader      *csv.Reader
	headers        []string
	currentRecords []string
	errors         []error
}

func makeCSVFileParser(r io.Reader, filename string) (*csvFileParser, error) {
	csvReader := csv.NewReader(r)

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to load header in %s: %v", filename, err)
	}
	removeBOMIfPresent(headers)

	return &csvFileParser{
		filename:       filename,
		line:           1,
		csvReader:      csvReader,
		headers:        headers,
		currentRecords: headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 || len(headers[0]) < 1 {
		return
	}
	runes := []rune(headers[0])
	if runes[0] == '\ufeff' {
		headers[0] = string(runes[1:])
	}
}

// getString retrieves string, empty if missing
func (p *csvFileParser) getString(name string, optional bool) string {
	result := p.getStringPointer(name, optional)
	if result == nil {
		return ""
	}
	return *result
}

// getStringPointer retrieves string pointer, nil if missing
func (p *csvFileParser) getStringPointer(name string, optional bool) *string {
	result, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	if result != nil && len(*result) == 0 {
		return nil
	}
	return result
}

// getInt retrieves int, 0 if missing
func (p *csvFileParser) getInt(name string, optional bool) int {
	result := p.getIntPointer(name, optional)
	if result == nil {
		return 0
	}
	return *result
}

// getIntPointer retrieves int pointer, nil if missing
func (p *csvFileParser) getIntPointer(name string, optional bool) *int {
	result, err := getInt(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	return result
}

// getFloat64 retrieves float64, 0 if missing
func (p *csvFileParser) getFloat64(name string, optional bool) float64 {
	result, err := getFloat64(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	if result == nil {
		return 0
	}
	return *result
}

// getDatePointer retrieves a yyyymmdd date as a time.Time pointer, nil if
// missing
func (p *csvFileParser) getDatePointer(name string, optional bool) *time.Time {
	stringValue, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if stringValue == nil || len(*stringValue) == 0 {
		return nil
	}
	result, err := daytime.ParseDay(*stringValue)
	if err != nil {
		p.errors = append(p.errors, csvError(name, err))
		return nil
	}
	return &result
}

// getExtendedTime retrieves an extended clock value normalized to zero padded
// hh:mm:ss, so lexical comparison in the database orders it correctly.
// Returns empty string if missing.
func (p *csvFileParser) getExtendedTime(name string, optional bool) string {
	stringValue, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return ""
	}
	if stringValue == nil || len(*stringValue) == 0 {
		return ""
	}
	seconds, err := daytime.ParseExtended(*stringValue)
	if err != nil {
		p.errors = append(p.errors, csvError(name, err))
		return ""
	}
	return daytime.FormatExtended(seconds)
}

// getError retrieves the errors collected while parsing, nil when clean
func (p *csvFileParser) getError() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.filename, p.line, p.errors)
	}
	return nil
}

func (p *csvFileParser) addParseError(err error) {
	p.errors = append(p.errors, err)
}

// nextLine moves the reader one line forward
func (p *csvFileParser) nextLine() error {
	var err error
	p.currentRecords, err = p.csvReader.Read()
	p.line += 1
	return err
}

func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}

// findValue retrieves a string value from the current records, nil when the
// column is absent and optional
func findValue(name string, records []string, headers []string, optional bool) (*string, error) {
	index := indexOf(name, headers)
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(records) <= index {
		return nil, fmt.Errorf("records are too short to find header at %v named %s", index, name)
	}
	value := records[index]
	if len(value) == 0 && !optional {
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	return &value, nil
}

func getInt(name string, records []string, headers []string, optional bool) (*int, error) {
	value, err := findValue(name, records, headers, optional)
	if err != nil || value == nil {
		return nil, err
	}
	if len(*value) == 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	result, err := strconv.Atoi(*value)
	if err != nil {
		return nil, csvError(name, err)
	}
	return &result, nil
}

func getFloat64(name string, records []string, headers []string, optional bool) (*float64, error) {
	value, err := findValue(name, records, headers, optional)
	if err != nil || value == nil {
		return nil, err
	}
	if len(*value) == 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return nil, csvError(name, err)
	}
	return &result, nil
}

func csvError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s, error: %v ", name, err)
}

// loadRows iterates over all rows in parser feeding them into reader.
// Reading halts on the first error, which is returned.
func loadRows(dsTx *schedule.DataSetTransaction, parser *csvFileParser, reader rowReader) error {
	for {
		err := parser.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err = reader.addRow(parser, dsTx); err != nil {
			parser.addParseError(err)
			return parser.getError()
		}
	}
	return reader.flush(dsTx)
}
