package extractor

import (
	"encoding/xml"
	"log"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"
	"github.com/suburail/delaycast/business/data/realtime"
)

// vendorDateLayout is the departure date format the vendor feed uses.
const vendorDateLayout = "02/01/2006 15:04"

// passageDocument is the vendor's departure board response, a list of
// expected trains at one station.
type passageDocument struct {
	XMLName xml.Name     `xml:"passages"`
	Trains  []trainEntry `xml:"train"`
}

type trainEntry struct {
	Date string `xml:"date"`
	Num  string `xml:"num"`
	Miss string `xml:"miss"`
	Term string `xml:"term"`
	Etat string `xml:"etat"`
}

// normalizePassages turns a raw station response into passage records.
// Stations with no train list and entries that fail to parse are skipped
// with a debug log, never failing the cycle.
func normalizePassages(log *log.Logger, result pollResult) []*realtime.Passage {
	if result.body == nil {
		return nil
	}
	var document passageDocument
	if err := xml.Unmarshal(result.body, &document); err != nil {
		log.Printf("station %s payload is not a departure list, skipping: %v", result.station8d, err)
		return nil
	}
	if len(document.Trains) == 0 {
		return nil
	}

	// the 8 digit station code carries a checksum digit the schedule omits
	stationId := result.station8d[:len(result.station8d)-1]
	request := daytime.FromWallClock(result.requestedAt.In(daytime.NetworkLocation()))

	passages := make([]*realtime.Passage, 0, len(document.Trains))
	for _, train := range document.Trains {
		passage, err := normalizeTrain(train, result.station8d, stationId, request, result.requestedAt)
		if err != nil {
			log.Printf("dropping train entry at station %s: %v", result.station8d, err)
			continue
		}
		passages = append(passages, passage)
	}
	return passages
}

func normalizeTrain(train trainEntry,
	station8d string,
	stationId string,
	request daytime.DayTime,
	requestedAt time.Time) (*realtime.Passage, error) {

	expectedAt, err := time.ParseInLocation(vendorDateLayout, train.Date, daytime.NetworkLocation())
	if err != nil {
		return nil, err
	}
	expected := daytime.FromWallClock(expectedAt)

	freshness, err := daytime.DelayFrom(requestedAt, expected)
	if err != nil {
		return nil, err
	}
	if freshness < 0 {
		freshness = -freshness
	}

	passage := realtime.Passage{
		StationId:           stationId,
		DayTrainNum:         expected.Day + "_" + train.Num,
		Station8d:           station8d,
		Day:                 expected.Day,
		TrainNum:            train.Num,
		ExpectedPassageDay:  expected.Day,
		ExpectedPassageTime: daytime.FormatExtended(expected.Seconds),
		RequestDay:          request.Day,
		RequestTime:         daytime.FormatExtended(request.Seconds),
		DataFreshness:       freshness,
	}
	if train.Miss != "" {
		passage.Miss = &train.Miss
	}
	if train.Term != "" {
		passage.Term = &train.Term
	}
	if train.Etat != "" {
		passage.Etat = &train.Etat
	}
	return &passage, nil
}
