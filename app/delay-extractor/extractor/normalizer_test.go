package extractor

import (
	logger "log"
	"os"
	"testing"
	"time"

	"github.com/suburail/delaycast/business/data/daytime"

	"github.com/matryer/is"
)

func testLogger() *logger.Logger {
	return logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
}

func TestNormalizePassages(t *testing.T) {
	is := is.New(t)

	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<passages gare="87276138">
  <train>
    <date mode="R">01/07/2016 01:32</date>
    <num>123456</num>
    <miss>POPI</miss>
    <term>87001479</term>
  </train>
  <train>
    <date mode="R">01/07/2016 02:10</date>
    <num>654321</num>
    <etat>Supprim&#233;</etat>
  </train>
  <train>
    <date mode="R">not a date</date>
    <num>999999</num>
  </train>
</passages>`)

	requestedAt := time.Date(2016, 7, 1, 1, 40, 0, 0, daytime.NetworkLocation())
	passages := normalizePassages(testLogger(), pollResult{
		station8d:   "87276138",
		requestedAt: requestedAt,
		body:        body,
	})

	// the unparseable entry drops, the rest come through
	is.Equal(len(passages), 2)

	first := passages[0]
	is.Equal(first.StationId, "8727613")
	is.Equal(first.Station8d, "87276138")
	is.Equal(first.TrainNum, "123456")

	// 01:32 belongs to the previous service day on the extended clock
	is.Equal(first.Day, "20160630")
	is.Equal(first.DayTrainNum, "20160630_123456")
	is.Equal(first.ExpectedPassageDay, "20160630")
	is.Equal(first.ExpectedPassageTime, "25:32:00")
	is.Equal(first.RequestDay, "20160630")
	is.Equal(first.RequestTime, "25:40:00")
	is.Equal(first.DataFreshness, 480)

	is.True(first.Miss != nil)
	is.Equal(*first.Miss, "POPI")
	is.True(first.Term != nil)
	is.Equal(*first.Term, "87001479")
	is.True(first.Etat == nil)

	second := passages[1]
	is.Equal(second.DayTrainNum, "20160630_654321")
	is.True(second.Miss == nil)
	is.True(second.Etat != nil)
	is.Equal(*second.Etat, "Supprimé")
}

func TestNormalizePassagesSkipsBadPayloads(t *testing.T) {
	is := is.New(t)

	// a failed poll carries no body
	is.Equal(len(normalizePassages(testLogger(), pollResult{station8d: "87276138"})), 0)

	// some stations answer with an html error page
	result := pollResult{
		station8d:   "87276138",
		requestedAt: time.Now(),
		body:        []byte("<html><body>maintenance</body></html>"),
	}
	is.Equal(len(normalizePassages(testLogger(), result)), 0)

	// an empty departure board yields nothing
	result.body = []byte(`<passages gare="87276138"></passages>`)
	is.Equal(len(normalizePassages(testLogger(), result)), 0)
}
