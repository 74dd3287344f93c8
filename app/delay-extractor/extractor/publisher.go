package extractor

import (
	"context"
	"encoding/json"
	"log"

	"github.com/suburail/delaycast/business/data/realtime"

	"github.com/nats-io/nats.go"
)

// passagesSubject is the nats subject cycle results are published on.
const passagesSubject = "realtime-passages"

// cycleResults is the payload published after every poll cycle.
type cycleResults struct {
	CycleStartDay  string              `json:"cycle_start_day"`
	CycleStartTime string              `json:"cycle_start_time"`
	Passages       []*realtime.Passage `json:"passages"`
}

// passagePublisher sends each cycle's normalized passages to their
// destinations, the realtime store and optionally nats.
type passagePublisher struct {
	log             *log.Logger
	store           realtime.Store
	natsConnection  *nats.Conn
	publishOverNats bool
}

func makePassagePublisher(log *log.Logger,
	store realtime.Store,
	natsConnection *nats.Conn,
	publishOverNats bool) *passagePublisher {
	return &passagePublisher{
		log:             log,
		store:           store,
		natsConnection:  natsConnection,
		publishOverNats: publishOverNats,
	}
}

// publish sends results over nats when configured and always records them to
// the realtime store. Store failures are returned after publication.
func (p *passagePublisher) publish(ctx context.Context, results *cycleResults) error {
	if p.publishOverNats {
		p.sendOverNats(results)
	}
	return p.store.Put(ctx, results.Passages)
}

func (p *passagePublisher) sendOverNats(results *cycleResults) {
	jsonData, err := json.Marshal(results)
	if err != nil {
		p.log.Printf("failed to marshal cycle results in passagePublisher.sendOverNats, error:%v", err)
		return
	}
	err = p.natsConnection.Publish(passagesSubject, jsonData)
	if err != nil {
		p.log.Printf("failed to send cycle results in passagePublisher.sendOverNats, error:%v", err)
	}
}
