package features

import (
	"context"
	"log"

	"github.com/suburail/delaycast/business/data/realtime"
	"github.com/suburail/delaycast/business/data/schedule"
)

// JoinedResult pairs one scheduled stop with its realtime passage when the
// store holds one under the same (station_id, day_train_num) key.
type JoinedResult struct {
	Scheduled   *schedule.ScheduledStop
	Realtime    *realtime.Passage
	HasRealtime bool
}

// JoinRealtime looks the scheduled stops up in the realtime store in one
// batched pass and attaches what it finds, preserving input order. Keys the
// store could not serve are reported and treated as realtime absent.
func JoinRealtime(ctx context.Context,
	log *log.Logger,
	store realtime.Store,
	scheduled []*schedule.ScheduledStop) []*JoinedResult {

	keys := make([]realtime.Key, 0, len(scheduled))
	for _, stop := range scheduled {
		keys = append(keys, realtime.Key{StationId: stop.StationId, DayTrainNum: stop.DayTrainNum})
	}

	passages, err := store.BatchGet(ctx, keys)
	if err != nil {
		log.Printf("realtime multi-get returned %d passages with error, continuing without the rest: %v",
			len(passages), err)
	}
	passagesByKey := make(map[realtime.Key]*realtime.Passage, len(passages))
	for _, passage := range passages {
		passagesByKey[realtime.Key{StationId: passage.StationId, DayTrainNum: passage.DayTrainNum}] = passage
	}

	results := make([]*JoinedResult, 0, len(scheduled))
	for _, stop := range scheduled {
		passage := passagesByKey[realtime.Key{StationId: stop.StationId, DayTrainNum: stop.DayTrainNum}]
		results = append(results, &JoinedResult{
			Scheduled:   stop,
			Realtime:    passage,
			HasRealtime: passage != nil,
		})
	}
	return results
}
