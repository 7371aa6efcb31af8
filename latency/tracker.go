// Package latency keeps a running distribution of per-tick queueing latency
// for each traffic class.
package latency

import (
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/rate"
)

// Histogram range: 1µs to 60s, 3 significant figures.
const (
	histMin    = 1
	histMax    = 60_000_000
	histSigFig = 3
)

// Tracker records, every tick, the mean latency of packets dequeued during
// that tick. It uses the engine's deltas so restarts are handled the same way
// as everywhere else.
type Tracker struct {
	engine *rate.Engine
	hists  map[model.TrafficClass]*hdrhistogram.Histogram
}

func NewTracker(engine *rate.Engine) *Tracker {
	return &Tracker{engine: engine, hists: make(map[model.TrafficClass]*hdrhistogram.Histogram)}
}

// Observe feeds one snapshot's queue counters.
func (t *Tracker) Observe(snap *model.Snapshot) {
	for c, q := range snap.Queues {
		latNs, _, okL := t.engine.Delta(fmt.Sprintf("latency/%d/ns", c), q.TotalLatencyNs, snap.Taken)
		deq, _, okD := t.engine.Delta(fmt.Sprintf("latency/%d/dequeued", c), q.DequeuedPackets, snap.Taken)
		if !okL || !okD || deq == 0 {
			continue
		}
		us := int64(latNs / deq / 1000)
		if us < histMin {
			us = histMin
		}
		h, ok := t.hists[c]
		if !ok {
			h = hdrhistogram.New(histMin, histMax, histSigFig)
			t.hists[c] = h
		}
		_ = h.RecordValue(min(us, histMax))
	}
}

// Summary is the distribution of per-tick mean latency for one class.
type Summary struct {
	Samples int64
	P50     time.Duration
	P99     time.Duration
	Max     time.Duration
}

// Summary reports the distribution for c, or false if nothing was recorded.
func (t *Tracker) Summary(c model.TrafficClass) (Summary, bool) {
	h, ok := t.hists[c]
	if !ok || h.TotalCount() == 0 {
		return Summary{}, false
	}
	return Summary{
		Samples: h.TotalCount(),
		P50:     time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P99:     time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Max:     time.Duration(h.Max()) * time.Microsecond,
	}, true
}
