package live

import (
	"fmt"
	"time"

	"github.com/back2basic/qosmon/model"
)

// HistoryStore keeps per-class deltas. storage.History is the SQLite one.
type HistoryStore interface {
	Record(hostname string, at time.Time, rows []model.ClassUsage) error
	DailyTotals(day time.Time) ([]model.ClassUsage, error)
}

// record flushes per-class deltas every HistoryInterval and pushes the day's
// totals every PushInterval. The first call only sets baselines. Deltas that
// fail to flush stay pending and are added to the next flush.
func (m *Monitor) record(snap *model.Snapshot) {
	at := snap.Taken
	first := m.lastFlush.IsZero()
	if !first && at.Sub(m.lastFlush) < m.opts.HistoryInterval {
		return
	}
	m.lastFlush = at
	if first {
		m.lastPush = at
	}

	if m.pending == nil {
		m.pending = make(map[model.TrafficClass]model.ClassUsage)
	}
	for _, c := range model.Classes() {
		q, ok := snap.Queues[c]
		if !ok {
			continue
		}
		pkts, _, okP := m.engine.Delta(fmt.Sprintf("history/%d/packets", c), q.EnqueuedPackets, at)
		byts, _, okB := m.engine.Delta(fmt.Sprintf("history/%d/bytes", c), q.EnqueuedBytes, at)
		drop, _, okD := m.engine.Delta(fmt.Sprintf("history/%d/dropped", c), q.DroppedPackets, at)
		if !okP || !okB || !okD {
			continue
		}
		u := m.pending[c]
		u.Class = c
		u.Packets += pkts
		u.Bytes += byts
		u.Dropped += drop
		m.pending[c] = u
	}

	var rows []model.ClassUsage
	for _, c := range model.Classes() {
		if u, ok := m.pending[c]; ok {
			rows = append(rows, u)
		}
	}
	if len(rows) > 0 {
		if err := m.history.Record(m.opts.Hostname, at, rows); err != nil {
			m.log.Warn("history flush failed, keeping deltas for the next flush", "err", err, "classes", len(rows))
		} else {
			clear(m.pending)
		}
	}

	if m.publisher == nil || at.Sub(m.lastPush) < m.opts.PushInterval {
		return
	}
	m.lastPush = at
	totals, err := m.history.DailyTotals(at)
	if err != nil {
		m.log.Warn("daily totals query failed", "err", err)
		return
	}
	if len(totals) == 0 {
		return
	}
	if _, err := m.publisher.PushDaily(m.opts.Hostname, at, totals); err != nil {
		m.log.Warn("daily push failed", "err", err)
	}
}
