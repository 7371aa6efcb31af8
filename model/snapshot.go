package model

import "time"

// Snapshot is one tick's capture of the scheduler tables. It is never mutated
// after the source returns it.
type Snapshot struct {
	Taken  time.Time
	CPU    CpuCounters
	Queues map[TrafficClass]QueueCounters

	// Flows is whatever a single bounded iteration pass surfaced. It is not
	// guaranteed to be the whole table, so rankings over it are approximate.
	Flows []Flow

	// Truncated is set when the iteration stopped at the buffering ceiling.
	Truncated bool
	// Skipped counts distinct keys whose value vanished between key fetch
	// and lookup.
	Skipped int
	// Restarts counts how often the pass fell back to keys it had already
	// visited. Incomplete is set when it gave up for restarting too often.
	Restarts   int
	Incomplete bool
}

// Queue returns the counters for c, or the zero value if the class was not read.
func (s *Snapshot) Queue(c TrafficClass) QueueCounters {
	return s.Queues[c]
}
