package bpfgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/back2basic/qosmon/model"
)

// Table names the scheduler pins.
const (
	TableCPUStats   = "cpu_stats"
	TableQueueStats = "queue_stats"
	TableFlows      = "flow_table"
)

// LiveTables are the tables the dashboard needs.
var LiveTables = []string{TableCPUStats, TableQueueStats, TableFlows}

// Source owns open table handles and turns them into Snapshots.
type Source struct {
	tables    map[string]Table
	flowLimit int
}

// Open opens every named table or none of them.
func Open(o Opener, flowLimit int, names ...string) (*Source, error) {
	s := &Source{tables: make(map[string]Table, len(names)), flowLimit: flowLimit}
	for _, name := range names {
		t, err := o.Open(name)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.tables[name] = t
	}
	return s, nil
}

// Close releases every handle. It is safe to call more than once.
func (s *Source) Close() error {
	var errs []error
	for name, t := range s.tables {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(s.tables, name)
	}
	return errors.Join(errs...)
}

// Snapshot reads every open table once. Tables that were not opened leave
// their part of the snapshot empty.
func (s *Source) Snapshot(ctx context.Context, at time.Time) (*model.Snapshot, error) {
	snap := &model.Snapshot{Taken: at}

	if _, ok := s.tables[TableCPUStats]; ok {
		cpu, err := s.CPU(ctx)
		if err != nil {
			return nil, err
		}
		snap.CPU = cpu
	}
	if _, ok := s.tables[TableQueueStats]; ok {
		q, err := s.Queues(ctx)
		if err != nil {
			return nil, err
		}
		snap.Queues = q
	}
	if _, ok := s.tables[TableFlows]; ok {
		flows, cur, err := s.Flows(ctx)
		if err != nil {
			return nil, err
		}
		snap.Flows = flows
		snap.Truncated = cur.Truncated
		snap.Skipped = cur.Skipped
		snap.Restarts = cur.Restarts
		snap.Incomplete = cur.Unstable()
	}
	return snap, nil
}

func (s *Source) table(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not opened", ErrUnavailable, name)
	}
	return t, nil
}

// CPU reads slot 0 of cpu_stats, summed across CPUs.
func (s *Source) CPU(ctx context.Context) (model.CpuCounters, error) {
	t, err := s.table(TableCPUStats)
	if err != nil {
		return model.CpuCounters{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.CpuCounters{}, err
	}
	raw, err := t.Lookup(ClassKey(0))
	if err != nil {
		return model.CpuCounters{}, fmt.Errorf("read %s: %w", TableCPUStats, err)
	}
	return DecodeCPUCounters(raw)
}

// Queues reads every class slot. Missing slots are left out of the result.
func (s *Source) Queues(ctx context.Context) (map[model.TrafficClass]model.QueueCounters, error) {
	t, err := s.table(TableQueueStats)
	if err != nil {
		return nil, err
	}
	out := make(map[model.TrafficClass]model.QueueCounters, model.NumClasses)
	for _, c := range model.Classes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := t.Lookup(ClassKey(c))
		if errors.Is(err, ErrKeyAbsent) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s[%d]: %w", TableQueueStats, c, err)
		}
		q, err := DecodeQueueCounters(raw)
		if err != nil {
			return nil, err
		}
		out[c] = q
	}
	return out, nil
}

// Flows walks the flow table up to the configured ceiling. The result is
// whatever one pass surfaced, in table order.
func (s *Source) Flows(ctx context.Context) ([]model.Flow, *Cursor, error) {
	t, err := s.table(TableFlows)
	if err != nil {
		return nil, nil, err
	}
	cur := &Cursor{Table: t, Limit: s.flowLimit}
	var flows []model.Flow
	for k, v := range cur.All(ctx) {
		key, err := DecodeFlowKey(k)
		if err != nil {
			return nil, cur, err
		}
		rec, err := DecodeFlowRecord(v)
		if err != nil {
			return nil, cur, err
		}
		flows = append(flows, model.Flow{Key: key, Record: rec})
	}
	if err := cur.Err(); err != nil {
		return nil, cur, fmt.Errorf("read %s: %w", TableFlows, err)
	}
	return flows, cur, nil
}
