// Package live runs the polling dashboard.
package live

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/back2basic/qosmon/agg"
	"github.com/back2basic/qosmon/bpfgo"
	"github.com/back2basic/qosmon/latency"
	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/prom"
	"github.com/back2basic/qosmon/rank"
	"github.com/back2basic/qosmon/rate"
	"github.com/back2basic/qosmon/render"
	"github.com/back2basic/qosmon/storage"
)

// TopFlows is how many flows a live frame lists.
const TopFlows = 10

const clearScreen = "\033[H\033[2J"

type Options struct {
	Interval    time.Duration
	FlowLimit   int
	ClearScreen bool
	Hostname    string

	HistoryInterval time.Duration
	PushInterval    time.Duration
}

// Monitor polls the scheduler tables and redraws the dashboard. Ticks run
// one after another on the caller's goroutine; a slow frame delays the next.
type Monitor struct {
	opener  bpfgo.Opener
	out     io.Writer
	opts    Options
	engine  *rate.Engine
	latency *latency.Tracker
	log     *slog.Logger
	now     func() time.Time

	metrics   *prom.Collector
	history   HistoryStore
	publisher *storage.Publisher
	pending   map[model.TrafficClass]model.ClassUsage
	lastFlush time.Time
	lastPush  time.Time
}

func New(opener bpfgo.Opener, out io.Writer, engine *rate.Engine, log *slog.Logger, opts Options) *Monitor {
	return &Monitor{
		opener:  opener,
		out:     out,
		opts:    opts,
		engine:  engine,
		latency: latency.NewTracker(engine),
		log:     log,
		now:     time.Now,
	}
}

// WithMetrics publishes every snapshot to c.
func (m *Monitor) WithMetrics(c *prom.Collector) *Monitor {
	m.metrics = c
	return m
}

// WithHistory records per-class deltas to h and, when p is not nil, pushes
// the day's totals through p.
func (m *Monitor) WithHistory(h HistoryStore, p *storage.Publisher) *Monitor {
	m.history = h
	m.publisher = p
	return m
}

// Run opens the tables, ticks until ctx is done and closes the tables on the
// way out, whatever the exit path. Failing to open any table ends Run before
// the first tick.
func (m *Monitor) Run(ctx context.Context) error {
	src, err := bpfgo.Open(m.opener, m.opts.FlowLimit, bpfgo.LiveTables...)
	if err != nil {
		return fmt.Errorf("open scheduler tables: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.log.Warn("closing tables", "err", err)
		}
	}()

	m.log.Info("monitoring started", "interval", m.opts.Interval, "flow_limit", m.opts.FlowLimit)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitoring stopped")
			return nil
		case <-timer.C:
		}

		if err := m.Tick(ctx, src); err != nil && ctx.Err() == nil {
			m.log.Debug("tick skipped", "err", err)
		}
		timer.Reset(m.opts.Interval)
	}
}

// Tick takes one snapshot and draws one frame.
func (m *Monitor) Tick(ctx context.Context, src *bpfgo.Source) error {
	snap, err := src.Snapshot(ctx, m.now())
	if err != nil {
		return err
	}
	if snap.Skipped > 0 || snap.Restarts > 0 {
		m.log.Debug("flow table changed during read", "skipped", snap.Skipped, "restarts", snap.Restarts)
	}
	if snap.Incomplete {
		m.log.Warn("flow table churned too fast, listing is partial", "restarts", snap.Restarts)
	}

	m.latency.Observe(snap)
	if m.metrics != nil {
		m.metrics.Publish(snap)
	}

	if err := m.draw(m.frame(snap)); err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	if m.history != nil {
		m.record(snap)
	}
	return nil
}

func (m *Monitor) frame(snap *model.Snapshot) render.Dashboard {
	d := render.Dashboard{
		Taken:      snap.Taken,
		CPU:        snap.CPU,
		PacketRate: m.engine.Rate("global/packets", snap.CPU.TotalPackets, snap.Taken),
		ByteRate:   m.engine.Rate("global/bytes", snap.CPU.TotalBytes, snap.Taken),
		TopFlows:   rank.Top(snap.Flows, TopFlows),
		Summary:    agg.Summarize(snap.Flows),
		Sampled:    len(snap.Flows),
		Truncated:  snap.Truncated,
	}
	for _, c := range model.Classes() {
		q, ok := snap.Queues[c]
		if !ok {
			continue
		}
		row := render.ClassRow{
			Class:    c,
			Queue:    q,
			ByteRate: m.engine.Rate(fmt.Sprintf("queue/%d/bytes", c), q.EnqueuedBytes, snap.Taken),
		}
		if s, ok := m.latency.Summary(c); ok {
			row.Latency = &s
		}
		d.Classes = append(d.Classes, row)
	}
	return d
}

func (m *Monitor) draw(d render.Dashboard) error {
	var buf bytes.Buffer
	if m.opts.ClearScreen {
		buf.WriteString(clearScreen)
	}
	if err := render.WriteDashboard(&buf, d); err != nil {
		return err
	}
	_, err := m.out.Write(buf.Bytes())
	return err
}
