// Package prom exposes the most recent snapshot as Prometheus metrics.
package prom

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/back2basic/qosmon/model"
)

// Collector reports whatever snapshot was last published. It never touches
// the tables itself, so scrapes do not compete with the polling loop.
type Collector struct {
	latest atomic.Pointer[model.Snapshot]

	packets     *prometheus.Desc
	bytes       *prometheus.Desc
	classified  *prometheus.Desc
	dropped     *prometheus.Desc
	verdicts    *prometheus.Desc
	queuePkts   *prometheus.Desc
	queueBytes  *prometheus.Desc
	queueLen    *prometheus.Desc
	queueMaxLen *prometheus.Desc
	queueLat    *prometheus.Desc
	flows       *prometheus.Desc
}

func New() *Collector {
	return &Collector{
		packets:     prometheus.NewDesc("qosmon_packets_total", "Packets seen by the scheduler", nil, nil),
		bytes:       prometheus.NewDesc("qosmon_bytes_total", "Bytes seen by the scheduler", nil, nil),
		classified:  prometheus.NewDesc("qosmon_classified_packets_total", "Packets assigned a traffic class", nil, nil),
		dropped:     prometheus.NewDesc("qosmon_dropped_packets_total", "Packets dropped by the scheduler", nil, nil),
		verdicts:    prometheus.NewDesc("qosmon_xdp_verdicts_total", "XDP verdicts by action", []string{"action"}, nil),
		queuePkts:   prometheus.NewDesc("qosmon_queue_packets_total", "Queue packets by class and event", []string{"class", "event"}, nil),
		queueBytes:  prometheus.NewDesc("qosmon_queue_bytes_total", "Queue bytes by class and event", []string{"class", "event"}, nil),
		queueLen:    prometheus.NewDesc("qosmon_queue_length", "Current queue length", []string{"class"}, nil),
		queueMaxLen: prometheus.NewDesc("qosmon_queue_length_max", "Highest queue length seen", []string{"class"}, nil),
		queueLat:    prometheus.NewDesc("qosmon_queue_latency_seconds_total", "Summed per-packet queueing latency", []string{"class"}, nil),
		flows:       prometheus.NewDesc("qosmon_flows_sampled", "Flow entries read in the last poll", nil, nil),
	}
}

// Publish replaces the snapshot served to scrapes.
func (c *Collector) Publish(s *model.Snapshot) {
	c.latest.Store(s)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.packets, c.bytes, c.classified, c.dropped, c.verdicts,
		c.queuePkts, c.queueBytes, c.queueLen, c.queueMaxLen, c.queueLat, c.flows,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.latest.Load()
	if s == nil {
		return
	}

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.packets, s.CPU.TotalPackets)
	counter(c.bytes, s.CPU.TotalBytes)
	counter(c.classified, s.CPU.ClassifiedPackets)
	counter(c.dropped, s.CPU.DroppedPackets)
	counter(c.verdicts, s.CPU.XDPPass, "pass")
	counter(c.verdicts, s.CPU.XDPDrop, "drop")
	counter(c.verdicts, s.CPU.XDPTx, "tx")
	counter(c.verdicts, s.CPU.XDPRedirect, "redirect")

	for class, q := range s.Queues {
		name := class.String()
		counter(c.queuePkts, q.EnqueuedPackets, name, "enqueued")
		counter(c.queuePkts, q.DequeuedPackets, name, "dequeued")
		counter(c.queuePkts, q.DroppedPackets, name, "dropped")
		counter(c.queueBytes, q.EnqueuedBytes, name, "enqueued")
		counter(c.queueBytes, q.DequeuedBytes, name, "dequeued")
		counter(c.queueBytes, q.DroppedBytes, name, "dropped")
		gauge(c.queueLen, float64(q.CurrentQLen), name)
		gauge(c.queueMaxLen, float64(q.MaxQLen), name)
		ch <- prometheus.MustNewConstMetric(c.queueLat, prometheus.CounterValue,
			float64(q.TotalLatencyNs)/float64(time.Second), name)
	}

	gauge(c.flows, float64(len(s.Flows)))
}

// Serve registers c on its own registry and serves /metrics on addr until ctx
// is done.
func Serve(ctx context.Context, addr string, c *Collector, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

