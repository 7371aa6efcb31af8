package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/back2basic/qosmon/agg"
	"github.com/back2basic/qosmon/latency"
	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/rate"
)

const width = 80

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// ClassRow is one traffic class's queue state for a tick.
type ClassRow struct {
	Class    model.TrafficClass
	Queue    model.QueueCounters
	ByteRate float64
	Latency  *latency.Summary
}

// Dashboard is everything one live frame shows.
type Dashboard struct {
	Taken      time.Time
	CPU        model.CpuCounters
	PacketRate float64
	ByteRate   float64
	Classes    []ClassRow
	TopFlows   []model.Flow
	Summary    agg.Summary
	Sampled    int
	Truncated  bool
}

// WriteDashboard draws one frame. Classes that never saw traffic are left out.
func WriteDashboard(w io.Writer, d Dashboard) error {
	ew := &errWriter{w: w}

	ew.println(heavyRule)
	ew.println("XDP QoS Scheduler - Live Statistics")
	ew.println(heavyRule)
	ew.println()

	c := d.CPU
	ew.println("Overall Statistics:")
	ew.printf("  Total Packets:      %s\n", count(c.TotalPackets))
	ew.printf("  Total Bytes:        %s\n", rate.FormatBytes(float64(c.TotalBytes)))
	ew.printf("  Classified:         %s\n", count(c.ClassifiedPackets))
	ew.printf("  Dropped:            %s\n", count(c.DroppedPackets))
	ew.printf("  Packet Rate:        %.2f pps\n", d.PacketRate)
	ew.printf("  Data Rate:          %s\n", rate.FormatBitrate(d.ByteRate))
	ew.println()
	ew.println("  XDP Actions:")
	ew.printf("    PASS:     %s\n", count(c.XDPPass))
	ew.printf("    DROP:     %s\n", count(c.XDPDrop))
	ew.printf("    TX:       %s\n", count(c.XDPTx))
	ew.printf("    REDIRECT: %s\n", count(c.XDPRedirect))
	ew.println()
	ew.println(lightRule)

	ew.println()
	ew.println("Queue Statistics by Traffic Class:")
	ew.println()
	ew.printf("%-15s %-15s %-15s %-12s %-12s %s\n", "Class", "Enqueued", "Dequeued", "Dropped", "Rate", "QLen/Max")
	ew.println(lightRule)
	for _, row := range d.Classes {
		q := row.Queue
		if !q.Active() {
			continue
		}
		ew.printf("%-15s %-15s %-15s %-12s %-12s %d/%d\n",
			row.Class, count(q.EnqueuedPackets), count(q.DequeuedPackets),
			count(q.DroppedPackets), rate.FormatBitrate(row.ByteRate),
			q.CurrentQLen, q.MaxQLen)
		if avg, ok := q.AvgLatency(); ok {
			ew.printf("  └─ Avg Latency: %.2f μs, Drop Rate: %.2f%%\n", micros(avg), q.DropPercent())
		}
		if l := row.Latency; l != nil {
			ew.printf("  └─ Tick Latency p50/p99: %.2f/%.2f μs over %d ticks\n", micros(l.P50), micros(l.P99), l.Samples)
		}
	}
	ew.println()
	ew.println(lightRule)

	if t := d.Summary.Total; t.Flows > 0 {
		ew.println()
		ew.printf("Flow Sample: %s flows, %s packets, %s\n",
			count(t.Flows), count(t.Packets), rate.FormatBytes(float64(t.Bytes)))
		for _, p := range sortedKeys(d.Summary.ByProtocol) {
			g := d.Summary.ByProtocol[p]
			ew.printf("  %-8s %s flows, %s packets\n", p, count(g.Flows), count(g.Packets))
		}
	}

	if len(d.TopFlows) > 0 {
		ew.println()
		ew.printf("Top %d Flows", len(d.TopFlows))
		if d.Truncated {
			ew.printf(" (sampled from first %d table entries)", d.Sampled)
		}
		ew.println(":")
		ew.println()
		ew.printf("%-22s %-22s %-8s %-12s %-12s\n", "Source", "Dest", "Proto", "Class", "Packets")
		ew.println(lightRule)
		for _, f := range d.TopFlows {
			ew.printf("%-22s %-22s %-8s %-12s %-12s\n",
				f.Key.Source(), f.Key.Destination(), f.Key.Protocol,
				f.Record.Class, count(f.Record.PacketCount))
		}
	}

	ew.println()
	ew.println(heavyRule)
	ew.printf("Updated: %s | Press Ctrl+C to exit\n", d.Taken.Format(time.DateTime))
	return ew.err
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// errWriter remembers the first write error and drops everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) println(args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, args...)
}
