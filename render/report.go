package render

import (
	"cmp"
	"io"
	"maps"
	"net/netip"
	"slices"
	"time"

	"github.com/back2basic/qosmon/agg"
	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/rate"
)

// Report is the one-shot flow analysis.
type Report struct {
	Generated time.Time
	Summary   agg.Summary
	TopFlows  []model.Flow
	// Names maps addresses to reverse-DNS names when resolution was requested.
	Names     map[netip.Addr]string
	Truncated bool
}

// reportClasses lists every named class plus any unknown class that carried
// flows, ascending. Named classes with no flows stay in so operators can see
// them.
func reportClasses(s agg.Summary) []model.TrafficClass {
	classes := model.Classes()
	for c := range s.ByClass {
		if !c.Known() {
			classes = append(classes, c)
		}
	}
	slices.Sort(classes)
	return classes
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func (r Report) endpoint(addr netip.Addr, hostPort string) string {
	if name := r.Names[addr]; name != "" {
		return name + " (" + hostPort + ")"
	}
	return hostPort
}

// WriteReport renders the report as text tables.
func WriteReport(w io.Writer, r Report) error {
	ew := &errWriter{w: w}
	s := r.Summary

	ew.println()
	ew.println(heavyRule)
	ew.println("Flow Analysis Report")
	ew.println(heavyRule)
	ew.println()
	ew.printf("Total Flows: %s\n", count(s.Total.Flows))
	ew.printf("Total Packets: %s\n", count(s.Total.Packets))
	ew.printf("Total Bytes: %s\n", rate.FormatBytes(float64(s.Total.Bytes)))
	if r.Truncated {
		ew.println("Note: flow table read stopped at the configured limit; totals cover the entries read.")
	}

	ew.println()
	ew.println(lightRule)
	ew.println("Traffic by Class:")
	ew.println(lightRule)
	ew.printf("%-15s %-10s %-15s %-15s\n", "Class", "Flows", "Packets", "Bytes")
	ew.println(lightRule)
	for _, c := range reportClasses(s) {
		g := s.ByClass[c]
		ew.printf("%-15s %-10s %-15s %-15s\n", c, count(g.Flows), count(g.Packets), rate.FormatBytes(float64(g.Bytes)))
	}

	ew.println()
	ew.println(lightRule)
	ew.println("Traffic by Protocol:")
	ew.println(lightRule)
	ew.printf("%-15s %-10s %-15s %-15s\n", "Protocol", "Flows", "Packets", "Bytes")
	ew.println(lightRule)
	for _, p := range sortedKeys(s.ByProtocol) {
		g := s.ByProtocol[p]
		ew.printf("%-15s %-10s %-15s %-15s\n", p, count(g.Flows), count(g.Packets), rate.FormatBytes(float64(g.Bytes)))
	}

	ew.println()
	ew.println(lightRule)
	ew.printf("Top %d Flows by Packets:\n", len(r.TopFlows))
	ew.println(lightRule)
	ew.printf("%-22s %-22s %-8s %-12s %-12s %-12s\n", "Source", "Dest", "Proto", "Class", "Packets", "Bytes")
	ew.println(lightRule)
	for _, f := range r.TopFlows {
		ew.printf("%-22s %-22s %-8s %-12s %-12s %-12s\n",
			r.endpoint(f.Key.SrcIP, f.Key.Source()), r.endpoint(f.Key.DstIP, f.Key.Destination()),
			f.Key.Protocol, f.Record.Class,
			count(f.Record.PacketCount), rate.FormatBytes(float64(f.Record.ByteCount)))
	}

	ew.println()
	ew.println(heavyRule)
	return ew.err
}
