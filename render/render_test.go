package render

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/back2basic/qosmon/agg"
	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/rank"
)

func testFlows() []model.Flow {
	mk := func(src string, sport uint16, proto model.Protocol, class model.TrafficClass, pkts, bytes uint64) model.Flow {
		return model.Flow{
			Key: model.FlowKey{
				SrcIP: netip.MustParseAddr(src), DstIP: netip.MustParseAddr("10.0.0.1"),
				SrcPort: sport, DstPort: 443, Protocol: proto,
			},
			Record: model.FlowRecord{PacketCount: pkts, ByteCount: bytes, Class: class},
		}
	}
	return []model.Flow{
		mk("192.168.1.2", 5000, model.ProtoTCP, model.ClassWeb, 1500, 2_000_000),
		mk("192.168.1.3", 5001, model.ProtoUDP, model.ClassVoIP, 900, 90_000),
		mk("192.168.1.4", 0, 99, 12, 3, 180),
	}
}

func testReport() Report {
	flows := testFlows()
	return Report{
		Generated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Summary:   agg.Summarize(flows),
		TopFlows:  rank.Top(flows, 20),
	}
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, testReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Flows: 3",
		"Total Packets: 2,403",
		"BACKGROUND", // inactive named classes stay in the report
		"Class 12",
		"TCP",
		"UDP",
		"192.168.1.2:5000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}

	var protoLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "99 ") {
			protoLine = line
		}
	}
	if protoLine == "" {
		t.Error("unknown protocol 99 not rendered numerically")
	}

	classIdx := strings.Index(out, "CONTROL")
	unknownIdx := strings.Index(out, "Class 12")
	if classIdx < 0 || unknownIdx < classIdx {
		t.Error("class section not in ascending order")
	}
}

func TestWriteStructuredJSON(t *testing.T) {
	r := testReport()
	before := r.Summary.Total

	var buf bytes.Buffer
	if err := WriteStructured(&buf, r, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"total_flows", "total_packets", "total_bytes", "by_class", "by_protocol", "top_flows"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if doc["total_flows"].(float64) != 3 {
		t.Errorf("total_flows = %v", doc["total_flows"])
	}
	classes := doc["by_class"].([]any)
	if len(classes) != model.NumClasses+1 {
		t.Errorf("by_class has %d entries, want %d", len(classes), model.NumClasses+1)
	}
	top := doc["top_flows"].([]any)
	if first := top[0].(map[string]any); first["packets"].(float64) != 1500 || first["protocol"] != "TCP" {
		t.Errorf("first flow = %v", first)
	}
	if r.Summary.Total != before {
		t.Error("rendering changed the summary")
	}
}

func TestWriteStructuredYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStructured(&buf, testReport(), FormatYAML); err != nil {
		t.Fatal(err)
	}
	var doc reportDoc
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if doc.TotalPackets != 2403 || len(doc.ByProtocol) != 3 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.ByProtocol[0].Name != "TCP" || doc.ByProtocol[2].Name != "99" {
		t.Errorf("protocol order = %+v", doc.ByProtocol)
	}
}

func TestWriteStructuredEmpty(t *testing.T) {
	r := Report{Summary: agg.Summarize(nil)}
	var buf bytes.Buffer
	if err := WriteStructured(&buf, r, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var doc reportDoc
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.TotalFlows != 0 || doc.TotalBytes != 0 || len(doc.TopFlows) != 0 {
		t.Errorf("empty report = %+v", doc)
	}
	if err := WriteStructured(&buf, r, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rank.All(testFlows())); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "src_ip,src_port,dst_ip,dst_port,protocol,class,packets,bytes" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[1] != "192.168.1.2,5000,10.0.0.1,443,6,4,1500,2000000" {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestWriteDashboardOmitsIdleQueues(t *testing.T) {
	d := Dashboard{
		Taken:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CPU:      model.CpuCounters{TotalPackets: 1234567, TotalBytes: 2048},
		ByteRate: 1_000_000,
		Classes: []ClassRow{
			{Class: model.ClassControl},
			{Class: model.ClassVideo, Queue: model.QueueCounters{EnqueuedPackets: 10, DequeuedPackets: 10, TotalLatencyNs: 50_000}},
		},
		TopFlows: rank.Top(testFlows(), 10),
	}
	var buf bytes.Buffer
	if err := WriteDashboard(&buf, d); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "CONTROL") {
		t.Error("idle CONTROL queue should be omitted")
	}
	for _, want := range []string{"VIDEO", "8.00 Mbps", "1,234,567", "2.00 KB", "Avg Latency: 5.00 μs", "Top 3 Flows", "2026-01-02 03:04:05"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q\n%s", want, out)
		}
	}
}
