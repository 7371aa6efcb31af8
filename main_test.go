package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/back2basic/qosmon/bpfgo"
	"github.com/back2basic/qosmon/config"
	"github.com/back2basic/qosmon/dns"
	"github.com/back2basic/qosmon/model"
)

var quiet = slog.New(slog.DiscardHandler)

func flowOpener(t *testing.T) (*bpfgo.MemOpener, *bpfgo.MemTable) {
	t.Helper()
	tbl := bpfgo.NewMemTable(bpfgo.TableFlows)
	put := func(src string, sport uint16, proto model.Protocol, class model.TrafficClass, packets, bytes uint64) {
		k := model.FlowKey{
			SrcIP:    netip.MustParseAddr(src),
			DstIP:    netip.MustParseAddr("10.0.0.1"),
			SrcPort:  sport,
			DstPort:  443,
			Protocol: proto,
		}
		tbl.Put(bpfgo.EncodeFlowKey(k), bpfgo.EncodeFlowRecord(model.FlowRecord{
			PacketCount: packets,
			ByteCount:   bytes,
			Class:       class,
		}))
	}
	put("192.168.1.2", 5000, model.ProtoTCP, model.ClassWeb, 1500, 2_000_000)
	put("192.168.1.3", 6000, model.ProtoUDP, model.ClassVoIP, 300, 60_000)
	put("192.168.1.4", 7000, model.ProtoTCP, model.ClassBulk, 9000, 9_000_000)
	return &bpfgo.MemOpener{Tables: map[string]*bpfgo.MemTable{bpfgo.TableFlows: tbl}}, tbl
}

func reportConfig(format string) *config.Config {
	return &config.Config{
		Mode:            config.ModeReport,
		PinDir:          bpfgo.DefaultPinDir,
		ReportFlowLimit: 100,
		ReportTop:       2,
		Format:          format,
	}
}

func TestRunReportJSON(t *testing.T) {
	opener, tbl := flowOpener(t)
	var out bytes.Buffer
	if err := runReport(context.Background(), opener, reportConfig("json"), nil, &out, quiet); err != nil {
		t.Fatalf("runReport: %v", err)
	}
	if !tbl.Closed() {
		t.Error("flow table left open")
	}

	var doc struct {
		TotalFlows   uint64 `json:"total_flows"`
		TotalPackets uint64 `json:"total_packets"`
		TopFlows     []struct {
			Src string `json:"src_ip"`
		} `json:"top_flows"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if doc.TotalFlows != 3 || doc.TotalPackets != 10_800 {
		t.Errorf("totals = %d flows %d packets, want 3 and 10800", doc.TotalFlows, doc.TotalPackets)
	}
	if len(doc.TopFlows) != 2 || doc.TopFlows[0].Src != "192.168.1.4" {
		t.Errorf("top flows = %+v", doc.TopFlows)
	}
}

func TestRunReportResolvesNames(t *testing.T) {
	opener, _ := flowOpener(t)
	lookups := 0
	resolver := dns.NewResolver(func(_ context.Context, addr string) ([]string, error) {
		lookups++
		if addr == "10.0.0.1" {
			return []string{"gw.example.net."}, nil
		}
		return nil, errors.New("no PTR")
	})

	var out bytes.Buffer
	if err := runReport(context.Background(), opener, reportConfig("text"), resolver, &out, quiet); err != nil {
		t.Fatalf("runReport: %v", err)
	}
	if !strings.Contains(out.String(), "gw.example.net") {
		t.Errorf("report missing resolved name:\n%s", out.String())
	}
	// two top flows share a destination: three distinct addresses
	if lookups != 3 {
		t.Errorf("lookups = %d, want 3", lookups)
	}
}

func TestRunReportMissingTable(t *testing.T) {
	opener := &bpfgo.MemOpener{Tables: map[string]*bpfgo.MemTable{}}
	var out bytes.Buffer
	err := runReport(context.Background(), opener, reportConfig("text"), nil, &out, quiet)
	if !errors.Is(err, bpfgo.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunExport(t *testing.T) {
	opener, tbl := flowOpener(t)
	path := filepath.Join(t.TempDir(), "flows.csv")
	cfg := &config.Config{Mode: config.ModeExport, ReportFlowLimit: 100, Output: path}
	if err := runExport(context.Background(), opener, cfg, quiet); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if !tbl.Closed() {
		t.Error("flow table left open")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "src_ip,src_port,dst_ip,dst_port,protocol,class,packets,bytes" {
		t.Errorf("header = %q", got)
	}
	if rows[1][0] != "192.168.1.4" {
		t.Errorf("first row should be the busiest flow, got %v", rows[1])
	}
}

func TestRunMissingPinDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	err := run([]string{"report", "-d", dir})
	if !errors.Is(err, bpfgo.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), bpfgo.TableFlows) {
		t.Errorf("error should name the table: %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run([]string{"replay"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}
