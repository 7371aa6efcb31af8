package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/back2basic/qosmon/agg"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type groupDoc struct {
	ID      uint32 `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Flows   uint64 `json:"flows" yaml:"flows"`
	Packets uint64 `json:"packets" yaml:"packets"`
	Bytes   uint64 `json:"bytes" yaml:"bytes"`
}

type flowDoc struct {
	SrcIP    string `json:"src_ip" yaml:"src_ip"`
	SrcPort  uint16 `json:"src_port" yaml:"src_port"`
	SrcName  string `json:"src_name,omitempty" yaml:"src_name,omitempty"`
	DstIP    string `json:"dst_ip" yaml:"dst_ip"`
	DstPort  uint16 `json:"dst_port" yaml:"dst_port"`
	DstName  string `json:"dst_name,omitempty" yaml:"dst_name,omitempty"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Class    string `json:"class" yaml:"class"`
	Packets  uint64 `json:"packets" yaml:"packets"`
	Bytes    uint64 `json:"bytes" yaml:"bytes"`
}

// reportDoc is the machine-readable report. Groupings are lists sorted by id.
type reportDoc struct {
	Generated    string     `json:"generated" yaml:"generated"`
	TotalFlows   uint64     `json:"total_flows" yaml:"total_flows"`
	TotalPackets uint64     `json:"total_packets" yaml:"total_packets"`
	TotalBytes   uint64     `json:"total_bytes" yaml:"total_bytes"`
	Truncated    bool       `json:"truncated" yaml:"truncated"`
	ByClass      []groupDoc `json:"by_class" yaml:"by_class"`
	ByProtocol   []groupDoc `json:"by_protocol" yaml:"by_protocol"`
	TopFlows     []flowDoc  `json:"top_flows" yaml:"top_flows"`
}

func group(id uint32, name string, g agg.Group) groupDoc {
	return groupDoc{ID: id, Name: name, Flows: g.Flows, Packets: g.Packets, Bytes: g.Bytes}
}

func document(r Report) reportDoc {
	s := r.Summary
	doc := reportDoc{
		Generated:    r.Generated.UTC().Format(time.RFC3339),
		TotalFlows:   s.Total.Flows,
		TotalPackets: s.Total.Packets,
		TotalBytes:   s.Total.Bytes,
		Truncated:    r.Truncated,
		ByClass:      []groupDoc{},
		ByProtocol:   []groupDoc{},
		TopFlows:     []flowDoc{},
	}
	for _, c := range reportClasses(s) {
		doc.ByClass = append(doc.ByClass, group(uint32(c), c.String(), s.ByClass[c]))
	}
	for _, p := range sortedKeys(s.ByProtocol) {
		doc.ByProtocol = append(doc.ByProtocol, group(uint32(p), p.String(), s.ByProtocol[p]))
	}
	for _, f := range r.TopFlows {
		doc.TopFlows = append(doc.TopFlows, flowDoc{
			SrcIP:    f.Key.SrcIP.String(),
			SrcPort:  f.Key.SrcPort,
			SrcName:  r.Names[f.Key.SrcIP],
			DstIP:    f.Key.DstIP.String(),
			DstPort:  f.Key.DstPort,
			DstName:  r.Names[f.Key.DstIP],
			Protocol: f.Key.Protocol.String(),
			Class:    f.Record.Class.String(),
			Packets:  f.Record.PacketCount,
			Bytes:    f.Record.ByteCount,
		})
	}
	return doc
}

// WriteStructured encodes the report as JSON or YAML.
func WriteStructured(w io.Writer, r Report, format string) error {
	doc := document(r)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown structured format %q", format)
	}
	return nil
}

// Write renders r in any supported format.
func Write(w io.Writer, r Report, format string) error {
	if format == FormatText {
		return WriteReport(w, r)
	}
	return WriteStructured(w, r, format)
}
