// Package rank orders flows by volume.
//
// Rankings are over the listing handed in, which for the live view is a
// bounded sample of the flow table. A flow the sample did not reach cannot
// appear, so the result is the top of the sample, not of the whole table.
package rank

import (
	"cmp"
	"slices"

	"github.com/back2basic/qosmon/model"
)

// Compare orders a before b when a carried more packets, then more bytes,
// then by key fields ascending: source address, source port, destination
// address, destination port, protocol.
func Compare(a, b model.Flow) int {
	if c := cmp.Compare(b.Record.PacketCount, a.Record.PacketCount); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Record.ByteCount, a.Record.ByteCount); c != 0 {
		return c
	}
	ka, kb := a.Key, b.Key
	if c := ka.SrcIP.Compare(kb.SrcIP); c != 0 {
		return c
	}
	if c := cmp.Compare(ka.SrcPort, kb.SrcPort); c != 0 {
		return c
	}
	if c := ka.DstIP.Compare(kb.DstIP); c != 0 {
		return c
	}
	if c := cmp.Compare(ka.DstPort, kb.DstPort); c != 0 {
		return c
	}
	return cmp.Compare(ka.Protocol, kb.Protocol)
}

// Top returns the n highest-ranked flows. The input is not modified.
func Top(flows []model.Flow, n int) []model.Flow {
	if n <= 0 || len(flows) == 0 {
		return []model.Flow{}
	}
	out := slices.Clone(flows)
	slices.SortFunc(out, Compare)
	if n < len(out) {
		out = out[:n:n]
	}
	return out
}

// All returns every flow in rank order.
func All(flows []model.Flow) []model.Flow {
	return Top(flows, len(flows))
}
