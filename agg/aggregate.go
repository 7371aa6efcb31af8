// Package agg folds flow listings into per-class and per-protocol totals.
package agg

import "github.com/back2basic/qosmon/model"

// Group is the running total for one class or protocol.
type Group struct {
	Flows   uint64
	Packets uint64
	Bytes   uint64
}

func (g *Group) add(r model.FlowRecord) {
	g.Flows++
	g.Packets += r.PacketCount
	g.Bytes += r.ByteCount
}

// Summary holds the groupings for one listing. Map iteration order carries no
// meaning; callers sort keys before display.
type Summary struct {
	Total      Group
	ByClass    map[model.TrafficClass]Group
	ByProtocol map[model.Protocol]Group
}

// Summarize groups flows by traffic class and by protocol.
func Summarize(flows []model.Flow) Summary {
	s := Summary{
		ByClass:    make(map[model.TrafficClass]Group),
		ByProtocol: make(map[model.Protocol]Group),
	}
	for _, f := range flows {
		s.Total.add(f.Record)

		c := s.ByClass[f.Record.Class]
		c.add(f.Record)
		s.ByClass[f.Record.Class] = c

		p := s.ByProtocol[f.Key.Protocol]
		p.add(f.Record)
		s.ByProtocol[f.Key.Protocol] = p
	}
	return s
}

// Sum adds up a set of groups.
func Sum[K comparable](groups map[K]Group) Group {
	var t Group
	for _, g := range groups {
		t.Flows += g.Flows
		t.Packets += g.Packets
		t.Bytes += g.Bytes
	}
	return t
}
