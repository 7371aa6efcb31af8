package model

import (
	"fmt"
	"net/netip"
	"time"
)

// CpuCounters are the scheduler's cumulative global totals. The producer keeps
// them per CPU; a Snapshot always carries the sum across CPUs.
type CpuCounters struct {
	TotalPackets      uint64
	TotalBytes        uint64
	ClassifiedPackets uint64
	DroppedPackets    uint64
	XDPPass           uint64
	XDPDrop           uint64
	XDPTx             uint64
	XDPRedirect       uint64
}

// Add folds o into c field by field.
func (c *CpuCounters) Add(o CpuCounters) {
	c.TotalPackets += o.TotalPackets
	c.TotalBytes += o.TotalBytes
	c.ClassifiedPackets += o.ClassifiedPackets
	c.DroppedPackets += o.DroppedPackets
	c.XDPPass += o.XDPPass
	c.XDPDrop += o.XDPDrop
	c.XDPTx += o.XDPTx
	c.XDPRedirect += o.XDPRedirect
}

// QueueCounters are per-class queue totals. CurrentQLen and MaxQLen are gauges,
// everything else is cumulative.
type QueueCounters struct {
	EnqueuedPackets uint64
	EnqueuedBytes   uint64
	DequeuedPackets uint64
	DequeuedBytes   uint64
	DroppedPackets  uint64
	DroppedBytes    uint64
	CurrentQLen     uint32
	MaxQLen         uint32
	TotalLatencyNs  uint64
}

// Active reports whether the queue has ever seen traffic.
func (q QueueCounters) Active() bool {
	return q.EnqueuedPackets > 0
}

// AvgLatency is the mean per-packet queueing latency over the queue's lifetime.
func (q QueueCounters) AvgLatency() (time.Duration, bool) {
	if q.DequeuedPackets == 0 {
		return 0, false
	}
	return time.Duration(q.TotalLatencyNs / q.DequeuedPackets), true
}

// DropPercent is dropped packets as a percentage of enqueued packets.
func (q QueueCounters) DropPercent() float64 {
	if q.EnqueuedPackets == 0 {
		return 0
	}
	return float64(q.DroppedPackets) / float64(q.EnqueuedPackets) * 100
}

// FlowKey is a flow's 5-tuple. It is comparable; the wire padding is not kept.
type FlowKey struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol Protocol
}

func (k FlowKey) Source() string {
	return fmt.Sprintf("%s:%d", k.SrcIP, k.SrcPort)
}

func (k FlowKey) Destination() string {
	return fmt.Sprintf("%s:%d", k.DstIP, k.DstPort)
}

// FlowRecord is the scheduler's per-flow state. It is written concurrently by
// the packet path, so fields read together may come from different updates.
type FlowRecord struct {
	PacketCount     uint64
	ByteCount       uint64
	LastSeen        uint64
	Class           TrafficClass
	QueueID         uint32
	Tokens          uint32
	LastTokenUpdate uint32
	Priority        uint16
	Weight          uint16
	Deficit         uint32
}

// Flow pairs a key with the record read for it.
type Flow struct {
	Key    FlowKey
	Record FlowRecord
}
