package bpfgo

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/back2basic/qosmon/model"
)

// Wire sizes of the scheduler's C structs. Integers are host byte order;
// addresses are stored as they appear on the wire.
const (
	CPUCountersSize   = 8 * 8
	QueueCountersSize = 6*8 + 2*4 + 8
	FlowKeySize       = 4 + 4 + 2 + 2 + 1 + 3
	FlowRecordSize    = 3*8 + 4*4 + 2*2 + 4
	ClassKeySize      = 4
)

var ne = binary.NativeEndian

// ClassKey encodes an array index key.
func ClassKey(c model.TrafficClass) []byte {
	b := make([]byte, ClassKeySize)
	ne.PutUint32(b, uint32(c))
	return b
}

// DecodeCPUCounters sums every CPU slot in b. A plain array value is a
// single slot.
func DecodeCPUCounters(b []byte) (model.CpuCounters, error) {
	var total model.CpuCounters
	if len(b) < CPUCountersSize || len(b)%CPUCountersSize != 0 {
		return total, fmt.Errorf("cpu counters: unexpected value size %d", len(b))
	}
	for off := 0; off < len(b); off += CPUCountersSize {
		s := b[off : off+CPUCountersSize]
		total.Add(model.CpuCounters{
			TotalPackets:      ne.Uint64(s[0:]),
			TotalBytes:        ne.Uint64(s[8:]),
			ClassifiedPackets: ne.Uint64(s[16:]),
			DroppedPackets:    ne.Uint64(s[24:]),
			XDPPass:           ne.Uint64(s[32:]),
			XDPDrop:           ne.Uint64(s[40:]),
			XDPTx:             ne.Uint64(s[48:]),
			XDPRedirect:       ne.Uint64(s[56:]),
		})
	}
	return total, nil
}

func EncodeCPUCounters(c model.CpuCounters) []byte {
	b := make([]byte, CPUCountersSize)
	ne.PutUint64(b[0:], c.TotalPackets)
	ne.PutUint64(b[8:], c.TotalBytes)
	ne.PutUint64(b[16:], c.ClassifiedPackets)
	ne.PutUint64(b[24:], c.DroppedPackets)
	ne.PutUint64(b[32:], c.XDPPass)
	ne.PutUint64(b[40:], c.XDPDrop)
	ne.PutUint64(b[48:], c.XDPTx)
	ne.PutUint64(b[56:], c.XDPRedirect)
	return b
}

func DecodeQueueCounters(b []byte) (model.QueueCounters, error) {
	if len(b) < QueueCountersSize {
		return model.QueueCounters{}, fmt.Errorf("queue counters: short value (%d bytes)", len(b))
	}
	return model.QueueCounters{
		EnqueuedPackets: ne.Uint64(b[0:]),
		EnqueuedBytes:   ne.Uint64(b[8:]),
		DequeuedPackets: ne.Uint64(b[16:]),
		DequeuedBytes:   ne.Uint64(b[24:]),
		DroppedPackets:  ne.Uint64(b[32:]),
		DroppedBytes:    ne.Uint64(b[40:]),
		CurrentQLen:     ne.Uint32(b[48:]),
		MaxQLen:         ne.Uint32(b[52:]),
		TotalLatencyNs:  ne.Uint64(b[56:]),
	}, nil
}

func EncodeQueueCounters(q model.QueueCounters) []byte {
	b := make([]byte, QueueCountersSize)
	ne.PutUint64(b[0:], q.EnqueuedPackets)
	ne.PutUint64(b[8:], q.EnqueuedBytes)
	ne.PutUint64(b[16:], q.DequeuedPackets)
	ne.PutUint64(b[24:], q.DequeuedBytes)
	ne.PutUint64(b[32:], q.DroppedPackets)
	ne.PutUint64(b[40:], q.DroppedBytes)
	ne.PutUint32(b[48:], q.CurrentQLen)
	ne.PutUint32(b[52:], q.MaxQLen)
	ne.PutUint64(b[56:], q.TotalLatencyNs)
	return b
}

// DecodeFlowKey ignores the trailing padding bytes.
func DecodeFlowKey(b []byte) (model.FlowKey, error) {
	if len(b) < FlowKeySize {
		return model.FlowKey{}, fmt.Errorf("flow key: short key (%d bytes)", len(b))
	}
	return model.FlowKey{
		SrcIP:    netip.AddrFrom4([4]byte(b[0:4])),
		DstIP:    netip.AddrFrom4([4]byte(b[4:8])),
		SrcPort:  ne.Uint16(b[8:]),
		DstPort:  ne.Uint16(b[10:]),
		Protocol: model.Protocol(b[12]),
	}, nil
}

// EncodeFlowKey writes zero padding.
func EncodeFlowKey(k model.FlowKey) []byte {
	b := make([]byte, FlowKeySize)
	src, dst := k.SrcIP.As4(), k.DstIP.As4()
	copy(b[0:4], src[:])
	copy(b[4:8], dst[:])
	ne.PutUint16(b[8:], k.SrcPort)
	ne.PutUint16(b[10:], k.DstPort)
	b[12] = byte(k.Protocol)
	return b
}

func DecodeFlowRecord(b []byte) (model.FlowRecord, error) {
	if len(b) < FlowRecordSize {
		return model.FlowRecord{}, fmt.Errorf("flow record: short value (%d bytes)", len(b))
	}
	return model.FlowRecord{
		PacketCount:     ne.Uint64(b[0:]),
		ByteCount:       ne.Uint64(b[8:]),
		LastSeen:        ne.Uint64(b[16:]),
		Class:           model.TrafficClass(ne.Uint32(b[24:])),
		QueueID:         ne.Uint32(b[28:]),
		Tokens:          ne.Uint32(b[32:]),
		LastTokenUpdate: ne.Uint32(b[36:]),
		Priority:        ne.Uint16(b[40:]),
		Weight:          ne.Uint16(b[42:]),
		Deficit:         ne.Uint32(b[44:]),
	}, nil
}

func EncodeFlowRecord(r model.FlowRecord) []byte {
	b := make([]byte, FlowRecordSize)
	ne.PutUint64(b[0:], r.PacketCount)
	ne.PutUint64(b[8:], r.ByteCount)
	ne.PutUint64(b[16:], r.LastSeen)
	ne.PutUint32(b[24:], uint32(r.Class))
	ne.PutUint32(b[28:], r.QueueID)
	ne.PutUint32(b[32:], r.Tokens)
	ne.PutUint32(b[36:], r.LastTokenUpdate)
	ne.PutUint16(b[40:], r.Priority)
	ne.PutUint16(b[42:], r.Weight)
	ne.PutUint32(b[44:], r.Deficit)
	return b
}
