package model

import (
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// Protocol is the IP protocol number carried in a flow key.
type Protocol uint8

const (
	ProtoICMP Protocol = Protocol(layers.IPProtocolICMPv4)
	ProtoTCP  Protocol = Protocol(layers.IPProtocolTCP)
	ProtoUDP  Protocol = Protocol(layers.IPProtocolUDP)
)

// MaxProtocolName is the widest name String returns; tables size their
// protocol column to it.
const MaxProtocolName = 8

// String names the well-known protocols and falls back to gopacket's table
// for the rest. Protocols gopacket does not know, or whose name would not fit
// in MaxProtocolName, render as the bare number.
func (p Protocol) String() string {
	switch p {
	case ProtoICMP:
		return "ICMP"
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	}
	name := layers.IPProtocol(p).String()
	if name == "" || len(name) > MaxProtocolName || strings.HasPrefix(name, "Unknown") {
		return strconv.Itoa(int(p))
	}
	return name
}
