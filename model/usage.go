package model

// ClassUsage is the traffic one class carried over some period.
type ClassUsage struct {
	Class   TrafficClass
	Packets uint64
	Bytes   uint64
	Dropped uint64
}

// Empty reports whether nothing was carried.
func (u ClassUsage) Empty() bool {
	return u.Packets == 0 && u.Bytes == 0 && u.Dropped == 0
}
