package model

import "fmt"

// TrafficClass is one of the eight QoS categories the scheduler assigns.
type TrafficClass uint32

const (
	ClassControl TrafficClass = iota
	ClassGaming
	ClassVoIP
	ClassVideo
	ClassWeb
	ClassBulk
	ClassBackground
	ClassDefault
)

// NumClasses is the number of classes the scheduler publishes queue counters for.
const NumClasses = 8

var classNames = [NumClasses]string{
	ClassControl:    "CONTROL",
	ClassGaming:     "GAMING/RT",
	ClassVoIP:       "VOIP",
	ClassVideo:      "VIDEO",
	ClassWeb:        "WEB",
	ClassBulk:       "BULK",
	ClassBackground: "BACKGROUND",
	ClassDefault:    "DEFAULT",
}

// Known reports whether c is one of the eight named classes.
func (c TrafficClass) Known() bool {
	return c < NumClasses
}

func (c TrafficClass) String() string {
	if c.Known() {
		return classNames[c]
	}
	return fmt.Sprintf("Class %d", uint32(c))
}

// Classes returns all named classes in ascending order.
func Classes() []TrafficClass {
	out := make([]TrafficClass, NumClasses)
	for i := range out {
		out[i] = TrafficClass(i)
	}
	return out
}
