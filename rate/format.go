package rate

import (
	"fmt"
	"math"
)

var (
	byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}
	bitUnits  = []string{"bps", "Kbps", "Mbps", "Gbps", "Tbps"}
)

// ladder moves up one unit while the printed value would reach step. With
// baseHolds set, the first unit keeps a value of exactly step.
func ladder(v, step float64, baseHolds bool, units []string) string {
	last := len(units) - 1
	for i, u := range units[:last] {
		shown := math.Round(v*100) / 100
		if shown < step || (baseHolds && i == 0 && shown == step) {
			return fmt.Sprintf("%.2f %s", v, u)
		}
		v /= step
	}
	return fmt.Sprintf("%.2f %s", v, units[last])
}

// FormatBytes renders a byte count with binary units; 1024 B prints as 1.00 KB.
func FormatBytes(n float64) string {
	return ladder(n, 1024, false, byteUnits)
}

// FormatRate renders bytes transferred over seconds as a decimal bitrate.
// 1000 bps stays in bps and anything above moves to Kbps; higher units move up
// at 1000 like the byte ladder does at 1024. A non-positive interval renders
// as zero.
func FormatRate(bytes, seconds float64) string {
	var bps float64
	if seconds > 0 {
		bps = bytes * 8 / seconds
	}
	return ladder(bps, 1000, true, bitUnits)
}

// FormatBitrate renders a bytes-per-second rate.
func FormatBitrate(bytesPerSec float64) string {
	return FormatRate(bytesPerSec, 1)
}
