package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/back2basic/qosmon/model"
)

// ExportHeader is the first line of every export file.
var ExportHeader = []string{"src_ip", "src_port", "dst_ip", "dst_port", "protocol", "class", "packets", "bytes"}

// WriteCSV writes one line per flow. Protocol and class are numeric ids.
func WriteCSV(w io.Writer, flows []model.Flow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, f := range flows {
		rec := []string{
			f.Key.SrcIP.String(),
			strconv.FormatUint(uint64(f.Key.SrcPort), 10),
			f.Key.DstIP.String(),
			strconv.FormatUint(uint64(f.Key.DstPort), 10),
			strconv.FormatUint(uint64(f.Key.Protocol), 10),
			strconv.FormatUint(uint64(f.Record.Class), 10),
			strconv.FormatUint(f.Record.PacketCount, 10),
			strconv.FormatUint(f.Record.ByteCount, 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
