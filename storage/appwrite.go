package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/appwrite/sdk-for-go/appwrite"
	"github.com/appwrite/sdk-for-go/tablesdb"

	"github.com/back2basic/qosmon/model"
)

// AppwriteConfig locates the table daily totals are upserted into.
type AppwriteConfig struct {
	Endpoint string
	Project  string
	APIKey   string
	Database string
	Table    string
}

// Enabled reports whether every field is set.
func (c AppwriteConfig) Enabled() bool {
	return c.Endpoint != "" && c.Project != "" && c.APIKey != "" && c.Database != "" && c.Table != ""
}

type upsertFunc func(rowID string, data map[string]interface{}) error

// Publisher pushes per-class daily totals to Appwrite, one row per host,
// class and day.
type Publisher struct {
	upsert upsertFunc
	log    *slog.Logger
}

func NewPublisher(cfg AppwriteConfig, log *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("appwrite: incomplete configuration")
	}

	client := appwrite.NewClient(
		appwrite.WithEndpoint(cfg.Endpoint),
		appwrite.WithProject(cfg.Project),
		appwrite.WithKey(cfg.APIKey),
	)
	db := tablesdb.New(client)

	return &Publisher{
		upsert: func(rowID string, data map[string]interface{}) error {
			_, err := db.UpsertRow(cfg.Database, cfg.Table, rowID, db.WithUpsertRowData(data))
			return err
		},
		log: log,
	}, nil
}

func makeRowID(hostname string, class model.TrafficClass, day string) string {
	h := sha1.New()
	h.Write([]byte(hostname))
	h.Write([]byte(strconv.Itoa(int(class))))
	h.Write([]byte(day))
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:32] // row ids are capped at 36 chars
}

// PushDaily upserts rows for day and returns how many were written. A failed
// row is logged and does not stop the rest.
func (p *Publisher) PushDaily(hostname string, day time.Time, rows []model.ClassUsage) (int, error) {
	dayStr := day.UTC().Format(time.DateOnly)

	pushed, failed := 0, 0
	for _, r := range rows {
		if r.Empty() {
			continue
		}
		data := map[string]interface{}{
			"hostname": hostname,
			"day":      dayStr,
			"class":    uint32(r.Class),
			"name":     r.Class.String(),
			"packets":  r.Packets,
			"bytes":    r.Bytes,
			"dropped":  r.Dropped,
		}
		rowID := makeRowID(hostname, r.Class, dayStr)
		if err := p.upsert(rowID, data); err != nil {
			p.log.Warn("appwrite upsert failed", "row", rowID, "err", err)
			failed++
			continue
		}
		pushed++
	}

	if failed > 0 && pushed == 0 {
		return 0, fmt.Errorf("appwrite: all %d upserts failed", failed)
	}
	p.log.Info("pushed daily totals to appwrite", "rows", pushed)
	return pushed, nil
}
