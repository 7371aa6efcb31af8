package storage

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/back2basic/qosmon/model"
)

func TestHistoryDailyTotals(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := []model.ClassUsage{
		{Class: model.ClassWeb, Packets: 10, Bytes: 1000},
		{Class: model.ClassVoIP, Packets: 5, Bytes: 500, Dropped: 1},
		{Class: model.ClassBulk},
	}
	if err := h.Record("edge1", day.Add(time.Hour), rows); err != nil {
		t.Fatal(err)
	}
	if err := h.Record("edge1", day.Add(2*time.Hour), rows[:1]); err != nil {
		t.Fatal(err)
	}
	if err := h.Record("edge1", day.Add(-time.Hour), rows[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := h.DailyTotals(day.Add(12 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	want := []model.ClassUsage{
		{Class: model.ClassVoIP, Packets: 5, Bytes: 500, Dropped: 1},
		{Class: model.ClassWeb, Packets: 20, Bytes: 2000},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPublisherPushDaily(t *testing.T) {
	type call struct {
		id   string
		data map[string]interface{}
	}
	var calls []call
	p := &Publisher{
		upsert: func(id string, data map[string]interface{}) error {
			calls = append(calls, call{id, data})
			if data["class"] == uint32(model.ClassBulk) {
				return errors.New("boom")
			}
			return nil
		},
		log: slog.New(slog.DiscardHandler),
	}

	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	n, err := p.PushDaily("edge1", day, []model.ClassUsage{
		{Class: model.ClassWeb, Bytes: 1},
		{Class: model.ClassBulk, Bytes: 1},
		{Class: model.ClassVideo},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(calls) != 2 {
		t.Fatalf("pushed %d rows in %d calls", n, len(calls))
	}
	if calls[0].data["day"] != "2026-03-04" || calls[0].data["name"] != "WEB" {
		t.Errorf("row data = %v", calls[0].data)
	}
	if len(calls[0].id) != 32 || calls[0].id == calls[1].id {
		t.Errorf("row ids %q %q", calls[0].id, calls[1].id)
	}
	if makeRowID("edge1", model.ClassWeb, "2026-03-04") != calls[0].id {
		t.Error("row id is not stable")
	}
}

func TestAppwriteConfigEnabled(t *testing.T) {
	if (AppwriteConfig{Endpoint: "x"}).Enabled() {
		t.Error("partial config reported enabled")
	}
	full := AppwriteConfig{Endpoint: "e", Project: "p", APIKey: "k", Database: "d", Table: "t"}
	if !full.Enabled() {
		t.Error("full config reported disabled")
	}
	if _, err := NewPublisher(AppwriteConfig{}, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected error for empty config")
	}
}
