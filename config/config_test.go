package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseModes(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		mode Mode
		set  map[string]string
	}{
		{"default live", nil, ModeLive, map[string]string{}},
		{"live flags", []string{"-i", "5", "-d", "/tmp/pins"}, ModeLive, map[string]string{KeyInterval: "5", KeyPinDir: "/tmp/pins"}},
		{"report", []string{"report", "-f", "json", "--resolve"}, ModeReport, map[string]string{KeyFormat: "json", KeyResolve: "true"}},
		{"export", []string{"export", "-o", "flows.csv"}, ModeExport, map[string]string{KeyOutput: "flows.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.argv, io.Discard)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if a.Mode != tt.mode {
				t.Errorf("mode = %q, want %q", a.Mode, tt.mode)
			}
			if len(a.Set) != len(tt.set) {
				t.Errorf("set = %v, want %v", a.Set, tt.set)
			}
			for k, v := range tt.set {
				if a.Set[k] != v {
					t.Errorf("%s = %q, want %q", k, a.Set[k], v)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]string{"bogus"}, io.Discard); err == nil {
		t.Error("expected error for unknown command")
	}
	if _, err := Parse([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
	if _, err := Parse([]string{"report", "-o", "x"}, io.Discard); err == nil {
		t.Error("report should not accept -o")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(ModeLive, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PinDir != "/sys/fs/bpf/xdp_qos" || cfg.Interval != time.Second || cfg.FlowLimit != DefaultFlowLimit {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.History.Interval != time.Minute || cfg.Appwrite.Enabled() {
		t.Errorf("history/appwrite defaults = %+v %+v", cfg.History, cfg.Appwrite)
	}
}

func TestLoadPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "qosmon.yaml")
	yaml := "pin_dir: /from/file\ninterval: 3\nhistory:\n  path: /from/file.db\n"
	if err := os.WriteFile(file, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QOSMON_INTERVAL", "4")
	t.Setenv("QOSMON_HISTORY_PATH", "/from/env.db")

	cfg, err := Load(ModeLive, file, map[string]string{KeyPinDir: "/from/flag"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PinDir != "/from/flag" {
		t.Errorf("PinDir = %q, flag should win", cfg.PinDir)
	}
	if cfg.Interval != 4*time.Second {
		t.Errorf("Interval = %v, env should beat file", cfg.Interval)
	}
	if cfg.History.Path != "/from/env.db" {
		t.Errorf("History.Path = %q", cfg.History.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		flags map[string]string
		want  string
	}{
		{"zero interval", ModeLive, map[string]string{KeyInterval: "0"}, "interval"},
		{"bad format", ModeReport, map[string]string{KeyFormat: "xml"}, "unknown format"},
		{"export without output", ModeExport, nil, "output file"},
		{"empty dir", ModeReport, map[string]string{KeyPinDir: ""}, "pin_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.mode, "", tt.flags)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
