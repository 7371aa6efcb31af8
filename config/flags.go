package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/back2basic/qosmon/bpfgo"
)

// flagKeys maps every flag name, short forms included, to its config key.
var flagKeys = map[string]string{
	"i":            KeyInterval,
	"interval":     KeyInterval,
	"d":            KeyPinDir,
	"dir":          KeyPinDir,
	"f":            KeyFormat,
	"format":       KeyFormat,
	"o":            KeyOutput,
	"output":       KeyOutput,
	"resolve":      KeyResolve,
	"top":          KeyReportTop,
	"limit":        KeyReportFlowLimit,
	"flow-limit":   KeyFlowLimit,
	"metrics-addr": KeyMetricsAddr,
	"history":      KeyHistoryPath,
	"log-level":    KeyLogLevel,
}

// Args is a parsed command line.
type Args struct {
	Mode       Mode
	ConfigFile string
	// Set holds only the flags given on the command line, keyed by config key.
	Set map[string]string
}

func newFlagSet(mode Mode, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(string(mode), flag.ContinueOnError)
	fs.SetOutput(out)

	fs.String("config", "", "YAML config file")
	fs.String("d", "", "BPF pin directory (default "+bpfgo.DefaultPinDir+")")
	fs.String("dir", "", "BPF pin directory")
	fs.String("log-level", "", "log level: debug, info, warn, error")

	switch mode {
	case ModeLive:
		fs.Int("i", DefaultInterval, "refresh interval in seconds")
		fs.Int("interval", DefaultInterval, "refresh interval in seconds")
		fs.Int("flow-limit", DefaultFlowLimit, "flow entries read per tick")
		fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
		fs.String("history", "", "record per-class history to this SQLite file")
	case ModeReport:
		fs.String("f", DefaultFormat, "output format: text, json or yaml")
		fs.String("format", DefaultFormat, "output format: text, json or yaml")
		fs.Bool("resolve", false, "annotate top flows with reverse DNS names")
		fs.Int("top", DefaultReportTop, "number of top flows to list")
		fs.Int("limit", DefaultReportFlowLimit, "maximum flow entries to read")
	case ModeExport:
		fs.String("o", "", "export flows to this CSV file")
		fs.String("output", "", "export flows to this CSV file")
		fs.Int("limit", DefaultReportFlowLimit, "maximum flow entries to read")
	}
	return fs
}

// Parse reads a command line of the form [live|report|export] [flags].
// It returns flag.ErrHelp when -h was given.
func Parse(argv []string, out io.Writer) (*Args, error) {
	mode := ModeLive
	if len(argv) > 0 && len(argv[0]) > 0 && argv[0][0] != '-' {
		mode = Mode(argv[0])
		argv = argv[1:]
	}
	switch mode {
	case ModeLive, ModeReport, ModeExport:
	default:
		return nil, fmt.Errorf("unknown command %q (want live, report or export)", mode)
	}

	fs := newFlagSet(mode, out)
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	a := &Args{Mode: mode, Set: make(map[string]string)}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			a.ConfigFile = f.Value.String()
			return
		}
		if key, ok := flagKeys[f.Name]; ok {
			a.Set[key] = f.Value.String()
		}
	})
	return a, nil
}
