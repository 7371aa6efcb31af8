package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/back2basic/qosmon/bpfgo"
	"github.com/back2basic/qosmon/storage"
)

// Mode selects what the binary does.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeReport Mode = "report"
	ModeExport Mode = "export"
)

// Config is the resolved configuration for one run.
type Config struct {
	Mode Mode

	PinDir          string
	Interval        time.Duration
	FlowLimit       int
	ReportFlowLimit int
	ReportTop       int
	Format          string
	Resolve         bool
	Output          string
	LogLevel        string
	MetricsAddr     string

	History  HistoryConfig
	Appwrite storage.AppwriteConfig
}

// HistoryConfig controls the optional SQLite tick history.
type HistoryConfig struct {
	Path         string
	Interval     time.Duration
	PushInterval time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPinDir, bpfgo.DefaultPinDir)
	v.SetDefault(KeyInterval, DefaultInterval)
	v.SetDefault(KeyFlowLimit, DefaultFlowLimit)
	v.SetDefault(KeyReportFlowLimit, DefaultReportFlowLimit)
	v.SetDefault(KeyReportTop, DefaultReportTop)
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyResolve, false)
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyHistoryPath, "")
	v.SetDefault(KeyHistoryInterval, DefaultHistoryInterval)
	v.SetDefault(KeyHistoryPush, DefaultHistoryPush)
	for _, k := range []string{KeyAppwriteEndpoint, KeyAppwriteProject, KeyAppwriteAPIKey, KeyAppwriteDatabase, KeyAppwriteTable} {
		v.SetDefault(k, "")
	}
	return v
}

// Load resolves configuration for mode from defaults, an optional YAML file,
// the environment and the flags the operator set, in rising precedence.
func Load(mode Mode, file string, flags map[string]string) (*Config, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	for k, val := range flags {
		v.Set(k, val)
	}

	cfg := &Config{
		Mode:            mode,
		PinDir:          v.GetString(KeyPinDir),
		Interval:        time.Duration(v.GetInt(KeyInterval)) * time.Second,
		FlowLimit:       v.GetInt(KeyFlowLimit),
		ReportFlowLimit: v.GetInt(KeyReportFlowLimit),
		ReportTop:       v.GetInt(KeyReportTop),
		Format:          strings.ToLower(v.GetString(KeyFormat)),
		Resolve:         v.GetBool(KeyResolve),
		Output:          v.GetString(KeyOutput),
		LogLevel:        v.GetString(KeyLogLevel),
		MetricsAddr:     v.GetString(KeyMetricsAddr),
		History: HistoryConfig{
			Path:         v.GetString(KeyHistoryPath),
			Interval:     v.GetDuration(KeyHistoryInterval),
			PushInterval: v.GetDuration(KeyHistoryPush),
		},
		Appwrite: storage.AppwriteConfig{
			Endpoint: v.GetString(KeyAppwriteEndpoint),
			Project:  v.GetString(KeyAppwriteProject),
			APIKey:   v.GetString(KeyAppwriteAPIKey),
			Database: v.GetString(KeyAppwriteDatabase),
			Table:    v.GetString(KeyAppwriteTable),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the selected mode depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.PinDir == "" {
		errs = append(errs, errors.New("pin_dir must not be empty"))
	}

	switch c.Mode {
	case ModeLive:
		if c.Interval < time.Second {
			errs = append(errs, errors.New("interval must be at least 1 second"))
		}
		if c.FlowLimit < 1 {
			errs = append(errs, errors.New("flow_limit must be positive"))
		}
		if c.History.Path != "" && c.History.Interval <= 0 {
			errs = append(errs, errors.New("history.interval must be positive"))
		}
		if c.Appwrite.Enabled() && c.History.PushInterval <= 0 {
			errs = append(errs, errors.New("history.push_interval must be positive"))
		}
	case ModeReport:
		if c.ReportFlowLimit < 1 {
			errs = append(errs, errors.New("report_flow_limit must be positive"))
		}
		if c.ReportTop < 0 {
			errs = append(errs, errors.New("report_top must not be negative"))
		}
		switch c.Format {
		case "text", "json", "yaml":
		default:
			errs = append(errs, fmt.Errorf("unknown format %q (want text, json or yaml)", c.Format))
		}
	case ModeExport:
		if c.ReportFlowLimit < 1 {
			errs = append(errs, errors.New("report_flow_limit must be positive"))
		}
		if c.Output == "" {
			errs = append(errs, errors.New("export needs an output file (-o)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	return errors.Join(errs...)
}
