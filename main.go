package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/back2basic/qosmon/bpfgo"
	"github.com/back2basic/qosmon/config"
	"github.com/back2basic/qosmon/dns"
	"github.com/back2basic/qosmon/live"
	"github.com/back2basic/qosmon/logger"
	"github.com/back2basic/qosmon/prom"
	"github.com/back2basic/qosmon/rate"
	"github.com/back2basic/qosmon/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "qosmon: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := config.Parse(argv, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(args.Mode, args.ConfigFile, args.Set)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opener := bpfgo.PinnedOpener{Dir: cfg.PinDir}
	switch cfg.Mode {
	case config.ModeReport:
		var resolver *dns.Resolver
		if cfg.Resolve {
			resolver = dns.NewResolver(nil)
		}
		return runReport(ctx, opener, cfg, resolver, os.Stdout, log)
	case config.ModeExport:
		return runExport(ctx, opener, cfg, log)
	default:
		return runLive(ctx, opener, cfg, log)
	}
}

func runLive(ctx context.Context, opener bpfgo.Opener, cfg *config.Config, log *slog.Logger) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	m := live.New(opener, os.Stdout, rate.New(log), log, live.Options{
		Interval:        cfg.Interval,
		FlowLimit:       cfg.FlowLimit,
		ClearScreen:     term.IsTerminal(int(os.Stdout.Fd())),
		Hostname:        hostname,
		HistoryInterval: cfg.History.Interval,
		PushInterval:    cfg.History.PushInterval,
	})

	if cfg.MetricsAddr != "" {
		c := prom.New()
		m.WithMetrics(c)
		go func() {
			if err := prom.Serve(ctx, cfg.MetricsAddr, c, log); err != nil {
				log.Error("metrics server failed", "err", err)
			}
		}()
	}

	if cfg.History.Path != "" {
		h, err := storage.OpenHistory(cfg.History.Path)
		if err != nil {
			return err
		}
		defer h.Close()

		var pub *storage.Publisher
		if cfg.Appwrite.Enabled() {
			if pub, err = storage.NewPublisher(cfg.Appwrite, log); err != nil {
				return err
			}
		}
		m.WithHistory(h, pub)
	}

	return m.Run(ctx)
}
