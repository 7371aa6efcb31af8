package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/back2basic/qosmon/agg"
	"github.com/back2basic/qosmon/bpfgo"
	"github.com/back2basic/qosmon/config"
	"github.com/back2basic/qosmon/dns"
	"github.com/back2basic/qosmon/model"
	"github.com/back2basic/qosmon/rank"
	"github.com/back2basic/qosmon/render"
)

// readFlows takes one pass over the flow table and releases it.
func readFlows(ctx context.Context, opener bpfgo.Opener, limit int, log *slog.Logger) (*model.Snapshot, error) {
	src, err := bpfgo.Open(opener, limit, bpfgo.TableFlows)
	if err != nil {
		return nil, fmt.Errorf("open flow table: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("closing flow table", "err", err)
		}
	}()

	snap, err := src.Snapshot(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if snap.Skipped > 0 || snap.Restarts > 0 {
		log.Debug("flow table changed during read", "skipped", snap.Skipped, "restarts", snap.Restarts)
	}
	if snap.Incomplete {
		log.Warn("flow table churned too fast, listing is partial", "restarts", snap.Restarts)
	}
	if snap.Truncated {
		log.Warn("flow table larger than report_flow_limit, listing is partial", "limit", limit)
	}
	return snap, nil
}

func runReport(ctx context.Context, opener bpfgo.Opener, cfg *config.Config, resolver *dns.Resolver, out io.Writer, log *slog.Logger) error {
	snap, err := readFlows(ctx, opener, cfg.ReportFlowLimit, log)
	if err != nil {
		return err
	}

	r := render.Report{
		Generated: snap.Taken,
		Summary:   agg.Summarize(snap.Flows),
		TopFlows:  rank.Top(snap.Flows, cfg.ReportTop),
		Truncated: snap.Truncated,
	}
	if resolver != nil {
		r.Names = resolveNames(ctx, resolver, r.TopFlows)
	}
	return render.Write(out, r, cfg.Format)
}

func resolveNames(ctx context.Context, resolver *dns.Resolver, flows []model.Flow) map[netip.Addr]string {
	names := make(map[netip.Addr]string)
	for _, f := range flows {
		for _, addr := range []netip.Addr{f.Key.SrcIP, f.Key.DstIP} {
			if _, done := names[addr]; done {
				continue
			}
			names[addr] = resolver.Resolve(ctx, addr.String())
		}
	}
	return names
}

func runExport(ctx context.Context, opener bpfgo.Opener, cfg *config.Config, log *slog.Logger) error {
	snap, err := readFlows(ctx, opener, cfg.ReportFlowLimit, log)
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	flows := rank.All(snap.Flows)
	if err := render.WriteCSV(f, flows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	log.Info("exported flows", "count", len(flows), "file", cfg.Output)
	return nil
}
