package cmd

import (
	"context"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"batchdigest"
	"batchdigest/internal/sinks"
	"batchdigest/internal/telemetry"
	"batchdigest/pkg/source"
)

// named pairs a digest with the name it is written under in --output.
type named[T any] struct {
	name   string
	digest batchdigest.Digest[T]
}

// sources turns command line arguments into engine sources. No arguments,
// or a single "-", reads stdin.
func sources(cmd *cobra.Command, args []string) ([]batchdigest.Source, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		return []batchdigest.Source{source.NewReader("stdin", cmd.InOrStdin())}, nil
	}
	files, err := source.Glob(args...)
	if err != nil {
		return nil, err
	}
	out := make([]batchdigest.Source, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out, nil
}

// run builds an engine for filter, registers the digests and the sources
// named by args, and runs it. The merged digests are written to --output
// and the run summary to stderr when requested.
func run[T any](cmd *cobra.Command, a *app, filter batchdigest.Filter[T], args []string, digests ...named[T]) (batchdigest.RunStats, error) {
	engCfg, err := a.cfg.Engine()
	if err != nil {
		return batchdigest.RunStats{}, err
	}
	opts := []batchdigest.Option{
		batchdigest.WithConfig(engCfg),
		batchdigest.WithLogger(log.StandardLogger()),
	}

	if a.cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		errc := make(chan error, 1)
		server := telemetry.Serve(a.cfg.MetricsAddr, reg, errc)
		defer func() {
			select {
			case err := <-errc:
				log.WithError(err).Warn("metrics server failed")
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
		log.Infof("serving metrics on %s/metrics", a.cfg.MetricsAddr)
		opts = append(opts, batchdigest.WithMetrics(reg))
	}

	engine := batchdigest.New(filter, opts...)
	for _, d := range digests {
		engine.AddDigest(d.digest)
	}
	srcs, err := sources(cmd, args)
	if err != nil {
		return batchdigest.RunStats{}, err
	}
	engine.AddSource(srcs...)

	stats, err := engine.Run(cmd.Context())
	if err != nil {
		return stats, err
	}

	if a.cfg.Output != "" {
		if err := writeSnapshots(a.cfg.Output, stats.RunID, digests); err != nil {
			return stats, err
		}
	}
	if a.cfg.Summary {
		if err := printSummary(cmd, a, engCfg, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func writeSnapshots[T any](path, runID string, digests []named[T]) error {
	sink, err := sinks.NewJSONLSink(path)
	if err != nil {
		return err
	}
	for _, d := range digests {
		snap, ok := d.digest.(sinks.Snapshotter)
		if !ok {
			continue
		}
		rec, err := sinks.NewRecord(runID, d.name, snap)
		if err != nil {
			_ = sink.Close()
			return err
		}
		if err := sink.Write(rec); err != nil {
			_ = sink.Close()
			return err
		}
	}
	return errors.Wrapf(sink.Close(), "closing %s", path)
}

// printSummary writes the run statistics and every effective setting to
// stderr, in color when stderr is a terminal.
func printSummary(cmd *cobra.Command, a *app, engCfg batchdigest.Config, stats batchdigest.RunStats) error {
	s := a.params
	s.SetConfig(engCfg)
	s.Set("command", cmd.Name())
	s.SetBool("verbose", a.cfg.Verbose)
	s.Set("metrics_addr", orNone(a.cfg.MetricsAddr))
	s.Set("output", orNone(a.cfg.Output))
	s.SetInt("skipped_sources", len(stats.SkippedSources))

	w := cmd.ErrOrStderr()
	if f, ok := w.(*os.File); ok {
		s.Color = isatty.IsTerminal(f.Fd())
	}
	return s.Print(w, stats)
}

func orNone(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
