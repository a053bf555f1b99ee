// compose turns recorded playback timelines into compositing segments.
//
// Usage:
//
//	compose timeline.json
//	compose --duration-ms 216000 events.json
//	compose --output yaml --summary a.json b.yaml
//
// Each file holds either {"durationMs": N, "events": [...]} or a bare array
// of events (then --duration-ms is required). YAML files are recognised by
// extension. With a single file and no --summary the segment list is
// printed; otherwise one result per file, in argument order.
//
// Exit codes:
//   - 0: every timeline was composed
//   - 1: a file could not be read or holds a malformed timeline
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hls-compositor/internal/platform/config"
	"hls-compositor/internal/platform/logger"
	"hls-compositor/internal/segment"
	"hls-compositor/internal/timeline"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var Version = "dev"

type options struct {
	durationMs float64
	output     string
	workers    int
	summary    bool
	logLevel   string
}

type fileResult struct {
	File       string            `json:"file" yaml:"file"`
	DurationMs float64           `json:"durationMs" yaml:"durationMs"`
	Segments   []segment.Segment `json:"segments" yaml:"segments"`
	Summary    *segment.Summary  `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func main() {
	_ = config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()
	opts := options{
		output:   "json",
		workers:  cfg.ComposeWorkers,
		logLevel: cfg.LogLevel,
	}

	cmd := &cobra.Command{
		Use:          "compose [flags] FILE...",
		Short:        "Compose recorded playback timelines into frozen/played segments",
		Version:      Version,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output %q (want json or yaml)", opts.output)
			}
			if opts.workers <= 0 {
				return errors.New("--workers must be positive")
			}
			log := logger.New(cmd.ErrOrStderr(), opts.logLevel, "text")
			durationSet := cmd.Flags().Changed("duration-ms")

			results, err := composeFiles(cmd.Context(), log, args, opts, durationSet)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results, opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.durationMs, "duration-ms", 0, "total output timeline length in ms (overrides the document)")
	flags.StringVarP(&opts.output, "output", "o", opts.output, "output format: json or yaml")
	flags.IntVarP(&opts.workers, "workers", "w", opts.workers, "number of files composed in parallel")
	flags.BoolVar(&opts.summary, "summary", false, "include per-file segment totals")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug, info, warn, error")

	return cmd
}

// composeFiles runs one pipeline per file, up to opts.workers at a time.
// Results keep the order of paths.
func composeFiles(ctx context.Context, log *slog.Logger, paths []string, opts options, durationSet bool) ([]fileResult, error) {
	validator, err := timeline.DefaultValidator()
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := composeFile(log, validator, path, opts, durationSet)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func composeFile(log *slog.Logger, v timeline.Validator, path string, opts options, durationSet bool) (fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, err
	}
	doc, err := timeline.ParseDocument(data, timeline.FormatFromPath(path))
	if err != nil {
		return fileResult{}, err
	}

	if durationSet {
		doc.DurationMs = opts.durationMs
	} else if doc.DurationMs == 0 && len(doc.Events) > 0 {
		return fileResult{}, errors.New("document has no durationMs; pass --duration-ms")
	}

	n := &timeline.Normalizer{
		Validator: v,
		OnIgnore: func(index int, eventType string) {
			log.Debug("event ignored", slog.String("file", path), slog.Int("index", index), slog.String("type", eventType))
		},
	}
	segs, err := segment.Collect(segment.Segments(n.Events(doc.Events), doc.DurationMs))
	if err != nil {
		return fileResult{}, err
	}
	if segs == nil {
		segs = []segment.Segment{}
	}

	res := fileResult{File: path, DurationMs: doc.DurationMs, Segments: segs}
	if opts.summary {
		sum := segment.Summarize(segs)
		res.Summary = &sum
	}
	log.Info("timeline composed", slog.String("file", path), slog.Int("segments", len(segs)))
	return res, nil
}

func writeResults(w io.Writer, results []fileResult, opts options) error {
	var v any = results
	if len(results) == 1 && !opts.summary {
		v = results[0].Segments
	}

	if opts.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
