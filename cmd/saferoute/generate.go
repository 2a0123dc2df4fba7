package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/internal/dev"
	"github.com/saferoute-dev/saferoute/internal/errors"
	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/internal/publish"
)

type generateFlags struct {
	projectFlags
	out           string
	mode          string
	watch         bool
	debounce      time.Duration
	statusAddr    string
	publishBucket string
}

func generateCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the typed route artifact",
		Long: `Scan the project's routes and write the typed route artifact.

The artifact is replaced atomically and only when its content changes.
With --watch, the routes are regenerated after every burst of changes
until the process is interrupted.

Examples:
  saferoute generate -t next-app
  saferoute generate -t next-page -o src/routes.gen.ts -m flat
  saferoute generate -t react -o internal/routes/routes_gen.go
  saferoute generate -t next-app -w --status-addr localhost:9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cmd, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output path (default ./generated/routes.d.ts)")
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "Emission mode: flat or hierarchy (default hierarchy)")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Regenerate on every change")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", config.DefaultDebounce, "Quiet interval before regenerating in watch mode")
	cmd.Flags().StringVar(&flags.statusAddr, "status-addr", "", "Serve health, routes, metrics and events on this address in watch mode")
	cmd.Flags().StringVar(&flags.publishBucket, "publish-bucket", "", "Upload every changed artifact to this S3 bucket")

	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, flags *generateFlags) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	if changed("out") {
		cfg.Out = absFromCwd(flags.out)
	}
	if changed("mode") {
		cfg.Mode = flags.mode
	}
	if changed("debounce") {
		cfg.Watch.Debounce = flags.debounce.String()
	}
	if changed("status-addr") {
		cfg.Watch.StatusAddr = flags.statusAddr
	}
	if changed("publish-bucket") {
		cfg.Publish.Bucket = flags.publishBucket
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	opts := pipeline.Options{
		Logger:  newLogger(stderr, flags.verbose).With("component", "pipeline"),
		Metrics: pipeline.NewMetrics(pipeline.WithRegistry(registry)),
	}
	if cfg.Publish.Bucket != "" {
		pub, err := publish.NewS3Publisher(publish.S3Config{
			Bucket:    cfg.Publish.Bucket,
			Prefix:    cfg.Publish.Prefix,
			Region:    cfg.Publish.Region,
			Endpoint:  cfg.Publish.Endpoint,
			PathStyle: cfg.Publish.PathStyle,
		})
		if err != nil {
			return errors.New("E132").Wrap(err)
		}
		opts.Publisher = pub
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	if !flags.watch {
		outcome := p.Run(ctx, job(cfg))
		if outcome.Err != nil {
			return errors.Classify(outcome.Err).ResolveContext(cfg.Dir())
		}
		report(cfg, outcome)
		return nil
	}
	return runWatch(ctx, cfg, p, registry, flags.verbose)
}

func runWatch(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, registry *prometheus.Registry, verbose bool) error {
	logger := newLogger(stderr, verbose)

	// A missing root or unsupported project cannot be fixed by editing
	// routes, so it fails the command before anything is watched.
	if _, err := p.Build(ctx, job(cfg)); dev.IsFatal(err) {
		return errors.Classify(err).ResolveContext(cfg.Dir())
	}

	ignore := append(append([]string{}, dev.DefaultIgnore...), cfg.Watch.Ignore...)
	watcher := dev.NewWatcher(dev.WatcherConfig{
		Paths:    dev.CollectWatchPaths(cfg),
		Ignore:   ignore,
		Interval: cfg.PollInterval(),
	})
	coord := dev.NewCoordinator(dev.CoordinatorOptions{
		Job:         job(cfg),
		Runner:      p,
		Source:      watcher,
		Debounce:    cfg.Debounce(),
		InitialPass: !cfg.Watch.SkipInitial,
		Logger:      logger.With("component", "watch"),
	})

	var status *dev.StatusServer
	if cfg.Watch.StatusAddr != "" {
		status = dev.NewStatusServer(dev.StatusOptions{
			Addr:        cfg.Watch.StatusAddr,
			Gatherer:    registry,
			Coordinator: coord,
			Logger:      logger.With("component", "status"),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	outcomes, err := coord.Watch(gctx)
	if err != nil {
		return errors.New("E140").Wrap(err)
	}

	if status != nil {
		g.Go(func() error {
			if err := status.ListenAndServe(gctx); err != nil {
				return errors.New("E140").WithDetail(err.Error()).Wrap(err)
			}
			return nil
		})
		info("Status server on http://%s", cfg.Watch.StatusAddr)
	}
	g.Go(func() error {
		for outcome := range outcomes {
			if status != nil {
				status.Observe(outcome)
			}
			if dev.IsFatal(outcome.Err) {
				continue
			}
			if outcome.Err != nil {
				errors.PrintError(errors.Classify(outcome.Err).ResolveContext(cfg.Dir()))
				warn("Keeping the previous artifact; fix the routes and save to retry")
				continue
			}
			report(cfg, outcome)
		}
		if err := coord.Err(); err != nil {
			return errors.Classify(err).ResolveContext(cfg.Dir())
		}
		return nil
	})

	info("Watching %s for route changes (Ctrl+C to stop)", relOrAbs(cfg.Dir(), "."))
	if err := g.Wait(); err != nil {
		return err
	}
	info("Stopped")
	return nil
}

func report(cfg *config.Config, o pipeline.Outcome) {
	out := relOrAbs(cfg.Dir(), o.Output)
	if !o.Changed {
		info("%d routes, %s unchanged", o.Routes, out)
		return
	}
	success("Generated %d routes → %s (%s)", o.Routes, out, o.Duration.Round(time.Millisecond))
}

// relOrAbs returns path relative to the working directory when it is
// below it.
func relOrAbs(root, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
