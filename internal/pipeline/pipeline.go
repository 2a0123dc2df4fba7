// Package pipeline runs one generation pass: scan the project, normalize
// and validate its routes, emit the artifact and write it atomically.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/saferoute-dev/saferoute/pkg/router"
)

// DefaultCacheSize is the default capacity of the normalization cache.
const DefaultCacheSize = 4096

// Job describes what a pass generates.
type Job struct {
	// Root is the project root directory.
	Root string

	// Type is the routing convention of the project.
	Type router.ProjectType

	// Output is the artifact path. A ".go" extension selects Go output.
	Output string

	// Mode is the emission mode.
	Mode router.Mode

	// Scan holds adapter overrides.
	Scan router.ScanOptions

	// FS overrides the project filesystem. Defaults to osfs rooted at Root.
	FS billy.Filesystem
}

// Outcome is the result of one pass.
type Outcome struct {
	Generation uint64        `json:"generation"`
	Routes     int           `json:"routes"`
	Changed    bool          `json:"changed"`
	Output     string        `json:"output"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`

	// Table is the validated route table. Nil when the pass failed before
	// the table was built.
	Table *router.RouteTable `json:"-"`
}

// OK reports whether the pass succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Publisher receives the artifact after a pass that changed it.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) error
}

// Options configures a Pipeline.
type Options struct {
	// Logger defaults to slog.Default().With("component", "pipeline").
	Logger *slog.Logger

	// Metrics are updated after every pass when set.
	Metrics *Metrics

	// Tracer defaults to otel.Tracer("saferoute").
	Tracer trace.Tracer

	// CacheSize bounds the normalization cache. Defaults to DefaultCacheSize.
	CacheSize int

	// Publisher, when set, receives every changed artifact.
	Publisher Publisher

	// Locks serializes writers per output path. Defaults to a process-wide
	// registry.
	Locks *PathLocks
}

type normalized struct {
	entry *router.RouteEntry
	err   error
}

// Pipeline runs generation passes. Run is safe for concurrent use; writes
// to the same output path are serialized.
type Pipeline struct {
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	publisher  Publisher
	locks      *PathLocks
	cache      *lru.Cache[string, normalized]
	generation atomic.Uint64
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "pipeline")
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("saferoute")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Locks == nil {
		opts.Locks = processLocks
	}

	cache, err := lru.New[string, normalized](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating normalization cache: %w", err)
	}

	return &Pipeline{
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		publisher: opts.Publisher,
		locks:     opts.Locks,
		cache:     cache,
	}, nil
}

// Run executes one pass. The previous artifact is left untouched when the
// pass fails.
func (p *Pipeline) Run(ctx context.Context, job Job) Outcome {
	start := time.Now()
	gen := p.generation.Add(1)

	ctx, span := p.tracer.Start(ctx, "saferoute.pass",
		trace.WithAttributes(
			attribute.String("saferoute.project_type", string(job.Type)),
			attribute.String("saferoute.mode", string(job.Mode)),
			attribute.String("saferoute.output", job.Output),
			attribute.Int64("saferoute.generation", int64(gen)),
		),
	)
	defer span.End()

	out := Outcome{Generation: gen, Output: job.Output}
	conflicts := 0

	table, err := p.Build(ctx, job)
	if err == nil {
		out.Table = table
		out.Routes = table.Len()
		out.Changed, err = p.emit(ctx, job, table)
	} else {
		var multi *router.MultiValidationError
		if errors.As(err, &multi) {
			for _, e := range multi.Errors {
				if e.Type == router.ErrorConflictingRoute {
					conflicts++
				}
			}
		}
	}

	out.Err = err
	out.Duration = time.Since(start)
	p.metrics.observe(out, conflicts)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("route generation failed",
			"generation", gen,
			"output", job.Output,
			"error", err,
		)
		return out
	}

	span.SetAttributes(
		attribute.Int("saferoute.route_count", out.Routes),
		attribute.Bool("saferoute.changed", out.Changed),
	)
	span.SetStatus(codes.Ok, "")
	p.logger.Info("routes generated",
		"generation", gen,
		"routes", out.Routes,
		"changed", out.Changed,
		"output", job.Output,
		"duration", out.Duration,
	)
	return out
}

// Build scans the project and returns its validated route table. Every
// normalization failure and conflict is collected into one
// *router.MultiValidationError.
func (p *Pipeline) Build(ctx context.Context, job Job) (*router.RouteTable, error) {
	fs := job.FS
	if fs == nil {
		info, err := os.Stat(job.Root)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", router.ErrNotFound, job.Root)
		}
		fs = osfs.New(job.Root)
	}

	adapter, err := router.NewAdapter(job.Type, fs, job.Scan)
	if err != nil {
		return nil, err
	}

	b := router.NewTableBuilder()
	var invalid []*router.ValidationError
	for node, err := range adapter.Scan(ctx) {
		if err != nil {
			return nil, err
		}
		entry, err := p.normalize(node)
		if err != nil {
			var verr *router.ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			invalid = append(invalid, verr)
			continue
		}
		if entry != nil {
			_ = b.Add(entry)
		}
	}

	table, err := b.Table()
	if len(invalid) == 0 {
		return table, err
	}
	var multi *router.MultiValidationError
	if errors.As(err, &multi) {
		invalid = append(invalid, multi.Errors...)
	}
	return nil, &router.MultiValidationError{Errors: invalid}
}

// normalize memoizes router.Normalize by the node's content.
func (p *Pipeline) normalize(node router.RouteNode) (*router.RouteEntry, error) {
	key := cacheKey(node)
	if cached, ok := p.cache.Get(key); ok {
		return cached.entry, cached.err
	}
	entry, err := router.Normalize(node)
	p.cache.Add(key, normalized{entry: entry, err: err})
	return entry, err
}

func cacheKey(node router.RouteNode) string {
	var b strings.Builder
	b.WriteString(node.Source)
	b.WriteByte(0)
	b.WriteString(strings.Join(node.Tokens, "/"))
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(node.Leaf))
	if node.DeclaredParams != nil {
		b.WriteByte(0)
		b.WriteString(strings.Join(node.DeclaredParams, ","))
	}
	return b.String()
}

func (p *Pipeline) emit(ctx context.Context, job Job, table *router.RouteTable) (bool, error) {
	format := router.FormatForPath(job.Output)
	data, err := router.Emit(table, router.EmitOptions{
		Mode:    job.Mode,
		Format:  format,
		Package: router.PackageNameForPath(job.Output),
	})
	if err != nil {
		return false, err
	}

	unlock := p.locks.Lock(job.Output)
	changed, err := WriteAtomic(job.Output, data, 0o644)
	unlock()
	if err != nil {
		return false, err
	}

	if changed && p.publisher != nil {
		if err := p.publisher.Publish(ctx, job.Output, data); err != nil {
			p.metrics.publishFailed()
			p.logger.Warn("artifact publish failed", "output", job.Output, "error", err)
		}
	}
	return changed, nil
}
