package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/internal/pipeline"
)

// projectFlags are the flags shared by commands that scan a project.
type projectFlags struct {
	root       string
	typ        string
	configPath string
	verbose    bool
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.root, "root", "r", ".", "Project root directory")
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "Project type: react, next-app or next-page (default react)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to saferoute.json (default <root>/saferoute.json)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log every pass")
}

// load reads the project configuration and applies the flags the user set.
func (f *projectFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(f.root)
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("type") {
		cfg.Type = f.typ
	}
	return cfg, nil
}

// job builds the generation job for cfg.
func job(cfg *config.Config) pipeline.Job {
	return pipeline.Job{
		Root:   cfg.Dir(),
		Type:   cfg.ProjectType(),
		Output: cfg.OutputPath(),
		Mode:   cfg.EmitMode(),
		Scan:   cfg.ScanOptions(),
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// absFromCwd resolves a flag path against the working directory.
func absFromCwd(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

var stderr io.Writer = os.Stderr
