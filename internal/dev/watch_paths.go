package dev

import (
	"path/filepath"
	"strings"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

// CollectWatchPaths returns a normalized list of watch paths for the
// project: the route directories or sources of its convention plus any
// entries in watch.paths.
func CollectWatchPaths(cfg *config.Config) []string {
	projectDir := cfg.Dir()
	var rel []string

	switch cfg.ProjectType() {
	case router.ProjectNextApp:
		rel = []string{"app", "src/app"}
	case router.ProjectNextPage:
		rel = []string{"pages", "src/pages"}
	case router.ProjectReact:
		rel = router.ReactSources
		if cfg.Source != "" {
			rel = []string{cfg.Source}
		}
	}
	if cfg.RoutesDir != "" && cfg.ProjectType() != router.ProjectReact {
		rel = []string{cfg.RoutesDir}
	}

	paths := make([]string, 0, len(rel)+len(cfg.Watch.Paths))
	for _, p := range rel {
		paths = append(paths, resolvePath(projectDir, filepath.FromSlash(p)))
	}
	paths = append(paths, cfg.WatchPaths()...)

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}

func resolvePath(projectDir, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}

func isSamePath(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return filepath.Clean(absA) == filepath.Clean(absB)
}

// isWriteTemp reports whether path is a temporary file created while
// atomically replacing output.
func isWriteTemp(path, output string) bool {
	if filepath.Dir(path) != filepath.Dir(output) {
		absP, errP := filepath.Abs(path)
		absO, errO := filepath.Abs(output)
		if errP != nil || errO != nil || filepath.Dir(absP) != filepath.Dir(absO) {
			return false
		}
	}
	return strings.HasPrefix(filepath.Base(path), "."+filepath.Base(output)+".tmp-")
}
