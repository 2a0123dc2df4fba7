package router

import (
	"context"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Structural file stems of the app directory. They shape the rendered tree
// but do not add addressable paths.
var appStructuralFiles = map[string]bool{
	"layout":    true,
	"template":  true,
	"loading":   true,
	"error":     true,
	"not-found": true,
	"default":   true,
}

// Special files of the pages directory.
var pagesSpecialFiles = map[string]bool{
	"_app":        true,
	"_document":   true,
	"_error":      true,
	"_middleware": true,
}

type nextAppAdapter struct {
	fs   billy.Filesystem
	opts ScanOptions
}

func (a *nextAppAdapter) Type() ProjectType { return ProjectNextApp }

func (a *nextAppAdapter) Scan(ctx context.Context) iter.Seq2[RouteNode, error] {
	return func(yield func(RouteNode, error) bool) {
		candidates := []string{"app", "src/app"}
		if a.opts.RoutesDir != "" {
			candidates = []string{a.opts.RoutesDir}
		}
		root, err := locateDir(a.fs, candidates)
		if err != nil {
			yield(RouteNode{}, err)
			return
		}

		w := &walker{fs: a.fs, skipDir: skipAppDir}
		err = w.walk(ctx, root, func(rel string, dirs []string, info os.FileInfo) bool {
			stem, ext := splitExt(info.Name())
			if !hasExt(a.opts.PageExtensions, ext) {
				return true
			}
			switch {
			case stem == "page":
				return yield(RouteNode{Source: rel, Tokens: slices.Clone(dirs), Leaf: true}, nil)
			case appStructuralFiles[stem]:
				return yield(RouteNode{Source: rel, Tokens: slices.Clone(dirs)}, nil)
			}
			return true
		})
		if err != nil {
			yield(RouteNode{}, err)
		}
	}
}

// skipAppDir excludes private folders, parallel route slots and
// intercepting routes.
func skipAppDir(_ []string, name string) bool {
	switch {
	case strings.HasPrefix(name, "_"):
		return true
	case strings.HasPrefix(name, "@"):
		return true
	case strings.HasPrefix(name, "(.)"), strings.HasPrefix(name, "(..)"), strings.HasPrefix(name, "(...)"):
		return true
	}
	return false
}

type nextPageAdapter struct {
	fs   billy.Filesystem
	opts ScanOptions
}

func (a *nextPageAdapter) Type() ProjectType { return ProjectNextPage }

func (a *nextPageAdapter) Scan(ctx context.Context) iter.Seq2[RouteNode, error] {
	return func(yield func(RouteNode, error) bool) {
		candidates := []string{"pages", "src/pages"}
		if a.opts.RoutesDir != "" {
			candidates = []string{a.opts.RoutesDir}
		}
		root, err := locateDir(a.fs, candidates)
		if err != nil {
			yield(RouteNode{}, err)
			return
		}

		w := &walker{fs: a.fs, skipDir: skipPagesDir}
		err = w.walk(ctx, root, func(rel string, dirs []string, info os.FileInfo) bool {
			name := info.Name()
			if strings.HasSuffix(name, ".d.ts") {
				return true
			}
			stem, ext := splitExt(name)
			if !hasExt(a.opts.PageExtensions, ext) {
				return true
			}
			if pagesSpecialFiles[stem] {
				return yield(RouteNode{Source: rel, Tokens: slices.Clone(dirs)}, nil)
			}
			if strings.HasPrefix(stem, "_") {
				return true
			}
			tokens := append(slices.Clone(dirs), stem)
			if stem == "index" {
				tokens = tokens[:len(tokens)-1]
			}
			return yield(RouteNode{Source: rel, Tokens: tokens, Leaf: true}, nil)
		})
		if err != nil {
			yield(RouteNode{}, err)
		}
	}
}

// skipPagesDir excludes the top-level api folder, whose files are API
// handlers rather than pages.
func skipPagesDir(dirs []string, name string) bool {
	return len(dirs) == 0 && name == "api"
}
