package router

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Adapter discovers raw route nodes for one project convention.
type Adapter interface {
	// Type returns the convention the adapter implements.
	Type() ProjectType

	// Scan returns a lazy, restartable sequence of nodes. Each call walks
	// the filesystem again. Iteration stops at the first error yielded.
	Scan(ctx context.Context) iter.Seq2[RouteNode, error]
}

// ScanOptions configures an adapter.
type ScanOptions struct {
	// RoutesDir overrides the conventional routes root (app/, pages/),
	// relative to the project root.
	RoutesDir string

	// Source overrides the route source of react projects, relative to the
	// project root.
	Source string

	// PageExtensions lists the file extensions that define routes, with the
	// leading dot. Defaults to DefaultPageExtensions.
	PageExtensions []string
}

// DefaultPageExtensions are the page file extensions recognized by the
// directory conventions.
var DefaultPageExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".mdx"}

// NewAdapter returns the adapter for pt. fs must be rooted at the project root.
func NewAdapter(pt ProjectType, fs billy.Filesystem, opts ScanOptions) (Adapter, error) {
	if len(opts.PageExtensions) == 0 {
		opts.PageExtensions = DefaultPageExtensions
	}
	switch pt {
	case ProjectNextApp:
		return &nextAppAdapter{fs: fs, opts: opts}, nil
	case ProjectNextPage:
		return &nextPageAdapter{fs: fs, opts: opts}, nil
	case ProjectReact:
		return &reactAdapter{fs: fs, opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConvention, pt)
	}
}

// Collect drains a scan into a slice, stopping at the first error.
func Collect(seq iter.Seq2[RouteNode, error]) ([]RouteNode, error) {
	var nodes []RouteNode
	for node, err := range seq {
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// locateDir returns the first candidate directory that exists.
func locateDir(fs billy.Filesystem, candidates []string) (string, error) {
	for _, dir := range candidates {
		info, err := fs.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: no %s directory", ErrNotFound, strings.Join(candidates, " or "))
}

// locateFile returns the first candidate file that exists.
func locateFile(fs billy.Filesystem, candidates []string) (string, error) {
	for _, name := range candidates {
		info, err := fs.Stat(name)
		if err == nil && !info.IsDir() {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s", ErrNotFound, strings.Join(candidates, ", "))
}

// maxWalkDepth bounds directory recursion through symlinks.
const maxWalkDepth = 64

// walkFunc receives each regular file below the walk root. rel is the
// slash-separated path relative to the filesystem root; dirs are the folder
// names between the walk root and the file.
type walkFunc func(rel string, dirs []string, info os.FileInfo) bool

// walker visits files in lexicographic order, following directory symlinks
// unless they point back into their own ancestry.
type walker struct {
	fs      billy.Filesystem
	skipDir func(dirs []string, name string) bool
}

func (w *walker) walk(ctx context.Context, root string, fn walkFunc) error {
	_, err := w.walkDir(ctx, root, cleanRel(root), nil, fn)
	return err
}

func (w *walker) walkDir(ctx context.Context, dir, real string, dirs []string, fn walkFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(dirs) > maxWalkDepth {
		return true, nil
	}

	infos, err := w.fs.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", filepath.ToSlash(dir), err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	for _, info := range infos {
		name := info.Name()
		p := w.fs.Join(dir, name)
		childReal := path.Join(real, name)

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := w.fs.Stat(p)
			if err != nil {
				// dangling link
				continue
			}
			if target.IsDir() {
				childReal = w.resolveLink(p)
				if isAncestor(childReal, real) {
					continue
				}
			}
			info = target
		}

		if info.IsDir() {
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				continue
			}
			if w.skipDir != nil && w.skipDir(dirs, name) {
				continue
			}
			sub := append(dirs[:len(dirs):len(dirs)], name)
			more, err := w.walkDir(ctx, p, childReal, sub, fn)
			if err != nil || !more {
				return false, err
			}
			continue
		}

		if !fn(filepath.ToSlash(p), dirs, info) {
			return false, nil
		}
	}
	return true, nil
}

func (w *walker) resolveLink(p string) string {
	target, err := w.fs.Readlink(p)
	if err != nil {
		return cleanRel(p)
	}
	target = filepath.ToSlash(target)
	if !path.IsAbs(target) {
		target = path.Join(path.Dir(filepath.ToSlash(p)), target)
	}
	return cleanRel(target)
}

func cleanRel(p string) string {
	p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	if p == "." {
		return ""
	}
	return p
}

// isAncestor reports whether dir equals or contains p.
func isAncestor(dir, p string) bool {
	if dir == "" || dir == p {
		return true
	}
	return strings.HasPrefix(p, dir+"/")
}

// splitExt splits a file name at its final dot.
func splitExt(name string) (stem, ext string) {
	ext = path.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
