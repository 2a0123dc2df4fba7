package router

import (
	"fmt"
	"strings"

	"github.com/saferoute-dev/saferoute/pkg/routepath"
)

// ProjectType selects the file-routing convention a project follows.
type ProjectType string

const (
	// ProjectReact reads routes declared in a single configuration source.
	ProjectReact ProjectType = "react"

	// ProjectNextApp walks a Next.js app/ directory (page files in folders).
	ProjectNextApp ProjectType = "next-app"

	// ProjectNextPage walks a Next.js pages/ directory (one file per route).
	ProjectNextPage ProjectType = "next-page"
)

// ProjectTypes returns every supported project type.
func ProjectTypes() []ProjectType {
	return []ProjectType{ProjectReact, ProjectNextApp, ProjectNextPage}
}

// ParseProjectType validates a project type tag.
func ParseProjectType(s string) (ProjectType, error) {
	for _, pt := range ProjectTypes() {
		if string(pt) == s {
			return pt, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected react, next-app or next-page)", ErrUnsupportedConvention, s)
}

// RouteNode is a raw route discovered by a convention adapter.
type RouteNode struct {
	// Source is the slash-separated location relative to the project root,
	// optionally suffixed with ":line" for declarative sources.
	Source string

	// Tokens are the raw segment tokens as written on disk, including
	// route group "(name)" and bracket "[name]" markers.
	Tokens []string

	// Leaf marks a routable node. Structural nodes (layouts and the like)
	// contribute no addressable path.
	Leaf bool

	// DeclaredParams lists parameter names stated explicitly by the source.
	// Nil when the convention derives names from the tokens alone.
	DeclaredParams []string
}

// SegmentKind classifies a canonical path segment.
type SegmentKind int

const (
	SegmentStatic SegmentKind = iota
	SegmentDynamic
	SegmentCatchAll
	SegmentOptionalCatchAll
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentStatic:
		return "static"
	case SegmentDynamic:
		return "dynamic"
	case SegmentCatchAll:
		return "catch-all"
	case SegmentOptionalCatchAll:
		return "optional catch-all"
	default:
		return "unknown"
	}
}

// IsCatchAll reports whether the kind consumes the rest of the path.
func (k SegmentKind) IsCatchAll() bool {
	return k == SegmentCatchAll || k == SegmentOptionalCatchAll
}

// Segment is one canonical path segment. Value is the static name or the
// parameter name, depending on Kind.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// String renders the segment the way it appears in a canonical pattern.
func (s Segment) String() string {
	if s.Kind == SegmentStatic {
		return s.Value
	}
	return routepath.Placeholder(s.Value)
}

// ParamKind is the type of value a parameter binds.
type ParamKind string

const (
	ParamString              ParamKind = "string"
	ParamStringSlice         ParamKind = "string[]"
	ParamOptionalStringSlice ParamKind = "string[] | undefined"
)

// Optional reports whether the parameter may be omitted.
func (k ParamKind) Optional() bool {
	return k == ParamOptionalStringSlice
}

// Param is one named slot in a route's parameter schema.
type Param struct {
	Name string
	Kind ParamKind
}

// RouteEntry is a normalized, addressable route.
type RouteEntry struct {
	// Pattern is the canonical path pattern, group segments removed.
	Pattern []Segment

	// Params is the parameter schema in left-to-right order.
	Params []Param

	// Source is the location the route was discovered at.
	Source string

	// Nesting holds the static and group folder names above the route's
	// final segment. Only hierarchy emission reads it.
	Nesting []string
}

// Key returns the stringified canonical pattern, e.g. "/user/$id".
func (e *RouteEntry) Key() string {
	return PatternString(e.Pattern)
}

// Param looks up a parameter by name.
func (e *RouteEntry) Param(name string) (Param, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// PatternString renders segments as a canonical pattern.
func PatternString(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.String()
	}
	return routepath.Join(parts)
}

// shapeKey renders segments with parameter names erased, so that patterns
// matching the same set of concrete paths share a key.
func shapeKey(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		switch seg.Kind {
		case SegmentStatic:
			b.WriteString(seg.Value)
		case SegmentDynamic:
			b.WriteString("\x00:")
		case SegmentCatchAll:
			b.WriteString("\x00*")
		case SegmentOptionalCatchAll:
			b.WriteString("\x00*?")
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
