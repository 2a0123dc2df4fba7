package router

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saferoute-dev/saferoute/pkg/routepath"
)

// Mode selects the shape of the emitted types.
type Mode string

const (
	// ModeFlat emits one union of every route.
	ModeFlat Mode = "flat"

	// ModeHierarchy emits routes nested by folder, plus the derived union.
	ModeHierarchy Mode = "hierarchy"
)

// ErrInvalidMode is returned by ParseMode for unknown modes.
var ErrInvalidMode = errors.New("invalid emit mode")

// ParseMode validates a mode tag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFlat, ModeHierarchy:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q (expected flat or hierarchy)", ErrInvalidMode, s)
}

// Format is the language of the emitted artifact.
type Format string

const (
	FormatTypeScript Format = "typescript"
	FormatGo         Format = "go"
)

// FormatForPath infers the artifact format from the output file extension.
func FormatForPath(output string) Format {
	if filepath.Ext(output) == ".go" {
		return FormatGo
	}
	return FormatTypeScript
}

// GeneratedHeader is the first line of every emitted artifact.
const GeneratedHeader = "// Code generated by saferoute. DO NOT EDIT."

// EmitOptions configures Emit.
type EmitOptions struct {
	Mode   Mode
	Format Format

	// Package names the Go package of a Go artifact. Defaults to "routes".
	Package string
}

// Emit renders a table as an artifact. Output depends only on the table's
// contents and order, so equal tables produce byte-identical artifacts.
func Emit(table *RouteTable, opts EmitOptions) ([]byte, error) {
	if opts.Mode == "" {
		opts.Mode = ModeHierarchy
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	switch opts.Format {
	case FormatGo:
		return emitGo(table, opts)
	case FormatTypeScript, "":
		if opts.Mode == ModeFlat {
			return emitTSFlat(table), nil
		}
		return emitTSHierarchy(table), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

func emitTSFlat(table *RouteTable) []byte {
	var code strings.Builder
	code.WriteString(GeneratedHeader + "\n\n")

	entries := table.Entries()
	if len(entries) == 0 {
		code.WriteString("export type Routes = never;\n")
		return []byte(code.String())
	}

	code.WriteString("export type Routes =\n")
	for i, e := range entries {
		code.WriteString("  | " + tsRouteLiteral(e))
		if i == len(entries)-1 {
			code.WriteString(";")
		}
		code.WriteString("\n")
	}
	return []byte(code.String())
}

// routeLeavesHelper derives the flat union from the nested tree.
const routeLeavesHelper = `type RouteLeaves<T> =
  | (T extends { $routes: infer R } ? R : never)
  | { [K in Exclude<keyof T, "$routes">]: RouteLeaves<T[K]> }[Exclude<keyof T, "$routes">];
`

func emitTSHierarchy(table *RouteTable) []byte {
	var code strings.Builder
	code.WriteString(GeneratedHeader + "\n\n")

	root := table.Hierarchy()
	if len(root.Routes) == 0 && len(root.Groups) == 0 {
		code.WriteString("export type RouteTree = {};\n\n")
	} else {
		code.WriteString("export type RouteTree = {\n")
		writeTSGroup(&code, root, 1)
		code.WriteString("};\n\n")
	}

	code.WriteString(routeLeavesHelper)
	code.WriteString("\nexport type Routes = RouteLeaves<RouteTree>;\n")
	return []byte(code.String())
}

func writeTSGroup(code *strings.Builder, g *RouteGroup, depth int) {
	indent := strings.Repeat("  ", depth)

	switch len(g.Routes) {
	case 0:
	case 1:
		fmt.Fprintf(code, "%s$routes: %s;\n", indent, tsRouteLiteral(g.Routes[0]))
	default:
		fmt.Fprintf(code, "%s$routes:\n", indent)
		for i, e := range g.Routes {
			fmt.Fprintf(code, "%s  | %s", indent, tsRouteLiteral(e))
			if i == len(g.Routes)-1 {
				code.WriteString(";")
			}
			code.WriteString("\n")
		}
	}

	for _, child := range g.Groups {
		fmt.Fprintf(code, "%s%s: {\n", indent, tsKey(child.Name))
		writeTSGroup(code, child, depth+1)
		fmt.Fprintf(code, "%s};\n", indent)
	}
}

// tsRouteLiteral renders { path: "/user/$id"; params: { id: string } }.
func tsRouteLiteral(e *RouteEntry) string {
	var b strings.Builder
	b.WriteString("{ path: ")
	b.WriteString(strconv.Quote(e.Key()))
	if len(e.Params) > 0 {
		b.WriteString("; params: { ")
		for i, p := range e.Params {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(tsKey(p.Name))
			if p.Kind.Optional() {
				b.WriteString("?: string[]")
			} else {
				b.WriteString(": " + string(p.Kind))
			}
		}
		b.WriteString(" }")
	}
	b.WriteString(" }")
	return b.String()
}

// tsKey renders a property key, quoting it unless it is an identifier.
func tsKey(name string) string {
	if routepath.IsIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}
