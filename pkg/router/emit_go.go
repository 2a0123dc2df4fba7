package router

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"mvdan.cc/gofumpt/format"
)

// goLangVersion is the language version generated Go code targets.
const goLangVersion = "go1.22"

func emitGo(table *RouteTable, opts EmitOptions) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "routes"
	}

	var code strings.Builder
	code.WriteString(GeneratedHeader + "\n\n")
	fmt.Fprintf(&code, "package %s\n\n", pkg)

	code.WriteString("// Route is a generated route pattern and its parameter schema.\n")
	code.WriteString("type Route struct {\n\tPath string\n\tParams []Param\n}\n\n")
	code.WriteString("// Param is one named route parameter.\n")
	code.WriteString("type Param struct {\n\tName string\n\tKind string\n\tOptional bool\n}\n\n")

	entries := table.Entries()
	names := goConstNames(entries)

	if len(entries) > 0 {
		code.WriteString("// Route patterns.\n")
		code.WriteString("const (\n")
		for i, e := range entries {
			fmt.Fprintf(&code, "\t%s = %s\n", names[i], strconv.Quote(e.Key()))
		}
		code.WriteString(")\n\n")
	}

	code.WriteString("// Routes lists every route in discovery order.\n")
	code.WriteString("var Routes = []Route{\n")
	for i, e := range entries {
		fmt.Fprintf(&code, "\t%s,\n", goRouteLiteral(e, names[i]))
	}
	code.WriteString("}\n")

	if opts.Mode == ModeHierarchy {
		index := make(map[*RouteEntry]string, len(entries))
		for i, e := range entries {
			index[e] = names[i]
		}
		code.WriteString("\n// Group is one folder level of the route tree.\n")
		code.WriteString("type Group struct {\n\tName string\n\tRoutes []Route\n\tGroups []Group\n}\n\n")
		code.WriteString("// Tree nests Routes by folder.\n")
		code.WriteString("var Tree = ")
		writeGoGroup(&code, table.Hierarchy(), index)
		code.WriteString("\n")
	}

	out, err := format.Source([]byte(code.String()), format.Options{LangVersion: goLangVersion})
	if err != nil {
		return nil, fmt.Errorf("formatting generated Go: %w", err)
	}
	return out, nil
}

func writeGoGroup(code *strings.Builder, g *RouteGroup, names map[*RouteEntry]string) {
	code.WriteString("Group{\n")
	if g.Name != "" {
		fmt.Fprintf(code, "Name: %s,\n", strconv.Quote(g.Name))
	}
	if len(g.Routes) > 0 {
		code.WriteString("Routes: []Route{\n")
		for _, e := range g.Routes {
			code.WriteString(goRouteLiteral(e, names[e]) + ",\n")
		}
		code.WriteString("},\n")
	}
	if len(g.Groups) > 0 {
		code.WriteString("Groups: []Group{\n")
		for _, child := range g.Groups {
			writeGoGroup(code, child, names)
			code.WriteString(",\n")
		}
		code.WriteString("},\n")
	}
	code.WriteString("}")
}

func goRouteLiteral(e *RouteEntry, constName string) string {
	if len(e.Params) == 0 {
		return fmt.Sprintf("{Path: %s}", constName)
	}
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		kind := string(p.Kind)
		if p.Kind.Optional() {
			kind = string(ParamStringSlice)
		}
		lit := fmt.Sprintf("{Name: %s, Kind: %s", strconv.Quote(p.Name), strconv.Quote(kind))
		if p.Kind.Optional() {
			lit += ", Optional: true"
		}
		params[i] = lit + "}"
	}
	return fmt.Sprintf("{Path: %s, Params: []Param{%s}}", constName, strings.Join(params, ", "))
}

// goConstNames derives a unique exported constant per route:
// "/user/$id/posts" becomes PathUserIDPosts.
func goConstNames(entries []*RouteEntry) []string {
	used := make(map[string]int)
	names := make([]string, len(entries))
	for i, e := range entries {
		name := "Path"
		if len(e.Pattern) == 0 {
			name += "Root"
		}
		for _, seg := range e.Pattern {
			name += toPascalCase(seg.Value)
		}
		if !isValidIdentifier(name) {
			name = fmt.Sprintf("Path%d", i+1)
		}
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}
		names[i] = name
	}
	return names
}

func toPascalCase(s string) string {
	if s == "" {
		return s
	}

	// Handle common abbreviations
	upper := strings.ToUpper(s)
	switch upper {
	case "ID", "URL", "API", "HTTP", "UUID":
		return upper
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var result strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}
	return result.String()
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// PackageNameForPath picks the Go package name for an artifact written to
// output: the directory name when it is a valid identifier, else "routes".
func PackageNameForPath(output string) string {
	name := filepath.Base(filepath.Dir(output))
	if name == "." || name == "" || name == string(filepath.Separator) {
		return "routes"
	}
	name = strings.ReplaceAll(name, "-", "_")
	if !isValidIdentifier(name) {
		return "routes"
	}
	return strings.ToLower(name)
}
