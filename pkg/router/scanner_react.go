package router

import (
	"context"
	"fmt"
	"iter"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"gopkg.in/yaml.v3"
)

// ReactSources are the route sources probed, in order, when no explicit
// source is configured. Declarative files win over code.
var ReactSources = []string{
	"saferoute.routes.yaml",
	"saferoute.routes.yml",
	"saferoute.routes.json",
	"src/routes.tsx",
	"src/routes.ts",
	"src/routes.jsx",
	"src/routes.js",
	"src/router.tsx",
	"src/router.ts",
	"src/router.jsx",
	"src/router.js",
	"src/App.tsx",
	"src/App.jsx",
}

// routeRecord is one route declaration before flattening.
type routeRecord struct {
	Path       string
	Index      bool
	ParamNames []string
	Declared   bool
	Line       int
	Children   []routeRecord
}

type reactAdapter struct {
	fs   billy.Filesystem
	opts ScanOptions
}

func (a *reactAdapter) Type() ProjectType { return ProjectReact }

func (a *reactAdapter) Scan(ctx context.Context) iter.Seq2[RouteNode, error] {
	return func(yield func(RouteNode, error) bool) {
		candidates := ReactSources
		if a.opts.Source != "" {
			candidates = []string{a.opts.Source}
		}
		src, err := locateFile(a.fs, candidates)
		if err != nil {
			yield(RouteNode{}, err)
			return
		}
		data, err := util.ReadFile(a.fs, src)
		if err != nil {
			yield(RouteNode{}, fmt.Errorf("reading %s: %w", src, err))
			return
		}

		var records []routeRecord
		switch path.Ext(src) {
		case ".yaml", ".yml", ".json":
			records, err = parseDeclaredRoutes(data)
		default:
			records, err = parseRouteCode(ctx, src, data)
		}
		if err != nil {
			yield(RouteNode{}, fmt.Errorf("parsing %s: %w", src, err))
			return
		}

		f := flattener{source: src, yield: yield}
		f.flatten(records, nil, nil)
	}
}

// declaredRoute is the YAML/JSON shape of one route.
type declaredRoute struct {
	Path       string      `yaml:"path"`
	Index      bool        `yaml:"index"`
	ParamNames []string    `yaml:"paramNames"`
	Children   []yaml.Node `yaml:"children"`
}

// parseDeclaredRoutes reads either a bare list of routes or a mapping with
// a "routes" key. JSON is accepted as a YAML subset.
func parseDeclaredRoutes(data []byte) ([]routeRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		var wrapper struct {
			Routes yaml.Node `yaml:"routes"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, err
		}
		root = &wrapper.Routes
	}
	if root.Kind == 0 {
		return nil, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: routes must be a list", root.Line)
	}
	return decodeRouteList(root.Content)
}

func decodeRouteList(nodes []*yaml.Node) ([]routeRecord, error) {
	records := make([]routeRecord, 0, len(nodes))
	for _, n := range nodes {
		var d declaredRoute
		if err := n.Decode(&d); err != nil {
			return nil, err
		}
		rec := routeRecord{
			Path:       d.Path,
			Index:      d.Index,
			ParamNames: d.ParamNames,
			Declared:   hasMappingKey(n, "paramNames"),
			Line:       n.Line,
		}
		children := make([]*yaml.Node, len(d.Children))
		for i := range d.Children {
			children[i] = &d.Children[i]
		}
		kids, err := decodeRouteList(children)
		if err != nil {
			return nil, err
		}
		rec.Children = kids
		records = append(records, rec)
	}
	return records, nil
}

func hasMappingKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// languageForPath returns the tree-sitter grammar for a route module.
func languageForPath(name string) *sitter.Language {
	switch path.Ext(name) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	case ".js", ".jsx":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// parseRouteCode extracts route objects ({ path, index, children }) and
// <Route path> elements from a JS/TS module.
func parseRouteCode(ctx context.Context, name string, data []byte) ([]routeRecord, error) {
	lang := languageForPath(name)
	if lang == nil {
		return nil, fmt.Errorf("unsupported route source extension %q", path.Ext(name))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, data)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root")
	}

	e := &routeExtractor{src: data}
	return e.collect(root), nil
}

type routeExtractor struct {
	src []byte
}

// collect returns the route records found at or below n. Nested route
// declarations become children of the nearest enclosing route.
func (e *routeExtractor) collect(n *sitter.Node) []routeRecord {
	switch n.Type() {
	case "object":
		if rec, ok := e.objectRoute(n); ok {
			return []routeRecord{rec}
		}
	case "jsx_element", "jsx_self_closing_element":
		if rec, ok := e.elementRoute(n); ok {
			return []routeRecord{rec}
		}
	}
	return e.collectChildren(n)
}

func (e *routeExtractor) collectChildren(n *sitter.Node) []routeRecord {
	var out []routeRecord
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, e.collect(n.NamedChild(i))...)
	}
	return out
}

func (e *routeExtractor) objectRoute(n *sitter.Node) (routeRecord, bool) {
	rec := routeRecord{Line: int(n.StartPoint().Row) + 1}
	isRoute := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key == nil || value == nil {
			continue
		}
		switch unquote(key.Content(e.src)) {
		case "path":
			if s, ok := e.stringValue(value); ok {
				rec.Path = s
				isRoute = true
			}
		case "index":
			if value.Type() == "true" {
				rec.Index = true
				isRoute = true
			}
		case "children":
			rec.Children = e.collectChildren(value)
		}
	}
	return rec, isRoute || len(rec.Children) > 0 && e.hasElementKey(n)
}

// hasElementKey reports whether a pathless object is a layout route, i.e.
// renders an element or component.
func (e *routeExtractor) hasElementKey(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		if key := pair.ChildByFieldName("key"); key != nil {
			switch unquote(key.Content(e.src)) {
			case "element", "Component", "component", "lazy":
				return true
			}
		}
	}
	return false
}

func (e *routeExtractor) elementRoute(n *sitter.Node) (routeRecord, bool) {
	open := n
	if n.Type() == "jsx_element" {
		open = n.ChildByFieldName("open_tag")
		if open == nil {
			return routeRecord{}, false
		}
	}
	name := open.ChildByFieldName("name")
	if name == nil || name.Content(e.src) != "Route" {
		return routeRecord{}, false
	}

	rec := routeRecord{Line: int(n.StartPoint().Row) + 1}
	for i := 0; i < int(open.NamedChildCount()); i++ {
		attr := open.NamedChild(i)
		if attr.Type() != "jsx_attribute" || attr.NamedChildCount() == 0 {
			continue
		}
		attrName := attr.NamedChild(0).Content(e.src)
		var value *sitter.Node
		if attr.NamedChildCount() > 1 {
			value = attr.NamedChild(1)
		}
		switch attrName {
		case "path":
			if value != nil {
				if s, ok := e.stringValue(value); ok {
					rec.Path = s
				}
			}
		case "index":
			rec.Index = value == nil || strings.Contains(value.Content(e.src), "true")
		}
	}

	if n.Type() == "jsx_element" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "jsx_opening_element", "jsx_closing_element":
				continue
			}
			rec.Children = append(rec.Children, e.collect(child)...)
		}
	}
	return rec, true
}

// stringValue reads a string literal, a template string without
// substitutions, or a JSX expression wrapping either.
func (e *routeExtractor) stringValue(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		return unquote(n.Content(e.src)), true
	case "template_string":
		if n.NamedChildCount() > 0 {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if n.NamedChild(i).Type() == "template_substitution" {
					return "", false
				}
			}
		}
		return unquote(n.Content(e.src)), true
	case "jsx_expression":
		if n.NamedChildCount() == 1 {
			return e.stringValue(n.NamedChild(0))
		}
	}
	return "", false
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

// flattener turns nested records into route nodes, translating the
// react-router path syntax into bracket tokens. Declared paramNames of a
// child are appended to those its ancestors declared.
type flattener struct {
	source string
	yield  func(RouteNode, error) bool
	done   bool
}

func (f *flattener) flatten(records []routeRecord, parent []reactToken, declared []string) {
	for _, rec := range records {
		if f.done {
			return
		}
		tokens := parent
		if strings.HasPrefix(rec.Path, "/") {
			tokens = nil
		}
		tokens = append(tokens[:len(tokens):len(tokens)], parseReactPath(rec.Path)...)

		names := declared
		if rec.Declared {
			names = append(slices.Clone(declared), rec.ParamNames...)
		}

		// A route whose index child renders its own path is a layout.
		leaf := rec.Index || rec.Path != ""
		if leaf && !rec.Index && hasIndexChild(rec.Children) {
			leaf = false
		}

		source := fmt.Sprintf("%s:%d", f.source, rec.Line)
		for _, variant := range expandOptional(tokens) {
			node := RouteNode{Source: source, Tokens: variant.tokens, Leaf: leaf}
			if rec.Declared {
				node.DeclaredParams = withoutNames(names, variant.omitted)
			}
			if !f.yield(node, nil) {
				f.done = true
				return
			}
		}

		if len(rec.Children) > 0 {
			f.flatten(rec.Children, tokens, names)
		}
	}
}

func hasIndexChild(children []routeRecord) bool {
	for _, c := range children {
		if c.Index && c.Path == "" {
			return true
		}
	}
	return false
}

// reactToken is a translated path token. Optional tokens came from a
// trailing "?" and may be omitted.
type reactToken struct {
	value    string
	param    string
	optional bool
}

// parseReactPath translates "user/:id/*" into [user [id] [...splat]].
func parseReactPath(p string) []reactToken {
	var tokens []reactToken
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		optional := false
		if strings.HasSuffix(seg, "?") {
			optional = true
			seg = strings.TrimSuffix(seg, "?")
		}
		tok := reactToken{value: seg, optional: optional}
		switch {
		case seg == "*":
			tok.value = "[...splat]"
			tok.param = "splat"
		case strings.HasPrefix(seg, ":"):
			tok.param = seg[1:]
			tok.value = "[" + tok.param + "]"
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

type tokenVariant struct {
	tokens  []string
	omitted []string
}

// expandOptional returns every combination of present and omitted optional
// tokens, the fully present variant first.
func expandOptional(tokens []reactToken) []tokenVariant {
	variants := []tokenVariant{{tokens: []string{}}}
	for _, tok := range tokens {
		next := make([]tokenVariant, 0, len(variants)*2)
		for _, v := range variants {
			next = append(next, tokenVariant{
				tokens:  append(slices.Clone(v.tokens), tok.value),
				omitted: v.omitted,
			})
		}
		if tok.optional {
			for _, v := range variants {
				omitted := v.omitted
				if tok.param != "" {
					omitted = append(slices.Clone(omitted), tok.param)
				}
				next = append(next, tokenVariant{tokens: slices.Clone(v.tokens), omitted: omitted})
			}
		}
		variants = next
	}
	return variants
}

func withoutNames(names, omitted []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(omitted, n) {
			out = append(out, n)
		}
	}
	return out
}
