package router

import (
	"fmt"
	"strings"
)

// RouteTable is an insertion-ordered set of route entries keyed by
// canonical pattern.
type RouteTable struct {
	order   []*RouteEntry
	entries map[string]*RouteEntry
}

// Len returns the number of routes.
func (t *RouteTable) Len() int {
	return len(t.order)
}

// Entries returns the routes in insertion order.
func (t *RouteTable) Entries() []*RouteEntry {
	out := make([]*RouteEntry, len(t.order))
	copy(out, t.order)
	return out
}

// Get looks up a route by its canonical pattern.
func (t *RouteTable) Get(key string) (*RouteEntry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Keys returns every canonical pattern in insertion order.
func (t *RouteTable) Keys() []string {
	keys := make([]string, len(t.order))
	for i, e := range t.order {
		keys[i] = e.Key()
	}
	return keys
}

// TableBuilder accumulates entries and detects routes that would match the
// same concrete path.
type TableBuilder struct {
	table  *RouteTable
	claims map[string]*RouteEntry
	slots  map[string]*RouteEntry
	errs   []*ValidationError
}

// NewTableBuilder creates an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{
		table:  &RouteTable{entries: make(map[string]*RouteEntry)},
		claims: make(map[string]*RouteEntry),
		slots:  make(map[string]*RouteEntry),
	}
}

// Add inserts an entry. A conflicting entry is recorded, left out of the
// table, and returned as a *ValidationError.
func (b *TableBuilder) Add(e *RouteEntry) error {
	for _, shape := range claimedShapes(e.Pattern) {
		if other, ok := b.claims[shape]; ok {
			return b.conflict(other, e, fmt.Sprintf("%s conflicts with %s", e.Key(), other.Key()))
		}
	}

	// One dynamic position may only carry one parameter name.
	for i, seg := range e.Pattern {
		if seg.Kind == SegmentStatic {
			continue
		}
		slot := shapeKey(e.Pattern[:i+1])
		other, ok := b.slots[slot]
		if !ok {
			continue
		}
		if name := other.Pattern[i].Value; name != seg.Value {
			return b.conflict(other, e, fmt.Sprintf(
				"%s names parameter %q where %s uses %q", e.Key(), seg.Value, other.Key(), name))
		}
	}

	for _, shape := range claimedShapes(e.Pattern) {
		b.claims[shape] = e
	}
	for i, seg := range e.Pattern {
		if seg.Kind != SegmentStatic {
			slot := shapeKey(e.Pattern[:i+1])
			if _, ok := b.slots[slot]; !ok {
				b.slots[slot] = e
			}
		}
	}
	b.table.order = append(b.table.order, e)
	b.table.entries[e.Key()] = e
	return nil
}

func (b *TableBuilder) conflict(first, second *RouteEntry, msg string) error {
	err := &ValidationError{
		Type:    ErrorConflictingRoute,
		Message: msg,
		Files:   []string{first.Source, second.Source},
		Path:    second.Key(),
		Details: "Files: " + strings.Join([]string{first.Source, second.Source}, ", "),
	}
	b.errs = append(b.errs, err)
	return err
}

// Table returns the built table, or a *MultiValidationError listing every
// conflict seen by Add.
func (b *TableBuilder) Table() (*RouteTable, error) {
	if len(b.errs) > 0 {
		return nil, &MultiValidationError{Errors: b.errs}
	}
	return b.table, nil
}

// BuildTable builds a table from entries in order.
func BuildTable(entries []*RouteEntry) (*RouteTable, error) {
	b := NewTableBuilder()
	for _, e := range entries {
		_ = b.Add(e)
	}
	return b.Table()
}

// claimedShapes lists the name-erased shapes an entry matches. An optional
// catch-all also matches its parent path and every required catch-all at
// the same position.
func claimedShapes(pattern []Segment) []string {
	shapes := []string{shapeKey(pattern)}
	n := len(pattern)
	if n > 0 && pattern[n-1].Kind == SegmentOptionalCatchAll {
		shapes = append(shapes, shapeKey(pattern[:n-1]))
		required := append(pattern[:n-1:n-1], Segment{Kind: SegmentCatchAll})
		shapes = append(shapes, shapeKey(required))
	}
	return shapes
}

// RouteGroup is one level of the hierarchy view of a table.
type RouteGroup struct {
	Name   string
	Routes []*RouteEntry
	Groups []*RouteGroup

	index map[string]*RouteGroup
}

// Hierarchy nests the table's routes by their folder path. Groups and
// routes keep insertion order.
func (t *RouteTable) Hierarchy() *RouteGroup {
	root := &RouteGroup{}
	for _, e := range t.order {
		g := root
		for _, name := range e.Nesting {
			g = g.child(name)
		}
		g.Routes = append(g.Routes, e)
	}
	return root
}

func (g *RouteGroup) child(name string) *RouteGroup {
	if g.index == nil {
		g.index = make(map[string]*RouteGroup)
	}
	if c, ok := g.index[name]; ok {
		return c
	}
	c := &RouteGroup{Name: name}
	g.index[name] = c
	g.Groups = append(g.Groups, c)
	return c
}
