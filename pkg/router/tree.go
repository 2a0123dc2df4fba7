package router

import (
	"strings"

	"github.com/saferoute-dev/saferoute/pkg/routepath"
)

// matchNode is a node in the radix tree.
type matchNode struct {
	// segment is the static path segment this node matches
	segment string

	// entry is the route ending at this node
	entry *RouteEntry

	// children are static segment children
	children []*matchNode

	// paramChild is the dynamic parameter child ($id)
	paramChild *matchNode
	paramName  string

	// catchAll and optionalCatchAll end a route at this position
	catchAll         *RouteEntry
	optionalCatchAll *RouteEntry
}

// findChild finds a child node with an exact segment match.
func (n *matchNode) findChild(segment string) *matchNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

// addChild adds or retrieves a child node for the given segment.
func (n *matchNode) addChild(segment string) *matchNode {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &matchNode{segment: segment}
	n.children = append(n.children, child)
	return child
}

// Matcher resolves concrete paths against a route table.
type Matcher struct {
	root *matchNode
}

// NewMatcher indexes every route of the table.
func NewMatcher(table *RouteTable) *Matcher {
	m := &Matcher{root: &matchNode{}}
	for _, e := range table.Entries() {
		m.insert(e)
	}
	return m
}

func (m *Matcher) insert(e *RouteEntry) {
	n := m.root
	for _, seg := range e.Pattern {
		switch seg.Kind {
		case SegmentStatic:
			n = n.addChild(seg.Value)
		case SegmentDynamic:
			if n.paramChild == nil {
				n.paramChild = &matchNode{}
				n.paramName = seg.Value
			}
			n = n.paramChild
		case SegmentCatchAll:
			n.catchAll = e
			return
		case SegmentOptionalCatchAll:
			n.optionalCatchAll = e
			return
		}
	}
	n.entry = e
}

// Match finds the route serving path and extracts its parameter values.
// Catch-all values are joined with "/". Static segments win over dynamic
// ones, which win over catch-alls. The path is cleaned first; a path that
// cannot be cleaned matches nothing.
func (m *Matcher) Match(path string) (*RouteEntry, map[string]string, bool) {
	path, _, err := routepath.Clean(path)
	if err != nil {
		return nil, nil, false
	}
	params := make(map[string]string)
	entry, ok := m.root.match(routepath.Split(path), params)
	if !ok {
		return nil, nil, false
	}
	return entry, params, true
}

func (n *matchNode) match(segments []string, params map[string]string) (*RouteEntry, bool) {
	if len(segments) == 0 {
		if n.entry != nil {
			return n.entry, true
		}
		if n.optionalCatchAll != nil {
			return n.optionalCatchAll, true
		}
		return nil, false
	}

	seg := segments[0]
	rest := segments[1:]

	if decoded, err := routepath.DecodeSegment(seg, false); err == nil {
		if child := n.findChild(decoded); child != nil {
			if e, ok := child.match(rest, params); ok {
				return e, true
			}
		}
	}

	// Parameter values may carry an encoded slash.
	if n.paramChild != nil {
		if value, err := routepath.DecodeSegment(seg, true); err == nil {
			params[n.paramName] = value
			if e, ok := n.paramChild.match(rest, params); ok {
				return e, true
			}
			delete(params, n.paramName)
		}
	}

	for _, e := range []*RouteEntry{n.catchAll, n.optionalCatchAll} {
		if e == nil {
			continue
		}
		values := make([]string, len(segments))
		valid := true
		for i, s := range segments {
			v, err := routepath.DecodeSegment(s, true)
			if err != nil {
				valid = false
				break
			}
			values[i] = v
		}
		if valid {
			last := e.Pattern[len(e.Pattern)-1]
			params[last.Value] = strings.Join(values, "/")
			return e, true
		}
	}

	return nil, false
}
