package router

import (
	"fmt"
	"slices"
	"strings"

	"github.com/saferoute-dev/saferoute/pkg/routepath"
)

// Normalize converts a raw node into a canonical route entry.
//
// Structural nodes return (nil, nil). Route groups "(name)" are removed
// from the pattern but kept in Nesting. Every failure wraps ErrNormalization
// together with the specific sentinel.
func Normalize(node RouteNode) (*RouteEntry, error) {
	if !node.Leaf {
		return nil, nil
	}

	entry := &RouteEntry{Source: node.Source}
	tokenIdx := make([]int, 0, len(node.Tokens))
	seen := make(map[string]bool)

	for i, tok := range node.Tokens {
		seg, group, err := classifyToken(tok)
		if err != nil {
			return nil, &ValidationError{
				Type:    ErrorInvalidSegment,
				Message: fmt.Sprintf("invalid segment %q in %s", tok, node.Source),
				Files:   []string{node.Source},
				Details: err.Error(),
			}
		}
		if group {
			continue
		}
		if seg.Kind != SegmentStatic {
			if seen[seg.Value] {
				return nil, &ValidationError{
					Type:    ErrorDuplicateParam,
					Message: fmt.Sprintf("parameter %q appears more than once in %s", seg.Value, node.Source),
					Files:   []string{node.Source},
				}
			}
			seen[seg.Value] = true
			entry.Params = append(entry.Params, Param{Name: seg.Value, Kind: paramKindFor(seg.Kind)})
		}
		entry.Pattern = append(entry.Pattern, seg)
		tokenIdx = append(tokenIdx, i)
	}

	for i, seg := range entry.Pattern {
		if seg.Kind.IsCatchAll() && i != len(entry.Pattern)-1 {
			return nil, &ValidationError{
				Type:    ErrorMisplacedCatchAll,
				Message: fmt.Sprintf("catch-all %q must be the last segment in %s", node.Tokens[tokenIdx[i]], node.Source),
				Files:   []string{node.Source},
				Path:    entry.Key(),
			}
		}
	}

	if node.DeclaredParams != nil {
		if err := checkDeclared(entry, node.DeclaredParams); err != nil {
			return nil, err
		}
	}

	last := -1
	if len(tokenIdx) > 0 {
		last = tokenIdx[len(tokenIdx)-1]
	}
	for i, tok := range node.Tokens {
		if i == last {
			continue
		}
		if isGroupToken(tok) || !strings.HasPrefix(tok, "[") {
			entry.Nesting = append(entry.Nesting, tok)
		}
	}

	return entry, nil
}

// classifyToken maps one raw token to a segment or reports a route group.
func classifyToken(tok string) (Segment, bool, error) {
	switch {
	case tok == "":
		return Segment{}, false, fmt.Errorf("empty segment")
	case isGroupToken(tok):
		return Segment{}, true, nil
	case strings.HasPrefix(tok, "[[..."):
		name, ok := strings.CutSuffix(tok[len("[[..."):], "]]")
		if !ok || !routepath.IsIdentifier(name) {
			return Segment{}, false, fmt.Errorf("malformed optional catch-all")
		}
		return Segment{Kind: SegmentOptionalCatchAll, Value: name}, false, nil
	case strings.HasPrefix(tok, "[..."):
		name, ok := strings.CutSuffix(tok[len("[..."):], "]")
		if !ok || !routepath.IsIdentifier(name) {
			return Segment{}, false, fmt.Errorf("malformed catch-all")
		}
		return Segment{Kind: SegmentCatchAll, Value: name}, false, nil
	case strings.HasPrefix(tok, "["):
		name, ok := strings.CutSuffix(tok[1:], "]")
		if !ok || !routepath.IsIdentifier(name) {
			return Segment{}, false, fmt.Errorf("malformed dynamic segment")
		}
		return Segment{Kind: SegmentDynamic, Value: name}, false, nil
	case strings.ContainsAny(tok, "[]"):
		return Segment{}, false, fmt.Errorf("unbalanced bracket")
	case strings.Contains(tok, routepath.Marker):
		return Segment{}, false, fmt.Errorf("literal %q is reserved for placeholders", routepath.Marker)
	case strings.Contains(tok, "/"):
		return Segment{}, false, fmt.Errorf("segment contains a slash")
	}
	return Segment{Kind: SegmentStatic, Value: tok}, false, nil
}

func isGroupToken(tok string) bool {
	return len(tok) > 2 && strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")")
}

func paramKindFor(kind SegmentKind) ParamKind {
	switch kind {
	case SegmentCatchAll:
		return ParamStringSlice
	case SegmentOptionalCatchAll:
		return ParamOptionalStringSlice
	default:
		return ParamString
	}
}

func checkDeclared(entry *RouteEntry, declared []string) error {
	have := make([]string, len(entry.Params))
	for i, p := range entry.Params {
		have[i] = p.Name
	}
	want := slices.Clone(declared)
	slices.Sort(have)
	slices.Sort(want)
	want = slices.Compact(want)
	if slices.Equal(have, want) {
		return nil
	}
	return &ValidationError{
		Type:    ErrorParamMismatch,
		Message: fmt.Sprintf("declared parameters of %s do not match its path", entry.Key()),
		Files:   []string{entry.Source},
		Path:    entry.Key(),
		Details: fmt.Sprintf("declared [%s], path has [%s]", strings.Join(want, ", "), strings.Join(have, ", ")),
	}
}
