// Package navigate resolves generated route values into concrete paths and
// forwards them to the host router.
//
// A Route pairs a canonical pattern with its parameter values:
//
//	href, err := navigate.Resolve("/user/$id/posts/$postId", map[string]any{
//		"id":     42,
//		"postId": "hello",
//	})
//	// href == "/user/42/posts/hello"
//
// Navigation goes through a Router bound to an explicit environment. Outside
// the app and pages environments every call is a logged no-op.
package navigate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saferoute-dev/saferoute/pkg/routepath"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

// Resolution errors.
var (
	ErrMissingParam = errors.New("missing route parameter")
	ErrUnknownParam = errors.New("unknown route parameter")
	ErrInvalidValue = errors.New("invalid route parameter value")
)

// Route is a typed route value: a canonical pattern and its parameters.
type Route struct {
	Path   string
	Params map[string]any
}

// Resolve substitutes every placeholder of pattern with its parameter value.
//
// Values are stringified with fmt.Sprint and percent-encoded per segment.
// A []string value expands to one segment per element. An empty or nil
// []string in the final segment drops it, which is how an absent optional
// catch-all is expressed.
// Missing and unknown keys are errors.
func Resolve(pattern string, params map[string]any) (string, error) {
	segments := routepath.Split(pattern)
	used := make(map[string]bool, len(params))
	out := make([]string, 0, len(segments))

	for i, seg := range segments {
		name, ok := routepath.ParsePlaceholder(seg)
		if !ok {
			out = append(out, seg)
			continue
		}
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("%w: %q in %s", ErrMissingParam, name, pattern)
		}
		used[name] = true

		last := i == len(segments)-1
		parts, err := valueSegments(name, value, last)
		if err != nil {
			return "", err
		}
		out = append(out, parts...)
	}

	for name := range params {
		if !used[name] {
			return "", fmt.Errorf("%w: %q in %s", ErrUnknownParam, name, pattern)
		}
	}
	return routepath.Join(out), nil
}

func valueSegments(name string, value any, last bool) ([]string, error) {
	switch v := value.(type) {
	case nil:
		if last {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %q is nil", ErrInvalidValue, name)
	case []string:
		if !last && len(v) != 1 {
			return nil, fmt.Errorf("%w: %q is a list in a non-final segment", ErrInvalidValue, name)
		}
		parts := make([]string, len(v))
		for i, s := range v {
			if s == "" {
				return nil, fmt.Errorf("%w: %q has an empty element", ErrInvalidValue, name)
			}
			parts[i] = routepath.EscapeSegment(s)
		}
		return parts, nil
	case string:
		if v == "" {
			return nil, fmt.Errorf("%w: %q is empty", ErrInvalidValue, name)
		}
		return []string{routepath.EscapeSegment(v)}, nil
	default:
		s := fmt.Sprint(v)
		if s == "" {
			return nil, fmt.Errorf("%w: %q is empty", ErrInvalidValue, name)
		}
		return []string{routepath.EscapeSegment(s)}, nil
	}
}

// ResolveEntry resolves a table entry using its parameter schema: a missing
// optional catch-all is absent, and a string bound to a catch-all is split
// on "/" the way Matcher joins it.
func ResolveEntry(entry *router.RouteEntry, params map[string]any) (string, error) {
	filled := make(map[string]any, len(params)+1)
	for k, v := range params {
		filled[k] = v
	}
	for _, p := range entry.Params {
		v, ok := filled[p.Name]
		switch {
		case !ok && p.Kind.Optional():
			filled[p.Name] = nil
		case ok && p.Kind != router.ParamString:
			if s, isString := v.(string); isString {
				filled[p.Name] = strings.Split(s, "/")
			}
		}
	}
	return Resolve(entry.Key(), filled)
}

// Resolve resolves the route's pattern with its parameters.
func (r Route) Resolve() (string, error) {
	return Resolve(r.Path, r.Params)
}
