// Package routepath holds the path syntax shared by the route emitter, the
// pattern matcher and the navigation helper.
//
// Canonical patterns are slash-separated and write every dynamic or
// catch-all segment as a placeholder: the marker "$" followed by the
// parameter name.
//
//	/user/$id/posts/$postId
//	/docs/$slug
package routepath

import "strings"

// Marker prefixes a parameter name inside a canonical pattern.
const Marker = "$"

// Placeholder returns the placeholder segment for a parameter name.
func Placeholder(name string) string {
	return Marker + name
}

// ParsePlaceholder reports whether segment is a placeholder and returns the
// parameter name it refers to.
func ParsePlaceholder(segment string) (string, bool) {
	if !strings.HasPrefix(segment, Marker) {
		return "", false
	}
	name := segment[len(Marker):]
	if !IsIdentifier(name) {
		return "", false
	}
	return name, true
}

// IsIdentifier reports whether name is usable as a parameter name:
// a letter or underscore followed by letters, digits or underscores.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Split splits a path into its non-empty segments.
func Split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Join builds an absolute path from segments. No segments yields "/".
func Join(segments []string) string {
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}
