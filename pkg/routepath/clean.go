package routepath

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrBackslash    = errors.New("routepath: backslash in path")
	ErrNullByte     = errors.New("routepath: null byte in path")
	ErrBadEscape    = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot  = errors.New("routepath: path escapes root")
	ErrEncodedSlash = errors.New("routepath: encoded slash in a single segment")
)

// Clean canonicalizes a concrete path before it is matched against a route
// table. Empty and "." segments are dropped, ".." pops the previous segment
// and the result has no trailing slash. Percent escapes are validated but
// left encoded so that segment boundaries survive. The query, if any, is
// returned separately without its "?".
func Clean(input string) (path, query string, err error) {
	path, query, _ = strings.Cut(input, "?")

	switch {
	case strings.ContainsRune(path, '\\'):
		return "", "", ErrBackslash
	case strings.ContainsRune(path, 0), strings.Contains(strings.ToUpper(path), "%00"):
		return "", "", ErrNullByte
	}
	if err := checkEscapes(path); err != nil {
		return "", "", err
	}

	var kept []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(kept) == 0 {
				return "", "", ErrEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}
	return Join(kept), query, nil
}

func checkEscapes(path string) error {
	for i := strings.IndexByte(path, '%'); i >= 0; {
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrBadEscape
		}
		next := strings.IndexByte(path[i+3:], '%')
		if next < 0 {
			return nil
		}
		i += 3 + next
	}
	return nil
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

// EscapeSegment percent-encodes a parameter value for use as one path segment.
func EscapeSegment(value string) string {
	return url.PathEscape(value)
}

// DecodeSegment unescapes one path segment. Unless multi is set, a value
// that decodes to contain "/" is rejected with ErrEncodedSlash.
func DecodeSegment(segment string, multi bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrBadEscape
	}
	if !multi && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlash
	}
	return decoded, nil
}
