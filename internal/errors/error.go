package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

// Category groups codes by the stage that raised them.
type Category string

const (
	CategoryScan       Category = "scan"
	CategoryValidation Category = "validation"
	CategoryEmit       Category = "emit"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// Location is a position in a project file. Line and Column are 1-based;
// zero means unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location in the file:line:col form editors accept.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ParseLocation parses "file", "file:line" or "file:line:column".
func ParseLocation(s string) *Location {
	if s == "" {
		return nil
	}
	loc := &Location{File: s}
	parts := strings.Split(s, ":")
	n := len(parts)
	if n >= 3 {
		line, lerr := strconv.Atoi(parts[n-2])
		col, cerr := strconv.Atoi(parts[n-1])
		if lerr == nil && cerr == nil {
			loc.File = strings.Join(parts[:n-2], ":")
			loc.Line, loc.Column = line, col
			return loc
		}
	}
	if n >= 2 {
		if line, err := strconv.Atoi(parts[n-1]); err == nil {
			loc.File = strings.Join(parts[:n-1], ":")
			loc.Line = line
		}
	}
	return loc
}

// contextRadius is how many lines around a location are shown.
const contextRadius = 2

// Error is a structured error with a code, source locations and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "E110").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the primary source location, if any.
	Location *Location

	// Context holds source lines around Location, starting at line
	// ContextStart.
	Context      []string
	ContextStart int

	// Sources lists every source location involved.
	Sources []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds source location to the error.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	if line > 0 {
		e.ContextStart, e.Context = sourceWindow(file, line, contextRadius)
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithSources records the source locations involved.
func (e *Error) WithSources(sources ...string) *Error {
	e.Sources = append(e.Sources, sources...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// ResolveContext reads the context lines of a line-bearing location
// relative to root.
func (e *Error) ResolveContext(root string) *Error {
	if e.Location == nil || e.Location.Line == 0 || len(e.Context) > 0 {
		return e
	}
	file := e.Location.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, filepath.FromSlash(file))
	}
	e.ContextStart, e.Context = sourceWindow(file, e.Location.Line, contextRadius)
	return e
}

// sourceWindow returns up to radius lines on either side of line, and the
// number of the first line returned.
func sourceWindow(path string, line, radius int) (int, []string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	first := max(1, line-radius)
	var lines []string
	sc := bufio.NewScanner(f)
	for n := 1; n <= line+radius && sc.Scan(); n++ {
		if n >= first {
			lines = append(lines, sc.Text())
		}
	}
	return first, lines
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error with the given code.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// Classify maps an error from the generation engine to its coded Error.
// Validation failures carry every offending source location.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var code string
	switch {
	case stderrors.Is(err, router.ErrNotFound):
		code = "E100"
	case stderrors.Is(err, router.ErrUnsupportedConvention):
		code = "E101"
	case stderrors.Is(err, router.ErrInvalidMode):
		code = "E102"
	case stderrors.Is(err, router.ErrNormalization):
		code = "E110"
	case stderrors.Is(err, router.ErrConflictingRoute):
		code = "E111"
	case stderrors.Is(err, pipeline.ErrWriteFailure):
		code = "E120"
	default:
		return Newf(CategoryCLI, "%s", err.Error()).Wrap(err)
	}

	out := New(code).Wrap(err)
	seen := make(map[string]bool)
	for _, verr := range validationErrors(err) {
		for _, f := range verr.Files {
			if !seen[f] {
				seen[f] = true
				out.Sources = append(out.Sources, f)
			}
		}
	}
	if len(out.Sources) > 0 {
		out.Detail = describeValidation(err)
		out.Location = ParseLocation(out.Sources[0])
	} else {
		out.Detail = err.Error()
	}
	return out
}

func validationErrors(err error) []*router.ValidationError {
	var multi *router.MultiValidationError
	if stderrors.As(err, &multi) {
		return multi.Errors
	}
	var verr *router.ValidationError
	if stderrors.As(err, &verr) {
		return []*router.ValidationError{verr}
	}
	return nil
}

func describeValidation(err error) string {
	errs := validationErrors(err)
	msgs := make([]string, 0, len(errs))
	for _, verr := range errs {
		msg := verr.Message
		if verr.Details != "" {
			msg += " (" + verr.Details + ")"
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
