package router

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrNotFound is returned when the project root or routes root is missing.
	ErrNotFound = errors.New("project root not found")

	// ErrUnsupportedConvention is returned for an unknown project type.
	ErrUnsupportedConvention = errors.New("unsupported project type")

	// ErrNormalization matches every error produced by Normalize.
	ErrNormalization = errors.New("route normalization failed")

	ErrDuplicateParam    = errors.New("duplicate route parameter")
	ErrMisplacedCatchAll = errors.New("catch-all segment is not last")
	ErrInvalidSegment    = errors.New("invalid route segment")
	ErrParamMismatch     = errors.New("declared parameters do not match path")

	// ErrConflictingRoute is returned when two sources yield the same pattern.
	ErrConflictingRoute = errors.New("conflicting route")
)

// ValidationErrorType categorizes route errors.
type ValidationErrorType string

const (
	// ErrorDuplicateParam indicates one parameter name bound at two depths.
	// Example: user/[id]/posts/[id]/page.tsx
	ErrorDuplicateParam ValidationErrorType = "DUPLICATE_PARAM"

	// ErrorMisplacedCatchAll indicates a catch-all followed by more segments.
	// Example: app/[...slug]/edit/page.tsx
	ErrorMisplacedCatchAll ValidationErrorType = "MISPLACED_CATCH_ALL"

	// ErrorInvalidSegment indicates malformed bracket syntax or a literal "$".
	ErrorInvalidSegment ValidationErrorType = "INVALID_SEGMENT"

	// ErrorParamMismatch indicates declared paramNames that disagree with the path.
	ErrorParamMismatch ValidationErrorType = "PARAM_MISMATCH"

	// ErrorConflictingRoute indicates two sources resolving to the same pattern.
	// Example: user/[id]/page.tsx and (alias)/user/[id]/page.tsx
	ErrorConflictingRoute ValidationErrorType = "CONFLICTING_ROUTE"
)

// ValidationError describes one normalization or conflict failure.
type ValidationError struct {
	// Type is the error category
	Type ValidationErrorType

	// Message is the human-readable error message
	Message string

	// Files are the source locations involved
	Files []string

	// Path is the canonical pattern involved, when known
	Path string

	// Details contains additional error-specific information
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the sentinels matching the error type.
func (e *ValidationError) Unwrap() []error {
	switch e.Type {
	case ErrorDuplicateParam:
		return []error{ErrNormalization, ErrDuplicateParam}
	case ErrorMisplacedCatchAll:
		return []error{ErrNormalization, ErrMisplacedCatchAll}
	case ErrorInvalidSegment:
		return []error{ErrNormalization, ErrInvalidSegment}
	case ErrorParamMismatch:
		return []error{ErrNormalization, ErrParamMismatch}
	case ErrorConflictingRoute:
		return []error{ErrConflictingRoute}
	}
	return nil
}

// MultiValidationError wraps multiple validation errors.
type MultiValidationError struct {
	Errors []*ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes every contained error to errors.Is and errors.As.
func (e *MultiValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Files returns every source location named by the contained errors,
// in first-seen order.
func (e *MultiValidationError) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, err := range e.Errors {
		for _, f := range err.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

// FormatValidationError formats a validation error for display:
//
//	ERROR: /user/$id is declared twice
//	  app/(alias)/user/[id]/page.tsx → /user/$id
//	  app/user/[id]/page.tsx → /user/$id
func FormatValidationError(err *ValidationError) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ERROR: %s\n", err.Message)
	for _, file := range err.Files {
		if err.Path != "" {
			fmt.Fprintf(&sb, "  %s → %s\n", file, err.Path)
		} else {
			fmt.Fprintf(&sb, "  %s\n", file)
		}
	}
	if err.Details != "" {
		fmt.Fprintf(&sb, "  Details: %s\n", err.Details)
	}

	return sb.String()
}
