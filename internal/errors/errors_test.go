package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "scan error",
			code:    "E100",
			wantMsg: "Routes not found",
			wantCat: CategoryScan,
		},
		{
			name:    "validation error",
			code:    "E111",
			wantMsg: "Conflicting routes",
			wantCat: CategoryValidation,
		},
		{
			name:    "config error",
			code:    "E130",
			wantMsg: "Invalid configuration",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	err := New("E110")
	want := "E110: Route normalization failed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := Newf(CategoryCLI, "flag %q missing", "--out")
	if err2.Error() != `flag "--out" missing` {
		t.Errorf("Error() = %q", err2.Error())
	}
}

func TestError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "routes.tsx")
	content := `import { Route } from "react-router";

export const routes = [
  { path: "/user/:id/:id" },
];
`
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E110").WithLocation(tmpFile, 4, 3)
	if err.Location == nil || err.Location.Line != 4 || err.Location.Column != 3 {
		t.Fatalf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestError_Wrap(t *testing.T) {
	inner := New("E120")
	outer := New("E110").Wrap(inner)
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E130") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	coded := New("E131")
	if FromError(fmt.Errorf("init: %w", coded), "E130") != coded {
		t.Error("FromError should return a wrapped Error as-is")
	}

	stdErr := stderrors.New("boom")
	if result := FromError(stdErr, "E130"); result.Wrapped != stdErr || result.Code != "E130" {
		t.Errorf("FromError = %+v", result)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"app/user/[id]/page.tsx", Location{File: "app/user/[id]/page.tsx"}},
		{"src/routes.tsx:12", Location{File: "src/routes.tsx", Line: 12}},
		{"src/routes.tsx:12:7", Location{File: "src/routes.tsx", Line: 12, Column: 7}},
		{`C:\app\routes.tsx:3`, Location{File: `C:\app\routes.tsx`, Line: 3}},
	}
	for _, tt := range tests {
		got := ParseLocation(tt.in)
		if got == nil || *got != tt.want {
			t.Errorf("ParseLocation(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if ParseLocation("") != nil {
		t.Error("ParseLocation(\"\") should be nil")
	}
}

func TestClassify(t *testing.T) {
	conflict := &router.ValidationError{
		Type:    router.ErrorConflictingRoute,
		Message: "/user/$id is declared twice",
		Files:   []string{"app/(alias)/user/[id]/page.tsx", "app/user/[id]/page.tsx"},
		Path:    "/user/$id",
	}
	misplaced := &router.ValidationError{
		Type:    router.ErrorMisplacedCatchAll,
		Message: "catch-all segment must be last",
		Files:   []string{"app/[...slug]/edit/page.tsx"},
	}

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantSources []string
	}{
		{"not found", fmt.Errorf("%w: /missing", router.ErrNotFound), "E100", nil},
		{"unsupported", fmt.Errorf("%w: vue", router.ErrUnsupportedConvention), "E101", nil},
		{"mode", router.ErrInvalidMode, "E102", nil},
		{"single", misplaced, "E110", []string{"app/[...slug]/edit/page.tsx"}},
		{
			name:     "multi reports normalization first",
			err:      &router.MultiValidationError{Errors: []*router.ValidationError{conflict, misplaced}},
			wantCode: "E110",
			wantSources: []string{
				"app/(alias)/user/[id]/page.tsx",
				"app/user/[id]/page.tsx",
				"app/[...slug]/edit/page.tsx",
			},
		},
		{"write", fmt.Errorf("%w: disk full", pipeline.ErrWriteFailure), "E120", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if strings.Join(got.Sources, "|") != strings.Join(tt.wantSources, "|") {
				t.Errorf("Sources = %v, want %v", got.Sources, tt.wantSources)
			}
			if !stderrors.Is(got, tt.err) {
				t.Error("Classify must keep the original error in the chain")
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	plain := Classify(stderrors.New("boom"))
	if plain.Code != "" || plain.Message != "boom" {
		t.Errorf("Classify(plain) = %+v", plain)
	}
}

func TestResolveContext(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "routes.tsx"), []byte("a\nb\nc\nd\ne\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E110")
	err.Location = ParseLocation("src/routes.tsx:3")
	err.ResolveContext(root)
	if strings.Join(err.Context, "") != "abcde" {
		t.Errorf("Context = %v", err.Context)
	}

	err = New("E110")
	err.Location = ParseLocation("src/routes.tsx:1")
	err.ResolveContext(root)
	if err.ContextStart != 1 || strings.Join(err.Context, "") != "abc" {
		t.Errorf("window at line 1 = %d %v", err.ContextStart, err.Context)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E111").WithSources("app/(g)/a/page.tsx", "app/a/page.tsx")
	err.Location = ParseLocation("app/(g)/a/page.tsx")

	formatted := err.Format()
	for _, want := range []string{
		"ERROR E111: Conflicting routes",
		"app/(g)/a/page.tsx",
		"→ app/a/page.tsx",
		"Hint:",
		"Learn more: https://saferoute.dev/docs/errors/E111",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E110").WithLocation("src/routes.tsx", 10, 5)
	want := "src/routes.tsx:10:5: E110: Route normalization failed"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E111").WithSources("a.tsx", "b.tsx")
	json := err.FormatJSON()

	for _, want := range []string{
		`"code":"E111"`,
		`"category":"validation"`,
		`"sources":["a.tsx","b.tsx"]`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("JSON missing %s: %s", want, json)
		}
	}
}

func TestRegistry(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}

	Register("E999", ErrorTemplate{Category: CategoryCLI, Message: "Custom test error"})
	defer delete(registry, "E999")
	if New("E999").Message != "Custom test error" {
		t.Error("registered template not used")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("wrapped: %w", New("E120")))
	if !strings.Contains(buf.String(), "ERROR E120: Artifact write failed") {
		t.Errorf("coded error not formatted: %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, stderrors.New("plain failure"))
	if got := buf.String(); got != "\nERROR: plain failure\n\n" {
		t.Errorf("Fprint(plain) = %q", got)
	}
}
