package router

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		tokens      []string
		wantKey     string
		wantParams  []Param
		wantNesting []string
	}{
		{name: "root", tokens: nil, wantKey: "/"},
		{name: "static", tokens: []string{"dashboard"}, wantKey: "/dashboard"},
		{
			name:        "dynamic",
			tokens:      []string{"user", "[id]"},
			wantKey:     "/user/$id",
			wantParams:  []Param{{Name: "id", Kind: ParamString}},
			wantNesting: []string{"user"},
		},
		{
			name:    "nested dynamic",
			tokens:  []string{"user", "[id]", "posts", "[postId]"},
			wantKey: "/user/$id/posts/$postId",
			wantParams: []Param{
				{Name: "id", Kind: ParamString},
				{Name: "postId", Kind: ParamString},
			},
			wantNesting: []string{"user", "posts"},
		},
		{
			name:        "catch-all",
			tokens:      []string{"docs", "[...slug]"},
			wantKey:     "/docs/$slug",
			wantParams:  []Param{{Name: "slug", Kind: ParamStringSlice}},
			wantNesting: []string{"docs"},
		},
		{
			name:        "optional catch-all",
			tokens:      []string{"shop", "[[...slug]]"},
			wantKey:     "/shop/$slug",
			wantParams:  []Param{{Name: "slug", Kind: ParamOptionalStringSlice}},
			wantNesting: []string{"shop"},
		},
		{
			name:        "route group removed",
			tokens:      []string{"(marketing)", "about"},
			wantKey:     "/about",
			wantNesting: []string{"(marketing)"},
		},
		{
			name:        "group between segments",
			tokens:      []string{"user", "(auth)", "settings"},
			wantKey:     "/user/settings",
			wantNesting: []string{"user", "(auth)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := Normalize(RouteNode{Source: "app/x/page.tsx", Tokens: tt.tokens, Leaf: true})
			if err != nil {
				t.Fatalf("Normalize(%v) error: %v", tt.tokens, err)
			}
			if got := entry.Key(); got != tt.wantKey {
				t.Errorf("Key() = %q, want %q", got, tt.wantKey)
			}
			if !reflect.DeepEqual(entry.Params, tt.wantParams) {
				t.Errorf("Params = %v, want %v", entry.Params, tt.wantParams)
			}
			if !reflect.DeepEqual(entry.Nesting, tt.wantNesting) {
				t.Errorf("Nesting = %v, want %v", entry.Nesting, tt.wantNesting)
			}
		})
	}
}

func TestNormalizeStructuralNode(t *testing.T) {
	entry, err := Normalize(RouteNode{Source: "app/layout.tsx", Tokens: nil})
	if err != nil || entry != nil {
		t.Errorf("Normalize(structural) = %v, %v; want nil, nil", entry, err)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name     string
		node     RouteNode
		wantErr  error
		wantType ValidationErrorType
	}{
		{
			name:     "duplicate param",
			node:     RouteNode{Tokens: []string{"[id]", "posts", "[id]"}, Leaf: true},
			wantErr:  ErrDuplicateParam,
			wantType: ErrorDuplicateParam,
		},
		{
			name:     "catch-all not last",
			node:     RouteNode{Tokens: []string{"[...slug]", "edit"}, Leaf: true},
			wantErr:  ErrMisplacedCatchAll,
			wantType: ErrorMisplacedCatchAll,
		},
		{
			name:     "optional catch-all not last",
			node:     RouteNode{Tokens: []string{"[[...slug]]", "[id]"}, Leaf: true},
			wantErr:  ErrMisplacedCatchAll,
			wantType: ErrorMisplacedCatchAll,
		},
		{
			name:     "unclosed bracket",
			node:     RouteNode{Tokens: []string{"[id"}, Leaf: true},
			wantErr:  ErrInvalidSegment,
			wantType: ErrorInvalidSegment,
		},
		{
			name:     "stray bracket",
			node:     RouteNode{Tokens: []string{"foo]"}, Leaf: true},
			wantErr:  ErrInvalidSegment,
			wantType: ErrorInvalidSegment,
		},
		{
			name:     "empty param name",
			node:     RouteNode{Tokens: []string{"[]"}, Leaf: true},
			wantErr:  ErrInvalidSegment,
			wantType: ErrorInvalidSegment,
		},
		{
			name:     "literal marker",
			node:     RouteNode{Tokens: []string{"$price"}, Leaf: true},
			wantErr:  ErrInvalidSegment,
			wantType: ErrorInvalidSegment,
		},
		{
			name:     "declared names disagree",
			node:     RouteNode{Tokens: []string{"user", "[id]"}, Leaf: true, DeclaredParams: []string{"userId"}},
			wantErr:  ErrParamMismatch,
			wantType: ErrorParamMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.node.Source = "app/bad/page.tsx"
			_, err := Normalize(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrNormalization) {
				t.Errorf("error %v does not match ErrNormalization", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not a *ValidationError", err)
			}
			if verr.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", verr.Type, tt.wantType)
			}
			if len(verr.Files) != 1 || verr.Files[0] != "app/bad/page.tsx" {
				t.Errorf("Files = %v", verr.Files)
			}
		})
	}
}

func TestNormalizeDeclaredParamsMatch(t *testing.T) {
	entry, err := Normalize(RouteNode{
		Source:         "saferoute.routes.yaml:3",
		Tokens:         []string{"user", "[id]", "[...rest]"},
		Leaf:           true,
		DeclaredParams: []string{"rest", "id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Key() != "/user/$id/$rest" {
		t.Errorf("Key() = %q", entry.Key())
	}
}
