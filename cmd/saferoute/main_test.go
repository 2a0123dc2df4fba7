package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/internal/dev"
	"github.com/saferoute-dev/saferoute/internal/errors"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writePages(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("export default function Page() {}\n"), 0o644))
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestInitNonInteractive(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "init", "--non-interactive", "-r", root, "-t", "next-app", "-o", "src/routes.gen.ts", "-m", "flat")
	require.NoError(t, err)
	assert.Contains(t, out, "Output: src/routes.gen.ts")

	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "next-app", cfg.Type)
	assert.Equal(t, "src/routes.gen.ts", cfg.Out)
	assert.Equal(t, "flat", cfg.Mode)

	_, err = execute(t, "init", "--non-interactive", "-r", root)
	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded), "error = %v", err)
	assert.Equal(t, "E131", coded.Code)

	_, err = execute(t, "init", "--non-interactive", "--force", "-r", root, "-t", "react")
	require.NoError(t, err)
}

func TestInitRejectsUnknownType(t *testing.T) {
	_, err := execute(t, "init", "--non-interactive", "-r", t.TempDir(), "-t", "gatsby")
	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded), "error = %v", err)
	assert.Equal(t, "E101", coded.Code)
}

func TestGenerateOneShot(t *testing.T) {
	root := t.TempDir()
	writePages(t, root, "app/page.tsx", "app/user/[id]/page.tsx")
	out := filepath.Join(root, "routes.d.ts")

	_, err := execute(t, "generate", "-r", root, "-t", "next-app", "-o", out, "-m", "flat")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{ path: "/user/$id"; params: { id: string } }`)
}

func TestGenerateConflictIsCoded(t *testing.T) {
	root := t.TempDir()
	writePages(t, root, "app/one/page.tsx", "app/(g)/one/page.tsx")

	_, err := execute(t, "generate", "-r", root, "-t", "next-app", "-o", filepath.Join(root, "routes.d.ts"))
	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded), "error = %v", err)
	assert.Equal(t, "E111", coded.Code)
	assert.Len(t, coded.Sources, 2)
}

func TestListJSON(t *testing.T) {
	root := t.TempDir()
	writePages(t, root, "pages/index.tsx", "pages/blog/[slug].tsx", "pages/docs/[...path].tsx")

	out, err := execute(t, "list", "-r", root, "-t", "next-page", "--json")
	require.NoError(t, err)

	var routes []dev.RouteInfo
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	patterns := make([]string, len(routes))
	for i, r := range routes {
		patterns[i] = r.Pattern
	}
	assert.ElementsMatch(t, []string{"/", "/blog/$slug", "/docs/$path"}, patterns)
}

func TestListTable(t *testing.T) {
	root := t.TempDir()
	writePages(t, root, "app/page.tsx", "app/user/[id]/page.tsx")

	out, err := execute(t, "list", "-r", root, "-t", "next-app")
	require.NoError(t, err)
	assert.Contains(t, out, "PATTERN")
	assert.Contains(t, out, "id: string")
	assert.True(t, strings.HasSuffix(out, "2 routes\n"), "output = %q", out)
}

func TestListMatch(t *testing.T) {
	root := t.TempDir()
	writePages(t, root, "app/blog/[slug]/page.tsx")

	out, err := execute(t, "list", "-r", root, "-t", "next-app", "--match", "/blog/hello-world")
	require.NoError(t, err)
	assert.Contains(t, out, "/blog/$slug")
	assert.Contains(t, out, `slug = "hello-world"`)

	_, err = execute(t, "list", "-r", root, "-t", "next-app", "--match", "/nope")
	assert.ErrorIs(t, err, errNoMatch)
	assert.NotErrorIs(t, err, router.ErrNotFound)
}

func TestGenerateWatchFailsFastWithoutRoutes(t *testing.T) {
	exists := t.TempDir()
	for name, root := range map[string]string{
		"missing root":        filepath.Join(t.TempDir(), "does-not-exist"),
		"missing routes root": exists,
	} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{"generate", "-w", "-t", "next-app", "-r", root})
			err := cmd.ExecuteContext(ctx)

			require.NoError(t, ctx.Err(), "watch must not run until the deadline")
			var coded *errors.Error
			require.True(t, stderrors.As(err, &coded), "error = %v", err)
			assert.Equal(t, "E100", coded.Code)
		})
	}
}
