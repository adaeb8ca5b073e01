package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, root string, rel string, imports ...string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	src := "package x\n\nimport (\n"
	for _, imp := range imports {
		src += "\t_ \"" + imp + "\"\n"
	}
	src += ")\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
}

func TestReadModulePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module livepoll\n\ngo 1.24.0\n"), 0o600))

	modulePath, err := readModulePath(filepath.Join(dir, "go.mod"))
	require.NoError(t, err)
	assert.Equal(t, "livepoll", modulePath)

	_, err = readModulePath(filepath.Join(dir, "missing.mod"))
	require.Error(t, err)
}

func TestCollectViolations(t *testing.T) {
	root := t.TempDir()
	const svc = "livepoll/contexts/polling/tally"

	writeSource(t, root, "polling/tally/domain/errors/errors.go", "errors")
	writeSource(t, root, "polling/tally/ports/ports.go", "context", svc+"/domain/entities")
	writeSource(t, root, "polling/tally/application/commands/ok.go", "log/slog", svc+"/ports", svc+"/domain/errors")
	writeSource(t, root, "polling/tally/application/commands/bad.go",
		svc+"/adapters/memory",
		"livepoll/internal/platform/messaging",
		"github.com/redis/go-redis/v9",
	)
	writeSource(t, root, "polling/tally/domain/entities/bad.go", svc+"/ports")
	writeSource(t, root, "polling/tally/adapters/redis/store.go", "github.com/redis/go-redis/v9", svc+"/ports")
	writeSource(t, root, "polling/tally/module.go", "livepoll/contexts/other/service/ports")
	writeSource(t, root, "polling/tally/application/commands/bad_test.go", svc+"/adapters/memory")

	violations := collectViolations(root, "livepoll")

	rules := make([]string, 0, len(violations))
	for _, v := range violations {
		rules = append(rules, v.Rule)
	}
	assert.ElementsMatch(t, []string{
		"application must not import adapters",
		"application must not import runtime infrastructure",
		"application must not import third-party packages",
		"domain import is outside explicit allowlist",
		"cross-module imports are forbidden",
	}, rules)
}
