package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlan = `
name: shop
steps:
  - to: created
  - to: items
    migration: 001-items
  - to: seeded
    migration: 002-seed
`

type fixture struct {
	plan       string
	migrations string
	config     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o700))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	write(filepath.Join(migrations, "001-items.sql"), "CREATE TABLE items (name TEXT NOT NULL)")
	write(filepath.Join(migrations, "002-seed.sql"), "INSERT INTO items (name) VALUES ('seed')")
	write(filepath.Join(dir, "plan.yaml"), testPlan)
	write(filepath.Join(dir, "uow.toml"), "[database]\ndriver = \"sqlite\"\nurl = \""+
		filepath.ToSlash(filepath.Join(dir, "uow.db"))+"\"\n")

	return fixture{
		plan:       filepath.Join(dir, "plan.yaml"),
		migrations: migrations,
		config:     filepath.Join(dir, "uow.toml"),
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, logs bytes.Buffer

	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&logs)

	err := root.ExecuteContext(t.Context())

	return out.String(), err
}

func TestShow(t *testing.T) {
	t.Setenv("UOW_NO_BANNER", "true")

	f := newFixture(t)

	out, err := execute(t, "show", f.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "plan shop\n")
	assert.Contains(t, out, "(empty) -> created\n")
	assert.Contains(t, out, "created -> items [001-items]\n")
	assert.Contains(t, out, "final:   seeded\n")
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "validate", "--migrations", f.migrations, f.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "(empty) -> created -> items -> seeded")

	require.NoError(t, os.Remove(filepath.Join(f.migrations, "002-seed.sql")))

	_, err = execute(t, "validate", "--migrations", f.migrations, f.plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002-seed")
}

func TestVisualize(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "visualize", "--highlight", "--direction", "LR", f.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2")
	assert.Contains(t, out, "direction LR")
	assert.Contains(t, out, "highlighted")
}

func TestRun(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "run", "--yes", "--config", f.config, "--migrations", f.migrations, f.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "plan shop: (empty) -> created -> items -> seeded")
	assert.Contains(t, out, "applied 001-items (created -> items)")
	assert.Contains(t, out, "plan shop reached seeded with 2 migrations")

	out, err = execute(t, "run", "--yes", "--config", f.config, "--migrations", f.migrations, f.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "plan shop is up to date at seeded")
}

func TestRun_RequiresMigrations(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, "run", "--yes", f.plan)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "uowctl ")

	buildInfo = `{"version": "v1.2.3", "git_commit": "abc", "dependencies": {"github.com/lib/pq": "v1.10.9"}}`

	t.Cleanup(func() { buildInfo = "" })

	out, err = execute(t, "version", "--deps")
	require.NoError(t, err)
	assert.Contains(t, out, "uowctl v1.2.3\n")
	assert.Contains(t, out, "commit abc")
	assert.Contains(t, out, "  github.com/lib/pq v1.10.9\n")
}
