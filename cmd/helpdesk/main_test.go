package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Helpdesk dev")
}

func TestSequenceNext_MemoryStore(t *testing.T) {
	cfg := writeConfig(t, "sequence:\n  store: memory\n")

	out, err := run(t, "--config", cfg, "sequence", "next")
	require.NoError(t, err)
	assert.Equal(t, "ticketId 1 TKT-000001\n", out)

	_, err = run(t, "--config", cfg, "migrate")
	assert.Error(t, err)
}

func TestSequenceCommands_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "helpdesk.db")
	dsn := "file:" + dbPath + "?_busy_timeout=5000"
	probe, err := database.Open(context.Background(), "sqlite", dsn, database.PoolOptions{})
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	probe.Close()

	cfg := writeConfig(t, `
database:
  driver: sqlite
  dsn: "`+dsn+`"
sequence:
  store: sql
ticket:
  id_prefix: REQ
  id_width: 4
`)

	out, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")

	for _, want := range []string{"ticketId 1 REQ-0001\n", "ticketId 2 REQ-0002\n"} {
		out, err = run(t, "--config", cfg, "sequence", "next")
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
	out, err = run(t, "--config", cfg, "sequence", "next", "invoiceId")
	require.NoError(t, err)
	assert.Equal(t, "invoiceId 1 REQ-0001\n", out)

	out, err = run(t, "--config", cfg, "sequence", "show", "-o", "yaml")
	require.NoError(t, err)
	var view counterView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, counterView{Sequence: "ticketId", Store: "sql", Current: 2, Display: "REQ-0002"}, view)

	out, err = run(t, "--config", cfg, "sequence", "show", "unused")
	require.NoError(t, err)
	assert.Equal(t, "unused\t0\t\n", out)

	_, err = run(t, "--config", cfg, "sequence", "show", "-o", "xml")
	assert.Error(t, err)
}
