package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sql")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExec_RunsFilesInOneDatabase(t *testing.T) {
	schema := writeScript(t, "CREATE TABLE t (a INT);\nINSERT INTO t VALUES (2), (1);\n")
	query := writeScript(t, "-- ordered\nSELECT * FROM t ORDER BY a;\n")

	out, err := runCLI(t, "", "exec", schema, query)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE OK (0 affected;")
	assert.Contains(t, out, "INSERT OK (2 affected;")
	assert.Contains(t, out, "a\n-\n1\n2\n(2 rows;")
}

func TestExec_ReportsFailuresAndContinues(t *testing.T) {
	out, err := runCLI(t, "CREATE TABLE t (a INT);\nSELECT * FROM u;\nINSERT INTO t VALUES (1);\n", "exec", "-")
	require.ErrorContains(t, err, "1 statement(s) failed")
	assert.Contains(t, out, `error[UnknownRelation]: relation "u" does not exist`)
	assert.Contains(t, out, "INSERT OK (1 affected;")
}

func TestExec_CommandFlag(t *testing.T) {
	out, err := runCLI(t, "", "--memory-blocks", "3", "exec", "-c", "CREATE TABLE t (a INT); SELECT * FROM t;")
	require.NoError(t, err)
	assert.Contains(t, out, "a\n-\n(0 rows;")
}

func TestExec_RejectsTinyMemory(t *testing.T) {
	_, err := runCLI(t, "", "--memory-blocks", "1", "exec", "-c", "SELECT * FROM t;")
	require.ErrorContains(t, err, "memory.blocks must be >= 2")
}

func TestExec_NeedsInput(t *testing.T) {
	_, err := runCLI(t, "", "exec")
	require.ErrorContains(t, err, "no script given")
}
