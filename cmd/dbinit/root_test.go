package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDBInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.db")

	out, err := execute(t, "", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized")

	out, err = execute(t, "", "--path", path, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "contact_submissions")
	assert.Contains(t, out, "expired_submissions")
	assert.Contains(t, out, "Contact submissions: 0")
}

func TestDBInit_Quiet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.db")
	out, err := execute(t, "", "--path", path, "-q")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDBInit_ResetNeedsConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.db")

	_, err := execute(t, "n\n", "--path", path, "--reset")
	require.ErrorIs(t, err, errAborted)

	out, err := execute(t, "y\n", "--path", path, "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Database reset")

	out, err = execute(t, "", "--path", path, "--reset", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, out, "Continue?")
}

func TestDBInit_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("CONTACT_DB_PATH", path)

	out, err := execute(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, path)
}
