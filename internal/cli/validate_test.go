package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateText(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "2 scenes")
	assert.Contains(t, out, "15 frames")
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/demo.yaml")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.InDelta(t, 15, data["frame_count"], 0)
}

func TestValidateVerboseListsTasks(t *testing.T) {
	_, errOut, err := execute(t, "--verbose", "validate", "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, errOut, "registered tasks:")
	assert.Contains(t, errOut, "move")
	assert.Contains(t, errOut, "await-signal")
}

func TestValidateBrokenStoryboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frame_rate: 0\nscenes: []\n"), 0o644))

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "CONFIGURATION")
}

func TestValidateMissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", "testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRenderSeek(t *testing.T) {
	out, _, err := execute(t, "render", "--seek", "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "rendered 15 frames")
	assert.Contains(t, out, "self-paced")
}

func TestRenderReportsWindowSize(t *testing.T) {
	out, _, err := execute(t, "render", "--seek", "--pos", "5", "--count", "3", "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "rendered 3 frames")
}

func TestRenderTeleportRequiresAgent(t *testing.T) {
	_, _, err := execute(t, "render", "--seek", "--teleport", "testdata/demo.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--teleport requires --agent")
}

func TestRenderOutOfScopeWindow(t *testing.T) {
	out, _, err := execute(t, "render", "--seek", "--pos", "99", "testdata/demo.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "OUT_OF_SCOPE")
}

func TestTeleportPrintsSnapshot(t *testing.T) {
	out, _, err := execute(t, "teleport", "testdata/demo.yaml")
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	meta, ok := snap["meta"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 30, meta["frame_rate"], 0)
	assert.InDelta(t, 15, meta["frame_count"], 0)
}

func TestTeleportSaveAndArchiveList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "archive.db")

	out, _, err := execute(t, "teleport", "--db", db, "testdata/demo.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "saved snapshot")

	out, _, err = execute(t, "archive", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "15 frames @ 30 fps")
}

func TestArchiveShowUnknownID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "archive.db")
	out, _, err := execute(t, "archive", "show", "--db", db, "missing-id")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "NOT_FOUND")
}
