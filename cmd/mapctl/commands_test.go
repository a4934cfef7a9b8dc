package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/agv-mapview/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"mapctl"}, args...))
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := testutil.WriteSiteMap(t)

	out, err := runApp(t, "inspect", path)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "json", report.Format)
	assert.False(t, report.CacheHit)
	assert.Equal(t, 4, report.Entities["parks"])
	assert.Equal(t, map[int]int{1: 3, 2: 4}, report.Floors)
	assert.NotZero(t, report.Templates)
}

func TestInspectUsesSnapshotDatabase(t *testing.T) {
	path := testutil.WriteSiteMap(t)
	db := filepath.Join(t.TempDir(), "snapshots.duckdb")

	for i, wantHit := range []bool{false, true} {
		out, err := runApp(t, "--snapshot-db", db, "inspect", path)
		require.NoError(t, err)
		var report inspectReport
		require.NoError(t, yaml.Unmarshal([]byte(out), &report))
		assert.Equal(t, wantHit, report.CacheHit, "run %d", i)
		assert.Equal(t, 4, report.Entities["parks"])
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, err := runApp(t, "inspect", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "reading map file")
}

func TestRender(t *testing.T) {
	path := testutil.WriteSiteMap(t)
	out := filepath.Join(t.TempDir(), "site.png")

	_, err := runApp(t, "render",
		"--out", out,
		"--width", "64",
		"--height", "48",
		"--select", "1",
		"--travel", "F;1,2,0;3,2,0;",
		path)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = runApp(t, "render", "--out", out, "--floor", "0", path)
	assert.Error(t, err)
}

func TestRenderRequiresOut(t *testing.T) {
	_, err := runApp(t, "render", testutil.WriteSiteMap(t))
	assert.Error(t, err)
}
