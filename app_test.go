package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enaudit/floorsense/floorplan"
)

func TestInit_MissingConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(dir, "absent.yaml"),
		StoreDir:   filepath.Join(dir, "store"),
	})

	require.NoError(t, app.Init())
	assert.Equal(t, 128, app.Config.Detection.BinarizeThreshold)
	assert.NotNil(t, app.Learning)
	assert.NotNil(t, app.Orchestrator)
}

func TestInit_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
store:
  dir: ` + filepath.Join(dir, "store") + `
floors:
  - id: floor-1
    expectedRooms: 4
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	app := NewApp()
	app.ApplyOptions(AppOptions{ConfigFile: configPath})
	require.NoError(t, app.Init())

	floor := app.Config.FloorByID("floor-1")
	require.NotNil(t, floor)
	assert.Equal(t, 4, floor.ExpectedRooms)
}

func TestInit_BrokenConfigFails(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("floors: [unclosed"), 0644))

	app := NewApp()
	app.ApplyOptions(AppOptions{ConfigFile: configPath})
	assert.Error(t, app.Init())
}

func TestRunDetectFile_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.png")
	require.NoError(t, os.WriteFile(planPath, planPNG(t), 0644))

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   filepath.Join(dir, "absent.yaml"),
		StoreDir:     filepath.Join(dir, "store"),
		ImageFile:    planPath,
		FloorID:      "floor-1",
		TargetWidth:  1000,
		TargetHeight: 800,
		OutputFile:   filepath.Join(dir, "overlay.png"),
		VectorFile:   filepath.Join(dir, "rooms.svg"),
		Accept:       true,
	})
	require.NoError(t, app.Init())
	require.NoError(t, app.RunDetectFile())

	if _, err := os.Stat(app.OutputFile); err != nil {
		t.Errorf("overlay not written: %v", err)
	}
	if _, err := os.Stat(app.VectorFile); err != nil {
		t.Errorf("vector export not written: %v", err)
	}

	result, ok := app.Results.Get("floor-1")
	require.True(t, ok)
	assert.Len(t, result.Rooms, 2)

	// -accept records the detection when it clears the threshold.
	samples := app.Learning.Samples("floor-1")
	if result.ConfidenceScore >= app.Config.Detection.AcceptThreshold {
		assert.Len(t, samples, 1)
	} else {
		assert.Empty(t, samples)
	}
}

func TestRunDetectFile_MissingImage(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   filepath.Join(dir, "absent.yaml"),
		StoreDir:     filepath.Join(dir, "store"),
		ImageFile:    filepath.Join(dir, "missing.png"),
		FloorID:      "floor-1",
		TargetWidth:  1000,
		TargetHeight: 800,
	})
	require.NoError(t, app.Init())
	assert.Error(t, app.RunDetectFile())
}

func TestResultTracker(t *testing.T) {
	rt := newResultTracker()

	if _, ok := rt.Get("floor-1"); ok {
		t.Fatal("empty tracker returned a result")
	}

	rt.Update(floorplan.DetectionResult{FloorID: "floor-1", Source: floorplan.SourceContour})
	rt.Update(floorplan.DetectionResult{FloorID: "floor-1", Source: floorplan.SourceGrid})

	got, ok := rt.Get("floor-1")
	require.True(t, ok)
	assert.Equal(t, floorplan.SourceGrid, got.Source, "tracker must keep the latest result")
}
