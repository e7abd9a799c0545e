package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/morph"
	"github.com/san-kum/morphcloud/internal/shape"
)

func sampleFrames() []FrameRecord {
	return []FrameRecord{
		{Frame: 0, Time: 0, Shape: "sphere", Mode: "pointer", Convergence: 40, Spread: 30},
		{Frame: 1, Time: 0.5, Shape: "sphere", Mode: "pointer", Active: true, Attracting: true, Attracted: 12, Intensity: 1, Convergence: 20, Spread: 26},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta := RunMetadata{
		Shape:     "sphere",
		Seed:      42,
		Particles: 100,
		Frames:    2,
		Metrics:   map[string]float64{"convergence": 20},
	}
	runID, err := st.Save(meta, sampleFrames())
	require.NoError(t, err)
	assert.Contains(t, runID, "sphere_")

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, loaded.ID)
	assert.Equal(t, int64(42), loaded.Seed)
	assert.Equal(t, 20.0, loaded.Metrics["convergence"])
	assert.False(t, loaded.Timestamp.IsZero())

	frames, err := st.LoadFrames(runID)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, sampleFrames()[1], frames[1])
}

func TestStoreSaveNoFrames(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Shape: "heart"}, nil)
	require.NoError(t, err)

	frames, err := st.LoadFrames(runID)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestStoreListSorted(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := st.Save(RunMetadata{ID: "late", Timestamp: base.Add(time.Hour)}, nil)
	require.NoError(t, err)
	_, err = st.Save(RunMetadata{ID: "early", Timestamp: base}, nil)
	require.NoError(t, err)

	// stray entries are skipped
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "junk"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "early", runs[0].ID)
	assert.Equal(t, "late", runs[1].ID)
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadFrames("ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Shape: "flower"}, sampleFrames())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, runID))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "flower", data.Run.Shape)
	assert.Len(t, data.Frames, 2)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(2)
	pos := []float32{3, 4, 0, 0, 0, 0}
	tgt := []float32{3, 4, 0, 0, 0, 2}

	for i := uint64(0); i < 5; i++ {
		r.OnFrame(&engine.Frame{
			Index:       i,
			Time:        float64(i) / 10,
			Positions:   pos,
			Targets:     tgt,
			Shape:       shape.Saturn,
			Interaction: interact.State{Mode: interact.Hand, Active: true},
			Stats:       morph.StepStats{Repelled: 1},
			Intensity:   0.35,
		})
	}

	frames := r.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, []uint64{0, 2, 4}, []uint64{frames[0].Frame, frames[1].Frame, frames[2].Frame})

	f := frames[1]
	assert.Equal(t, "saturn", f.Shape)
	assert.Equal(t, "hand", f.Mode)
	assert.True(t, f.Active)
	assert.Equal(t, 1, f.Repelled)
	assert.InDelta(t, 1.0, f.Convergence, 1e-9)
	assert.InDelta(t, 2.5, f.Spread, 1e-9)

	r.Reset()
	assert.Empty(t, r.Frames())
}

func TestColumn(t *testing.T) {
	values, times, err := Column(sampleFrames(), "attracted")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 12}, values)
	assert.Equal(t, []float64{0, 0.5}, times)

	_, _, err = Column(sampleFrames(), "energy")
	assert.Error(t, err)
}
