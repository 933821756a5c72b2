package sampler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/fishframes/internal/naming"
)

func TestFrameWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := &FrameWriter{Dir: dir}
	id := naming.NewFrameID("MC_s1_tr1", "0001_vid.mp4", 15, 0, 30)

	dup, err := w.Write(id, []byte("jpeg"))
	require.NoError(t, err)
	assert.False(t, dup)

	b, err := os.ReadFile(filepath.Join(dir, "MC_s1_tr1_0001_vid_15_0_00-00-00.00.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(b))

	// Without duplicate detection frames are overwritten.
	dup, err = w.Write(id, []byte("again"))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestFrameWriter_Duplicates(t *testing.T) {
	dir := t.TempDir()
	remoteID := naming.NewFrameID("MC", "0001_vid.mp4", 15, 0, 30)
	localID := naming.NewFrameID("MC", "0001_vid.mp4", 15, 27000, 30)
	newID := naming.NewFrameID("MC", "0001_vid.mp4", 15, 54000, 30)

	require.NoError(t, os.WriteFile(filepath.Join(dir, localID.Name()), []byte("old"), 0o644))
	w := &FrameWriter{Dir: dir, Dups: naming.NewDuplicateIndex([]string{remoteID.Name()})}

	dup, err := w.Write(remoteID, []byte("x"))
	require.NoError(t, err)
	assert.True(t, dup, "name present remotely")
	_, statErr := os.Stat(filepath.Join(dir, remoteID.Name()))
	assert.True(t, os.IsNotExist(statErr))

	dup, err = w.Write(localID, []byte("x"))
	require.NoError(t, err)
	assert.True(t, dup, "name present locally")
	b, _ := os.ReadFile(filepath.Join(dir, localID.Name()))
	assert.Equal(t, "old", string(b))

	dup, err = w.Write(newID, []byte("x"))
	require.NoError(t, err)
	assert.False(t, dup)
}
