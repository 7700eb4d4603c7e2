package compress

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/hash/sha256"
)

// fakeRunner writes a fixed payload as the "compressed" output.
type fakeRunner struct {
	output []byte
	err    error
	calls  int
}

func (f *fakeRunner) Compress(_ context.Context, _, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, f.output, 0o600)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func writePDF(t *testing.T, dataDir, rel string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dataDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	return path
}

func newCompressStage(t *testing.T, dataDir string, runner Runner, minSavings float64) *Stage {
	t.Helper()
	return NewStage(runner, sha256.New(), fixedClock{now: time.Unix(1700000000, 0)}, Config{
		DataDir:           dataDir,
		SessionID:         "2025",
		MinSavingsPercent: minSavings,
		Workers:           2,
	}, nil)
}

func TestStage_CompressesWhenSavingsSufficient(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	original := bytes.Repeat([]byte("original pdf content "), 100)
	path := writePDF(t, dataDir, "legal-note-pdfs-2025/HB-1/note.pdf", original)

	runner := &fakeRunner{output: []byte("%PDF small")}
	stage := newCompressStage(t, dataDir, runner, 5)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.Compressed)
	assert.Equal(t, int64(len(original)-len(runner.output)), res.SavedBytes)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF small"), data, "original replaced in place")

	// Temp file must not linger.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// A crash between compressing and renaming leaves a temp file behind. Its
// suffix must keep it out of the PDF scan so a later run neither compresses
// nor indexes it.
func TestStage_IgnoresLeftoverTempFiles(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	original := bytes.Repeat([]byte("original pdf content "), 100)
	writePDF(t, dataDir, "legal-note-pdfs-2025/HB-7/note.pdf", original)
	leftover := filepath.Join(dataDir, "legal-note-pdfs-2025/HB-7/note.pdf.tmp")
	require.NoError(t, os.WriteFile(leftover, []byte("half-written"), 0o600))

	runner := &fakeRunner{output: []byte("%PDF small")}
	stage := newCompressStage(t, dataDir, runner, 5)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found, "leftover temp file is not a candidate")
	assert.Equal(t, 1, res.Compressed)
}

func TestStage_SkipsWhenSavingsMinimal(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	original := bytes.Repeat([]byte("x"), 1000)
	path := writePDF(t, dataDir, "fiscal-note-pdfs-2025/HB-2/note.pdf", original)

	// 980 bytes: 2% savings, below the 5% threshold.
	runner := &fakeRunner{output: bytes.Repeat([]byte("y"), 980)}
	stage := newCompressStage(t, dataDir, runner, 5)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Compressed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data, "original untouched")

	// Second run must not invoke ghostscript again for the same content.
	res, err = stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 1, runner.calls)
}

func TestStage_SkipsUnchangedHash(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	writePDF(t, dataDir, "amendment-pdfs-2025/HB-3/amend.pdf", bytes.Repeat([]byte("data"), 500))

	runner := &fakeRunner{output: []byte("%PDF tiny")}
	stage := newCompressStage(t, dataDir, runner, 5)

	_, err := stage.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, runner.calls)

	// The compressed file's hash is tracked, so a re-run is a no-op.
	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 1, runner.calls)
}

func TestStage_DryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	original := bytes.Repeat([]byte("pdf"), 400)
	path := writePDF(t, dataDir, "legal-note-pdfs-2025/SB-9/note.pdf", original)

	runner := &fakeRunner{output: []byte("small")}
	stage := NewStage(runner, sha256.New(), fixedClock{}, Config{
		DataDir:           dataDir,
		SessionID:         "2025",
		MinSavingsPercent: 5,
		Workers:           1,
		DryRun:            true,
	}, nil)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, runner.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)

	_, err = os.Stat(filepath.Join(dataDir, "compression-tracking-2025.json"))
	assert.True(t, os.IsNotExist(err), "dry run must not write tracking data")
}

func TestStage_CountsRunnerErrors(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	writePDF(t, dataDir, "legal-note-pdfs-2025/HB-5/bad.pdf", []byte("corrupt"))
	writePDF(t, dataDir, "legal-note-pdfs-2025/HB-6/good.pdf", bytes.Repeat([]byte("ok"), 500))

	runner := &fakeRunner{err: errors.New("gs exploded")}
	stage := newCompressStage(t, dataDir, runner, 5)

	res, err := stage.Run(context.Background())
	require.NoError(t, err, "per-file errors do not fail the stage")
	assert.Equal(t, 2, res.Errors)
	assert.Zero(t, res.Compressed)
}

func TestLoadTrackingMissingFile(t *testing.T) {
	t.Parallel()

	data, err := LoadTracking(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTrackingRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tracking.json")
	in := TrackingData{
		"legal-note-pdfs-2025/HB-1/note.pdf": {
			Hash:          "abc",
			OriginalSize:  100,
			LastProcessed: time.Unix(1700000000, 0).UTC(),
		},
	}
	require.NoError(t, SaveTracking(path, in))

	out, err := LoadTracking(path)
	require.NoError(t, err)
	assert.Equal(t, in["legal-note-pdfs-2025/HB-1/note.pdf"].Hash, out["legal-note-pdfs-2025/HB-1/note.pdf"].Hash)
}
