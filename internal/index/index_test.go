package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPDF(t *testing.T, dataDir, kindDir, billID, name string) {
	t.Helper()
	dir := filepath.Join(dataDir, kindDir, billID)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o600))
}

func TestStage_GeneratesAllArtifacts(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	seedPDF(t, dataDir, "amendment-pdfs-2025", "HB-123", "HB0123.2.1_20250310_final-print.pdf")
	seedPDF(t, dataDir, "amendment-pdfs-2025", "HB-2", "HB0002.3.1.A.15_20250311_final-print.pdf")
	seedPDF(t, dataDir, "fiscal-note-pdfs-2025", "HB-123", "HB0123-fiscal-note.pdf")
	seedPDF(t, dataDir, "legal-note-pdfs-2025", "SB-7", "SB0007-legal-note.pdf")
	// An interrupted compression run leaves this behind; it must not be indexed.
	seedPDF(t, dataDir, "legal-note-pdfs-2025", "SB-7", "SB0007-legal-note.pdf.tmp")

	stage := NewStage(Config{
		DataDir:   dataDir,
		SessionID: "2025",
		URLPrefix: "/capitol-tracker-2025",
	}, nil)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Bills)
	assert.Equal(t, 4, res.Documents)

	metadata := filepath.Join(dataDir, "metadata")

	raw, err := os.ReadFile(filepath.Join(metadata, "document-index.json"))
	require.NoError(t, err)
	var docIndex map[string]map[string][]Entry
	require.NoError(t, json.Unmarshal(raw, &docIndex))

	amendments := docIndex["amendments"]["HB-123"]
	require.Len(t, amendments, 1)
	assert.Equal(t, "HB-123.2.1.final-print", amendments[0].Name)
	assert.Equal(t, "/capitol-tracker-2025/amendments/HB-123/HB0123.2.1_20250310_final-print.pdf", amendments[0].URL)

	raw, err = os.ReadFile(filepath.Join(metadata, "bill-document-types.json"))
	require.NoError(t, err)
	var billKinds map[string][]string
	require.NoError(t, json.Unmarshal(raw, &billKinds))
	assert.ElementsMatch(t, []string{"amendments", "fiscal-notes"}, billKinds["HB-123"])
	assert.Equal(t, []string{"legal-notes"}, billKinds["SB-7"])
}

func TestStage_BillListsSortedNumerically(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	seedPDF(t, dataDir, "amendment-pdfs-2025", "HB-100", "HB0100.2.1_20250310_final-print.pdf")
	seedPDF(t, dataDir, "amendment-pdfs-2025", "HB-2", "HB0002.3.1.B.4_20250311_final-print.pdf")
	seedPDF(t, dataDir, "amendment-pdfs-2025", "SB-12", "SB0012.2.1_20250312_final-print.pdf")

	stage := NewStage(Config{DataDir: dataDir, SessionID: "2025", URLPrefix: "/p"}, nil)
	_, err := stage.Run(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dataDir, "metadata", "bills-with-amendments.txt"))
	require.NoError(t, err)
	assert.Equal(t, "HB 2\nHB 100\nSB 12", string(raw))
}

func TestStage_PerBillJSON(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	seedPDF(t, dataDir, "amendment-pdfs-2025", "HB-123", "HB0123.2.1_20250310_final-print.pdf")
	seedPDF(t, dataDir, "legal-note-pdfs-2025", "HB-123", "HB0123-legal-note.pdf")

	stage := NewStage(Config{DataDir: dataDir, SessionID: "2025", URLPrefix: "/p"}, nil)
	_, err := stage.Run(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dataDir, "metadata", "bills", "HB-123.json"))
	require.NoError(t, err)
	var info map[string][]Entry
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Contains(t, info, "amendments")
	assert.Contains(t, info, "legal-notes")
	assert.NotContains(t, info, "fiscal-notes")
}

func TestStage_EmptyTreeStillWritesArtifacts(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	stage := NewStage(Config{DataDir: dataDir, SessionID: "2025", URLPrefix: "/p"}, nil)

	res, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Bills)

	for _, name := range []string{
		"document-index.json",
		"bill-document-types.json",
		"bills-with-amendments.txt",
		"bills-with-fiscal-notes.txt",
		"bills-with-legal-notes.txt",
	} {
		_, err := os.Stat(filepath.Join(dataDir, "metadata", name))
		assert.NoError(t, err, name)
	}
}
