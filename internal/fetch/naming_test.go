package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
)

func TestBaseFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"HB0002.001.001_x_final-a.pdf", "HB0002.001.001_x_final-a.pdf"},
		{"HB0002.001.001_x_final-a(1).pdf", "HB0002.001.001_x_final-a.pdf"},
		{"HB0002.001.001_x_final-a(12).pdf", "HB0002.001.001_x_final-a.pdf"},
		{"plain.pdf", "plain.pdf"},
		{"no-extension", "no-extension"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, baseFilename(tc.in), tc.in)
	}
}

func TestLatestDocument(t *testing.T) {
	t.Parallel()

	assert.Nil(t, latestDocument(nil))

	docs := []legislature.Document{
		{ID: 10, FileName: "a.pdf"},
		{ID: 30, FileName: "c.pdf"},
		{ID: 20, FileName: "b.pdf"},
	}
	latest := latestDocument(docs)
	require.NotNil(t, latest)
	assert.Equal(t, int64(30), latest.ID)
}

func TestDedupeAmendments(t *testing.T) {
	t.Parallel()

	t.Run("PrefersCleanName", func(t *testing.T) {
		docs := []legislature.Document{
			{ID: 5, FileName: "amend.pdf"},
			{ID: 9, FileName: "amend(1).pdf"},
		}
		primaries := dedupeAmendments(docs)
		require.Len(t, primaries, 1)
		assert.Equal(t, "amend.pdf", primaries[0].FileName)
	})

	t.Run("FallsBackToHighestID", func(t *testing.T) {
		docs := []legislature.Document{
			{ID: 5, FileName: "amend(1).pdf"},
			{ID: 9, FileName: "amend(2).pdf"},
		}
		primaries := dedupeAmendments(docs)
		require.Len(t, primaries, 1)
		assert.Equal(t, int64(9), primaries[0].ID)
	})

	t.Run("KeepsDistinctBases", func(t *testing.T) {
		docs := []legislature.Document{
			{ID: 1, FileName: "first.pdf"},
			{ID: 2, FileName: "second.pdf"},
			{ID: 3, FileName: "second(1).pdf"},
		}
		primaries := dedupeAmendments(docs)
		require.Len(t, primaries, 2)
		assert.Equal(t, "first.pdf", primaries[0].FileName)
		assert.Equal(t, "second.pdf", primaries[1].FileName)
	})
}
