package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		billID   string
		fileName string
		want     string
	}{
		{
			name:     "standard amendment",
			billID:   "HB-123",
			fileName: "HB0123.2.1_20250310_final-print.pdf",
			want:     "HB-123.2.1.final-print",
		},
		{
			name:     "duplicate suffix preserved",
			billID:   "SB-55",
			fileName: "SB0055.3.2_20250401_final-print(2).pdf",
			want:     "SB-55.3.2.final-print(2)",
		},
		{
			name:     "hb2 section letter mapped",
			billID:   "HB-2",
			fileName: "HB0002.3.1.A.15_20250311_final-print.pdf",
			want:     "HB-2.3.1.A.15.general-government.final-print",
		},
		{
			name:     "hb2 global amendment",
			billID:   "HB-2",
			fileName: "HB0002.4.2.O.3_20250320_final-draft.pdf",
			want:     "HB-2.4.2.O.3.global-amendment.final-draft",
		},
		{
			name:     "hb2 unknown letter kept as-is",
			billID:   "HB-2",
			fileName: "HB0002.1.1.Z.2_20250101_final-print.pdf",
			want:     "HB-2.1.1.Z.2.Z.final-print",
		},
		{
			name:     "unrecognized file keeps basename",
			billID:   "HB-9",
			fileName: "fiscal-note-revised.pdf",
			want:     "fiscal-note-revised",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, displayName(tt.billID, tt.fileName))
		})
	}
}
