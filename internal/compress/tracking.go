package compress

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TrackingEntry records the state of one PDF after a compression decision.
type TrackingEntry struct {
	Hash             string    `json:"hash"`
	OriginalSize     int64     `json:"original_size,omitempty"`
	CompressedSize   int64     `json:"compressed_size,omitempty"`
	CompressionRatio float64   `json:"compression_ratio,omitempty"`
	Skipped          bool      `json:"skipped,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	LastProcessed    time.Time `json:"last_processed"`
}

// TrackingData maps PDF paths (relative to the data dir) to their entries.
type TrackingData map[string]TrackingEntry

// LoadTracking reads the tracking file; a missing file yields an empty map.
func LoadTracking(path string) (TrackingData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return TrackingData{}, nil
		}
		return nil, fmt.Errorf("read tracking file %s: %w", path, err)
	}
	var data TrackingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse tracking file %s: %w", path, err)
	}
	if data == nil {
		data = TrackingData{}
	}
	return data, nil
}

// SaveTracking writes the tracking file atomically via a temp file rename.
func SaveTracking(path string, data TrackingData) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking data: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write tracking temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace tracking file: %w", err)
	}
	return nil
}
