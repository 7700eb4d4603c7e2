package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
)

// Sink writes downloaded documents into the session's data tree.
type Sink struct {
	root      string
	sessionID string
	logger    *zap.Logger
}

// NewSink returns a sink rooted at dataDir.
func NewSink(dataDir, sessionID string, logger *zap.Logger) (*Sink, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		root:      dataDir,
		sessionID: sessionID,
		logger:    logger,
	}, nil
}

// BillDir returns the on-disk folder for one bill's documents of a kind.
func (s *Sink) BillDir(kind legislature.DocumentKind, bill legislature.Bill) string {
	return filepath.Join(s.root, kind.Dir(s.sessionID), bill.Key())
}

// WriteBillsList persists the raw bills-list JSON.
func (s *Sink) WriteBillsList(data []byte) (string, error) {
	dir := filepath.Join(s.root, "bills-list")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create bills-list dir: %w", err)
	}
	target := filepath.Join(dir, fmt.Sprintf("list-bills-%s.json", s.sessionID))
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("write bills list %s: %w", target, err)
	}
	return target, nil
}

// ListBillFiles returns the non-hidden file names in a bill folder.
func (s *Sink) ListBillFiles(kind legislature.DocumentKind, bill legislature.Bill) ([]string, error) {
	entries, err := os.ReadDir(s.BillDir(kind, bill))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bill dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ClearBillDir removes every file in a bill folder. Missing folders are fine.
func (s *Sink) ClearBillDir(kind legislature.DocumentKind, bill legislature.Bill) error {
	dir := s.BillDir(kind, bill)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read bill dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("remove stale file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// WriteDocument writes one PDF into the bill folder.
func (s *Sink) WriteDocument(kind legislature.DocumentKind, bill legislature.Bill, fileName string, data []byte) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("file name is required")
	}
	dir := s.BillDir(kind, bill)
	target := filepath.Join(dir, fileName)

	// Reject names that would escape the bill folder.
	cleanDir := filepath.Clean(dir)
	cleanTarget := filepath.Clean(target)
	if !strings.HasPrefix(cleanTarget, cleanDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected in %q", fileName)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create bill dir %s: %w", dir, err)
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("write document %s: %w", target, err)
	}
	return target, nil
}
