// Package index builds the document index artifacts consumed by the
// tracker frontend.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
)

// Entry describes one document in the index.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Config controls index generation.
type Config struct {
	DataDir   string
	SessionID string
	// URLPrefix is prepended to every document URL, e.g. "/capitol-tracker-2025".
	URLPrefix string
}

// Result summarizes one index run.
type Result struct {
	Bills     int `json:"bills"`
	Documents int `json:"documents"`
}

// Stage scans the downloaded PDFs and writes the metadata artifacts:
// document-index.json, bill-document-types.json, one bills-with-<kind>.txt
// per kind, and a per-bill JSON under metadata/bills/.
type Stage struct {
	cfg    Config
	logger *zap.Logger
}

// NewStage constructs a Stage.
func NewStage(cfg Config, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{cfg: cfg, logger: logger}
}

// Name implements pipeline stage naming.
func (s *Stage) Name() string { return "index" }

// Run regenerates every index artifact from the files on disk.
func (s *Stage) Run(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	docIndex := map[legislature.DocumentKind]map[string][]Entry{}
	billKinds := map[string][]string{}
	billLists := map[legislature.DocumentKind][]string{}

	documents := 0
	for _, kind := range legislature.Kinds() {
		perBill, err := s.scanKind(kind)
		if err != nil {
			return Result{}, err
		}
		docIndex[kind] = perBill
		for billID, entries := range perBill {
			documents += len(entries)
			billKinds[billID] = append(billKinds[billID], string(kind))
			billLists[kind] = append(billLists[kind], strings.ReplaceAll(billID, "-", " "))
		}
	}
	for _, kinds := range billKinds {
		sort.Strings(kinds)
	}

	metadataDir := filepath.Join(s.cfg.DataDir, "metadata")
	billsDir := filepath.Join(metadataDir, "bills")
	if err := os.MkdirAll(billsDir, 0o750); err != nil {
		return Result{}, fmt.Errorf("create metadata dir: %w", err)
	}

	if err := writeJSON(filepath.Join(metadataDir, "document-index.json"), docIndex); err != nil {
		return Result{}, err
	}
	if err := writeJSON(filepath.Join(metadataDir, "bill-document-types.json"), billKinds); err != nil {
		return Result{}, err
	}
	for _, kind := range legislature.Kinds() {
		bills := billLists[kind]
		sortBills(bills)
		path := filepath.Join(metadataDir, fmt.Sprintf("bills-with-%s.txt", kind))
		if err := os.WriteFile(path, []byte(strings.Join(bills, "\n")), 0o600); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := s.writeBillFiles(billsDir, docIndex); err != nil {
		return Result{}, err
	}

	result := Result{Bills: len(billKinds), Documents: documents}
	s.logger.Info("index generated",
		zap.Int("bills", result.Bills),
		zap.Int("documents", result.Documents),
	)
	return result, nil
}

// scanKind collects index entries for every bill folder of one document kind.
// A missing kind directory is not an error; it just contributes no bills.
func (s *Stage) scanKind(kind legislature.DocumentKind) (map[string][]Entry, error) {
	perBill := map[string][]Entry{}
	dir := filepath.Join(s.cfg.DataDir, kind.Dir(s.cfg.SessionID))
	billDirs, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return perBill, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	for _, billDir := range billDirs {
		if !billDir.IsDir() {
			continue
		}
		billID := billDir.Name()
		files, err := os.ReadDir(filepath.Join(dir, billID))
		if err != nil {
			return nil, fmt.Errorf("scan %s/%s: %w", dir, billID, err)
		}
		var entries []Entry
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".pdf") {
				continue
			}
			entries = append(entries, Entry{
				Name: displayName(billID, f.Name()),
				URL:  fmt.Sprintf("%s/%s/%s/%s", s.cfg.URLPrefix, kind, billID, f.Name()),
			})
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
		perBill[billID] = entries
	}
	return perBill, nil
}

// writeBillFiles emits one JSON per bill containing its documents grouped
// by kind.
func (s *Stage) writeBillFiles(billsDir string, docIndex map[legislature.DocumentKind]map[string][]Entry) error {
	billIDs := map[string]struct{}{}
	for _, perBill := range docIndex {
		for billID := range perBill {
			billIDs[billID] = struct{}{}
		}
	}
	for billID := range billIDs {
		info := map[legislature.DocumentKind][]Entry{}
		for kind, perBill := range docIndex {
			if entries, ok := perBill[billID]; ok {
				info[kind] = entries
			}
		}
		if err := writeJSON(filepath.Join(billsDir, billID+".json"), info); err != nil {
			return err
		}
	}
	return nil
}

// sortBills orders bill names like "HB 2" by type then number.
func sortBills(bills []string) {
	sort.Slice(bills, func(i, j int) bool {
		ti, ni := splitBill(bills[i])
		tj, nj := splitBill(bills[j])
		if ti != tj {
			return ti < tj
		}
		return ni < nj
	})
}

func splitBill(bill string) (string, int) {
	parts := strings.SplitN(bill, " ", 2)
	if len(parts) != 2 {
		return bill, 0
	}
	n, _ := strconv.Atoi(parts[1])
	return parts[0], n
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
