// Package compress implements the ghostscript PDF compression stage.
package compress

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/metrics"
)

// Hasher computes content digests for change detection.
type Hasher interface {
	HashFile(path string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Config controls Stage behavior.
type Config struct {
	DataDir   string
	SessionID string
	// TrackingFile defaults to <DataDir>/compression-tracking-<session>.json.
	TrackingFile      string
	MinSavingsPercent float64
	Workers           int
	DryRun            bool
}

// Result summarizes one compression run.
type Result struct {
	Found      int   `json:"found"`
	Compressed int   `json:"compressed"`
	Unchanged  int   `json:"unchanged"`
	Skipped    int   `json:"skipped"`
	Errors     int   `json:"errors"`
	SavedBytes int64 `json:"saved_bytes"`
}

// Stage compresses session PDFs in place, tracking content hashes so
// already-compressed files are not reprocessed.
type Stage struct {
	runner Runner
	hasher Hasher
	clock  Clock
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	result   Result
	tracking TrackingData
}

// NewStage constructs a Stage.
func NewStage(runner Runner, hasher Hasher, clock Clock, cfg Config, logger *zap.Logger) *Stage {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.TrackingFile == "" {
		cfg.TrackingFile = filepath.Join(cfg.DataDir, fmt.Sprintf("compression-tracking-%s.json", cfg.SessionID))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		runner: runner,
		hasher: hasher,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Name implements pipeline stage naming.
func (s *Stage) Name() string { return "compress" }

// Run compresses every PDF in the session's document directories.
// Per-file failures are counted but do not abort the stage; the originals
// stay in place when compression fails or saves too little.
func (s *Stage) Run(ctx context.Context) (Result, error) {
	tracking, err := LoadTracking(s.cfg.TrackingFile)
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	s.result = Result{}
	s.tracking = tracking
	s.mu.Unlock()

	files, err := s.findPDFs()
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("compression scan complete",
		zap.Int("pdfs", len(files)),
		zap.Bool("dry_run", s.cfg.DryRun),
	)

	paths := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if ctx.Err() != nil {
					continue
				}
				s.processFile(ctx, path)
			}
		}()
	}
	for _, path := range files {
		paths <- path
	}
	close(paths)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return s.snapshot(len(files)), fmt.Errorf("compress canceled: %w", err)
	}

	if !s.cfg.DryRun {
		s.mu.Lock()
		saveErr := SaveTracking(s.cfg.TrackingFile, s.tracking)
		s.mu.Unlock()
		if saveErr != nil {
			return s.snapshot(len(files)), saveErr
		}
	}

	result := s.snapshot(len(files))
	s.logger.Info("compression finished",
		zap.Int("compressed", result.Compressed),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Int64("saved_bytes", result.SavedBytes),
	)
	return result, nil
}

// findPDFs walks the session's document directories for PDF files.
func (s *Stage) findPDFs() ([]string, error) {
	var files []string
	for _, kind := range legislature.Kinds() {
		dir := filepath.Join(s.cfg.DataDir, kind.Dir(s.cfg.SessionID))
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}
	return files, nil
}

func (s *Stage) processFile(ctx context.Context, path string) {
	key := s.trackingKey(path)

	hash, err := s.hasher.HashFile(path)
	if err != nil {
		s.recordError(path, err)
		return
	}
	if entry, ok := s.lookup(key); ok && entry.Hash == hash {
		s.addUnchanged()
		return
	}

	if s.cfg.DryRun {
		s.logger.Info("dry run: would compress", zap.String("path", path))
		s.addSkipped()
		return
	}

	// The .tmp suffix keeps crash leftovers out of the index scan and the
	// bucket sync, both of which ignore *.tmp.
	tmp := path + ".tmp"
	if err := s.runner.Compress(ctx, path, tmp); err != nil {
		_ = os.Remove(tmp)
		s.recordError(path, err)
		return
	}

	origInfo, err := os.Stat(path)
	if err != nil {
		_ = os.Remove(tmp)
		s.recordError(path, err)
		return
	}
	compInfo, err := os.Stat(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		s.recordError(path, err)
		return
	}

	threshold := 1 - s.cfg.MinSavingsPercent/100
	if float64(compInfo.Size()) < float64(origInfo.Size())*threshold {
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			s.recordError(path, err)
			return
		}
		newHash, err := s.hasher.HashFile(path)
		if err != nil {
			s.recordError(path, err)
			return
		}
		s.store(key, TrackingEntry{
			Hash:             newHash,
			OriginalSize:     origInfo.Size(),
			CompressedSize:   compInfo.Size(),
			CompressionRatio: float64(compInfo.Size()) / float64(origInfo.Size()),
			LastProcessed:    s.clock.Now(),
		})
		s.addCompressed(origInfo.Size() - compInfo.Size())
		s.logger.Debug("compressed",
			zap.String("path", path),
			zap.Int64("saved_bytes", origInfo.Size()-compInfo.Size()),
		)
		return
	}

	// Not worth keeping; remember the hash so we don't try again.
	_ = os.Remove(tmp)
	s.store(key, TrackingEntry{
		Hash:          hash,
		Skipped:       true,
		Reason:        "minimal_savings",
		LastProcessed: s.clock.Now(),
	})
	s.addSkipped()
}

// trackingKey stores paths relative to the data dir so the tracking file is
// stable across checkouts.
func (s *Stage) trackingKey(path string) string {
	rel, err := filepath.Rel(s.cfg.DataDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (s *Stage) lookup(key string) (TrackingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tracking[key]
	return entry, ok
}

func (s *Stage) store(key string, entry TrackingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking[key] = entry
}

func (s *Stage) recordError(path string, err error) {
	metrics.ObserveCompression("error", 0)
	s.logger.Warn("compression failed", zap.String("path", path), zap.Error(err))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Errors++
}

func (s *Stage) addCompressed(saved int64) {
	metrics.ObserveCompression("compressed", saved)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Compressed++
	s.result.SavedBytes += saved
}

func (s *Stage) addUnchanged() {
	metrics.ObserveCompression("unchanged", 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Unchanged++
}

func (s *Stage) addSkipped() {
	metrics.ObserveCompression("skipped", 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Skipped++
}

func (s *Stage) snapshot(found int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.result
	res.Found = found
	return res
}
