// Package fetch implements the document download stage.
package fetch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/metrics"
)

// Client is the slice of the legislature API the stage consumes.
type Client interface {
	Bills(ctx context.Context, sessionID string) ([]legislature.Bill, []byte, error)
	Documents(
		ctx context.Context,
		kind legislature.DocumentKind,
		legislatureOrdinal, sessionOrdinal int,
		bill legislature.Bill,
	) ([]legislature.Document, error)
	ShortPDFURL(ctx context.Context, documentID int64) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Config controls Stage behavior.
type Config struct {
	SessionID          string
	LegislatureOrdinal int
	SessionOrdinal     int
	Concurrency        int
	Kinds              []legislature.DocumentKind
}

// Result summarizes one fetch run.
type Result struct {
	Bills      int   `json:"bills"`
	Downloaded int   `json:"downloaded"`
	Skipped    int   `json:"skipped"`
	Removed    int   `json:"removed"`
	Errors     int   `json:"errors"`
	Bytes      int64 `json:"bytes"`
}

// Stage downloads bill documents with a bounded worker pool.
type Stage struct {
	client Client
	sink   *Sink
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	result   Result
	firstErr error
}

type task struct {
	bill legislature.Bill
	kind legislature.DocumentKind
}

// NewStage constructs a Stage.
func NewStage(client Client, sink *Sink, cfg Config, logger *zap.Logger) *Stage {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = legislature.Kinds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		client: client,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}
}

// Name implements pipeline stage naming.
func (s *Stage) Name() string { return "fetch" }

// Run downloads the bills list and every mirrored document category.
// Per-bill failures are counted and surfaced as a single stage error at the
// end; they do not stop the remaining bills.
func (s *Stage) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	s.result = Result{}
	s.firstErr = nil
	s.mu.Unlock()

	bills, raw, err := s.client.Bills(ctx, s.cfg.SessionID)
	if err != nil {
		return Result{}, err
	}
	listPath, err := s.sink.WriteBillsList(raw)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("bills list saved",
		zap.String("path", listPath),
		zap.Int("bills", len(bills)),
	)

	tasks := make(chan task)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				if ctx.Err() != nil {
					continue
				}
				if err := s.processTask(ctx, t); err != nil {
					s.recordError(t, err)
				}
			}
		}()
	}

	for _, bill := range bills {
		for _, kind := range s.cfg.Kinds {
			tasks <- task{bill: bill, kind: kind}
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return s.snapshot(len(bills)), fmt.Errorf("fetch canceled: %w", err)
	}

	result := s.snapshot(len(bills))
	if result.Errors > 0 {
		return result, fmt.Errorf("fetch completed with %d errors (first: %w)", result.Errors, s.firstErr)
	}
	return result, nil
}

func (s *Stage) processTask(ctx context.Context, t task) error {
	docs, err := s.client.Documents(ctx, t.kind, s.cfg.LegislatureOrdinal, s.cfg.SessionOrdinal, t.bill)
	if err != nil {
		return err
	}
	if t.kind == legislature.KindAmendments {
		return s.fetchAmendments(ctx, t.bill, docs)
	}
	return s.fetchLatestNote(ctx, t.kind, t.bill, docs)
}

// fetchLatestNote keeps exactly one file per bill: the newest note. Older
// files are removed before the replacement lands, and the folder is cleared
// when the API no longer reports a note.
func (s *Stage) fetchLatestNote(
	ctx context.Context,
	kind legislature.DocumentKind,
	bill legislature.Bill,
	docs []legislature.Document,
) error {
	existing, err := s.sink.ListBillFiles(kind, bill)
	if err != nil {
		return err
	}

	latest := latestDocument(docs)
	if latest == nil {
		if len(existing) > 0 {
			if err := s.sink.ClearBillDir(kind, bill); err != nil {
				return err
			}
			s.addRemoved(len(existing))
		}
		return nil
	}

	for _, name := range existing {
		if name == latest.FileName {
			s.addSkipped(kind)
			return nil
		}
	}

	data, err := s.resolveAndDownload(ctx, latest.ID)
	if err != nil {
		return err
	}
	if err := s.sink.ClearBillDir(kind, bill); err != nil {
		return err
	}
	if _, err := s.sink.WriteDocument(kind, bill, latest.FileName, data); err != nil {
		return err
	}
	s.addDownloaded(kind, len(data))
	return nil
}

// fetchAmendments keeps every version already on disk and only downloads
// amendments whose base filename has never been seen for the bill.
func (s *Stage) fetchAmendments(ctx context.Context, bill legislature.Bill, docs []legislature.Document) error {
	existing, err := s.sink.ListBillFiles(legislature.KindAmendments, bill)
	if err != nil {
		return err
	}
	existingBases := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingBases[baseFilename(name)] = struct{}{}
	}

	var firstErr error
	for _, doc := range dedupeAmendments(docs) {
		if _, ok := existingBases[baseFilename(doc.FileName)]; ok {
			s.addSkipped(legislature.KindAmendments)
			continue
		}
		data, err := s.resolveAndDownload(ctx, doc.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := s.sink.WriteDocument(legislature.KindAmendments, bill, doc.FileName, data); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.addDownloaded(legislature.KindAmendments, len(data))
	}
	return firstErr
}

func (s *Stage) resolveAndDownload(ctx context.Context, documentID int64) ([]byte, error) {
	pdfURL, err := s.client.ShortPDFURL(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.client.Download(ctx, pdfURL)
}

func (s *Stage) recordError(t task, err error) {
	metrics.ObserveFetchError(string(t.kind))
	s.logger.Warn("bill fetch failed",
		zap.String("bill", t.bill.Key()),
		zap.String("category", string(t.kind)),
		zap.Error(err),
	)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Errors++
	if s.firstErr == nil {
		s.firstErr = err
	}
}

func (s *Stage) addDownloaded(kind legislature.DocumentKind, bytes int) {
	metrics.ObserveDocumentFetched(string(kind), bytes)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Downloaded++
	s.result.Bytes += int64(bytes)
}

func (s *Stage) addSkipped(kind legislature.DocumentKind) {
	metrics.ObserveDocumentSkipped(string(kind))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Skipped++
}

func (s *Stage) addRemoved(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Removed += n
}

func (s *Stage) snapshot(bills int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.result
	res.Bills = bills
	return res
}
