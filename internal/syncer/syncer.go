// Package syncer mirrors the local data directory into an object store,
// uploading only what changed and pruning what disappeared.
package syncer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/cdn"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/metrics"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/storage"
)

// DeployEvent is published after a sync that changed the bucket.
type DeployEvent struct {
	RunID      string    `json:"run_id,omitempty"`
	Prefix     string    `json:"prefix"`
	Uploaded   int       `json:"uploaded"`
	Deleted    int       `json:"deleted"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher announces completed deployments.
type Publisher interface {
	Publish(ctx context.Context, event DeployEvent) error
}

// Config controls the deploy stage.
type Config struct {
	DataDir string
	// RemotePrefix is prepended to every object key, e.g. "capitol-tracker".
	RemotePrefix string
	// DefaultContentType is used for files with no recognized extension.
	DefaultContentType string
	MaxConcurrent      int
	DryRun             bool
}

// Result summarizes one deploy run.
type Result struct {
	Uploaded      int   `json:"uploaded"`
	Deleted       int   `json:"deleted"`
	Skipped       int   `json:"skipped"`
	Errors        int   `json:"errors"`
	BytesUploaded int64 `json:"bytes_uploaded"`
	Invalidated   bool  `json:"invalidated"`
}

// localFile is one file eligible for upload.
type localFile struct {
	key     string
	path    string
	size    int64
	modTime time.Time
}

// Plan lists the operations a sync run would perform.
type Plan struct {
	Uploads []Upload
	Deletes []string
	Skipped int
}

// Upload is one pending object write.
type Upload struct {
	Key         string
	Path        string
	Size        int64
	ContentType string
}

// Stage implements the deploy pipeline stage.
type Stage struct {
	store       storage.ObjectStore
	invalidator cdn.Invalidator
	publisher   Publisher
	cfg         Config
	logger      *zap.Logger
}

// NewStage constructs a Stage. invalidator and publisher may be nil.
func NewStage(store storage.ObjectStore, invalidator cdn.Invalidator, publisher Publisher, cfg Config, logger *zap.Logger) *Stage {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 20
	}
	if cfg.DefaultContentType == "" {
		cfg.DefaultContentType = "application/pdf"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		store:       store,
		invalidator: invalidator,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// Name implements pipeline stage naming.
func (s *Stage) Name() string { return "deploy" }

// Run diffs the local tree against the bucket, applies the plan, and on
// change invalidates the CDN path and publishes a deploy event. A run with
// nothing to do performs no writes at all, so re-running a clean tree is a
// no-op.
func (s *Stage) Run(ctx context.Context) (Result, error) {
	plan, err := s.BuildPlan(ctx)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("sync plan",
		zap.Int("uploads", len(plan.Uploads)),
		zap.Int("deletes", len(plan.Deletes)),
		zap.Int("skipped", plan.Skipped),
		zap.Bool("dry_run", s.cfg.DryRun),
	)

	result := Result{Skipped: plan.Skipped}
	if s.cfg.DryRun {
		return result, nil
	}

	errs := s.apply(ctx, plan, &result)
	if len(errs) > 0 {
		result.Errors = len(errs)
		return result, fmt.Errorf("deploy completed with %d errors (first: %w)", len(errs), errs[0])
	}

	if result.Uploaded+result.Deleted == 0 {
		return result, nil
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, "/"+s.cfg.RemotePrefix+"/*"); err != nil {
			return result, fmt.Errorf("cdn invalidation: %w", err)
		}
		metrics.ObserveCDNInvalidation()
		result.Invalidated = true
	}
	if s.publisher != nil {
		event := DeployEvent{
			Prefix:     s.cfg.RemotePrefix,
			Uploaded:   result.Uploaded,
			Deleted:    result.Deleted,
			FinishedAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			return result, fmt.Errorf("publish deploy event: %w", err)
		}
	}
	return result, nil
}

// BuildPlan compares the local tree with the bucket listing. A file is
// uploaded when the remote object is missing, differs in size, or is older
// than the local file. Remote objects with no local counterpart are deleted.
func (s *Stage) BuildPlan(ctx context.Context) (Plan, error) {
	locals, err := s.snapshot()
	if err != nil {
		return Plan{}, err
	}

	remoteObjects, err := s.store.List(ctx, s.cfg.RemotePrefix+"/")
	if err != nil {
		return Plan{}, fmt.Errorf("list remote objects: %w", err)
	}
	remote := make(map[string]storage.ObjectInfo, len(remoteObjects))
	for _, obj := range remoteObjects {
		remote[obj.Key] = obj
	}

	var plan Plan
	for _, local := range locals {
		obj, exists := remote[local.key]
		delete(remote, local.key)
		if exists && obj.Size == local.size && !local.modTime.After(obj.Updated) {
			plan.Skipped++
			continue
		}
		plan.Uploads = append(plan.Uploads, Upload{
			Key:         local.key,
			Path:        local.path,
			Size:        local.size,
			ContentType: s.contentTypeFor(local.path),
		})
	}
	for key := range remote {
		plan.Deletes = append(plan.Deletes, key)
	}
	sort.Strings(plan.Deletes)
	return plan, nil
}

// snapshot walks the data directory. Dotfiles and local bookkeeping files
// stay out of the bucket.
func (s *Stage) snapshot() ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(s.cfg.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.cfg.DataDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") || strings.HasPrefix(name, "compression-tracking-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.cfg.DataDir, path)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			key:     s.cfg.RemotePrefix + "/" + filepath.ToSlash(rel),
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data directory %s does not exist; run fetch first", s.cfg.DataDir)
		}
		return nil, fmt.Errorf("scan %s: %w", s.cfg.DataDir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

// apply executes the plan with a bounded worker pool.
func (s *Stage) apply(ctx context.Context, plan Plan, result *Result) []error {
	type op struct {
		upload *Upload
		delete string
	}
	ops := make(chan op)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	for i := 0; i < s.cfg.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range ops {
				if ctx.Err() != nil {
					continue
				}
				if o.upload != nil {
					if err := s.uploadFile(ctx, *o.upload); err != nil {
						record(fmt.Errorf("upload %s: %w", o.upload.Key, err))
						continue
					}
					metrics.ObserveSyncAction("upload", o.upload.Size)
					mu.Lock()
					result.Uploaded++
					result.BytesUploaded += o.upload.Size
					mu.Unlock()
					continue
				}
				if err := s.store.Delete(ctx, o.delete); err != nil {
					record(fmt.Errorf("delete %s: %w", o.delete, err))
					continue
				}
				metrics.ObserveSyncAction("delete", 0)
				mu.Lock()
				result.Deleted++
				mu.Unlock()
			}
		}()
	}
	for i := range plan.Uploads {
		ops <- op{upload: &plan.Uploads[i]}
	}
	for _, key := range plan.Deletes {
		ops <- op{delete: key}
	}
	close(ops)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		record(err)
	}
	return errs
}

func (s *Stage) uploadFile(ctx context.Context, u Upload) error {
	f, err := os.Open(u.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.store.Upload(ctx, u.Key, u.ContentType, f)
}

func (s *Stage) contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return s.cfg.DefaultContentType
	}
}
