// Package sync mirrors one directory tree onto another. Either side may be
// a local directory or a bucket prefix. The destination ends up holding
// every source key: missing keys are copied, keys whose source is newer
// are overwritten, and keys absent from the source are deleted.
package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/bucketsync/pkg/dispatch"
	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/output"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/transfer"
)

// Options tune a single Sync call
type Options struct {
	// Concurrency bounds the number of simultaneous transfers; at least 1
	Concurrency int
	// PreserveTimestamps keeps source mtimes on top of the orchestrator setting
	PreserveTimestamps bool
	// DryRun computes the plan without touching either side
	DryRun bool
	// Exclude holds patterns of keys ignored on both sides
	Exclude []string
	// Formatter receives progress and the final report; nil means none
	Formatter output.Formatter
}

// Synchronizer runs tree syncs through a transfer orchestrator
type Synchronizer struct {
	orchestrator *transfer.Orchestrator
	newID        func() string
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithOperationIDs replaces the uuid generator used for report ids
func WithOperationIDs(fn func() string) Option {
	return func(s *Synchronizer) {
		s.newID = fn
	}
}

// New creates a synchronizer
func New(orchestrator *transfer.Orchestrator, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		orchestrator: orchestrator,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan computes what a sync from source to destination would do
func (s *Synchronizer) Plan(ctx context.Context, source, destination string, exclude []string) (*models.SyncPlan, error) {
	src, dst, err := resolveTrees(source, destination)
	if err != nil {
		return nil, err
	}
	excludes, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}
	return s.plan(ctx, src, dst, excludes)
}

func (s *Synchronizer) plan(ctx context.Context, src, dst resource.Descriptor, exclude *resource.ExcludeSet) (*models.SyncPlan, error) {
	sourceEntries, err := enumerate(ctx, s.orchestrator, src, exclude, false)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate source: %w", err)
	}
	destEntries, err := enumerate(ctx, s.orchestrator, dst, exclude, true)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate destination: %w", err)
	}

	return Diff(sourceEntries, indexByKey(destEntries)), nil
}

// Sync makes destination mirror source. Stale destination keys are
// deleted first, then modified keys and finally new keys are transferred
// with at most opts.Concurrency transfers in flight. A failed unit is
// recorded in the report and does not stop the others.
//
// The returned report is non-nil once both trees were enumerated. When ctx
// ends mid-run, the report has the cancelled status and the context error
// is returned with it.
func (s *Synchronizer) Sync(ctx context.Context, source, destination string, opts Options) (*models.SyncReport, error) {
	if opts.Concurrency < 1 {
		return nil, models.NewArgumentError(models.ErrArgumentOutOfRange, fmt.Sprintf("concurrency %d", opts.Concurrency))
	}
	src, dst, err := resolveTrees(source, destination)
	if err != nil {
		return nil, err
	}
	exclude, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	formatter := opts.Formatter
	if formatter == nil {
		formatter = output.NewNullFormatter()
	}

	report := &models.SyncReport{
		OperationID: s.newID(),
		SourcePath:  source,
		DestPath:    destination,
		DryRun:      opts.DryRun,
		StartTime:   time.Now(),
		Status:      models.StatusSuccess,
	}

	plan, err := s.plan(ctx, src, dst, exclude)
	if err != nil {
		return nil, err
	}
	report.Plan = plan
	report.Stats.SourceFiles = plan.SourceCount
	report.Stats.DestFiles = plan.DestCount
	report.Stats.FilesUnchanged = len(plan.Unchanged)

	if opts.DryRun {
		report.Finish(false)
		if err := formatter.Plan(plan); err != nil {
			return report, err
		}
		return report, nil
	}

	if err := formatter.Start(plan.TransferCount(), plan.TotalBytes(), opts.Concurrency); err != nil {
		return nil, err
	}

	run := &syncRun{
		dst:       dst,
		src:       src,
		report:    report,
		formatter: formatter,
		total:     plan.TransferCount(),
	}
	orchOpts := []transfer.Option{transfer.WithProgress(run.progress)}
	if opts.PreserveTimestamps {
		orchOpts = append(orchOpts, transfer.WithPreserveTimestamps(true))
	}
	run.orchestrator = s.orchestrator.With(orchOpts...)

	err = run.deleteStale(ctx, plan.Stale)
	if err == nil {
		err = dispatch.Execute(ctx, plan.Modified, opts.Concurrency, run.worker(models.ActionUpdate))
	}
	if err == nil {
		err = dispatch.Execute(ctx, plan.New, opts.Concurrency, run.worker(models.ActionCopy))
	}

	cancelled := ctx.Err() != nil
	report.Finish(cancelled)
	if cerr := formatter.Complete(report); cerr != nil && err == nil {
		err = cerr
	}

	return report, err
}

// syncRun carries the state shared by the workers of one Sync call
type syncRun struct {
	orchestrator *transfer.Orchestrator
	src, dst     resource.Descriptor
	report       *models.SyncReport
	formatter    output.Formatter
	total        int
	started      atomic.Int32
}

func (r *syncRun) deleteStale(ctx context.Context, stale []models.ComparisonEntry) error {
	if len(stale) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.dst.Location == resource.Local {
		for _, e := range stale {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := r.orchestrator.RemoveLocal(ctx, e.FullIdentifier)
			r.report.Record(models.ActionDelete, e.Key, models.NewOutcome(models.OutcomeDelete, e.FullIdentifier, e.FullIdentifier, 0, err))
		}
		return nil
	}

	keys := make([]string, len(stale))
	for i, e := range stale {
		keys[i] = e.FullIdentifier
	}

	failures, err := r.orchestrator.DeleteKeys(ctx, r.dst.Bucket, keys)
	refused := make(map[string]error, len(failures))
	for _, f := range failures {
		refused[f.Key] = f
	}

	for _, e := range stale {
		unitErr := refused[e.FullIdentifier]
		if err != nil {
			unitErr = err
		}
		url := resource.ObjectURL(r.dst.Bucket, e.FullIdentifier)
		r.report.Record(models.ActionDelete, e.Key, models.NewOutcome(models.OutcomeDelete, url, url, 0, unitErr))
	}
	return nil
}

// worker transfers one key. Failures go to the report, never to the
// dispatcher, so siblings keep running.
func (r *syncRun) worker(action models.Action) func(context.Context, models.ComparisonEntry) error {
	return func(ctx context.Context, e models.ComparisonEntry) error {
		index := int(r.started.Add(1))

		src, err := address(r.src, e.Key)
		if err != nil {
			r.report.Record(action, e.Key, models.NewOutcome(models.OutcomeCopy, e.FullIdentifier, "", 0, err))
			return nil
		}
		dst, err := address(r.dst, e.Key)
		if err != nil {
			r.report.Record(action, e.Key, models.NewOutcome(models.OutcomeCopy, src.String(), "", 0, err))
			return nil
		}

		r.formatter.Progress(output.ProgressUpdate{
			Type:        output.EventFileStart,
			FilePath:    src.String(),
			TotalBytes:  e.Size,
			CurrentFile: index,
			TotalFiles:  r.total,
		})

		outcome := r.orchestrator.TransferFile(ctx, src, dst)
		r.report.Record(action, e.Key, outcome)

		update := output.ProgressUpdate{
			Type:         output.EventFileComplete,
			FilePath:     src.String(),
			BytesWritten: outcome.Bytes,
			TotalBytes:   e.Size,
			CurrentFile:  index,
			TotalFiles:   r.total,
		}
		if !outcome.Succeeded() {
			update.Type = output.EventFileError
			update.Error = outcome.Err
		}
		r.formatter.Progress(update)
		return nil
	}
}

func (r *syncRun) progress(source string, bytesRead int64) {
	r.formatter.Progress(output.ProgressUpdate{
		Type:         output.EventFileProgress,
		FilePath:     source,
		BytesWritten: bytesRead,
		TotalFiles:   r.total,
	})
}

// address locates key below a tree root on either side
func address(tree resource.Descriptor, key string) (resource.Descriptor, error) {
	d := resource.Descriptor{Location: tree.Location, Bucket: tree.Bucket, Kind: resource.File}
	var err error
	if tree.Location == resource.Remote {
		d.Resource, err = resource.RemotePaths.Combine(tree.Resource, key)
	} else {
		d.Resource, err = resource.LocalPaths.Combine(tree.Resource, filepath.FromSlash(key))
	}
	return d, err
}

func resolveTrees(source, destination string) (resource.Descriptor, resource.Descriptor, error) {
	src, err := resource.Resolve(source)
	if err != nil {
		return src, src, err
	}
	if src.Kind != resource.Directory {
		return src, src, models.NewArgumentError(models.ErrMustBeDirectory, source)
	}

	dst, err := resource.Resolve(destination)
	if err != nil {
		return src, dst, err
	}
	if dst.Kind != resource.Directory {
		return src, dst, models.NewArgumentError(models.ErrMustBeDirectory, destination)
	}
	return src, dst, nil
}

func compileExcludes(patterns []string) (*resource.ExcludeSet, error) {
	set, err := resource.CompileExcludes(patterns)
	if err != nil {
		return nil, models.NewArgumentError(err, "")
	}
	return set, nil
}
