// ABOUTME: Report engine orchestrating the inventory, cleanse, match, and report stages.
// ABOUTME: Serializes runs per report date and records metrics and publishing.

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pccs/cvreport/internal/cleanse"
	"github.com/pccs/cvreport/internal/match"
	"github.com/pccs/cvreport/internal/metrics"
	"github.com/pccs/cvreport/internal/publish"
	"github.com/pccs/cvreport/internal/report"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// InventoryProvider supplies the current container inventory.
type InventoryProvider interface {
	Name() string
	Snapshot(ctx context.Context) ([]types.InventoryRecord, error)
}

// ScanSource supplies vulnerability findings for a report date. The
// inventory is passed so registry-backed sources know which images to ask
// about; file-backed sources ignore it.
type ScanSource interface {
	Name() string
	Findings(ctx context.Context, date string, inventory []types.InventoryRecord) ([]types.VulnerabilityRecord, error)
}

// Options configures run behavior.
type Options struct {
	// ClusterName fills the Cluster column of every report row.
	ClusterName string
	// SkipExisting short-circuits a run when the date's report already exists.
	SkipExisting bool
	// Report carries grouping options passed through to report building.
	Report report.Options
}

// RunResult describes the outcome of a single report generation run.
type RunResult struct {
	RunID   string
	Date    string
	Rows    int
	Skipped bool
}

// Engine runs the report pipeline end to end for one date at a time.
type Engine struct {
	provider  InventoryProvider
	source    ScanSource
	store     *storage.Store
	matcher   match.Matcher
	opts      Options
	recorder  *metrics.Recorder
	publisher publish.Publisher
	logger    *logrus.Logger

	mu       sync.Mutex
	dateRuns map[string]*dateLock
}

// dateLock serializes runs for one report date. refs counts holders and
// waiters so the engine can drop the entry once the last run finishes.
type dateLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a report engine. The recorder and publisher are optional.
func New(provider InventoryProvider, source ScanSource, store *storage.Store, opts Options, recorder *metrics.Recorder, publisher publish.Publisher, logger *logrus.Logger) *Engine {
	return &Engine{
		provider:  provider,
		source:    source,
		store:     store,
		matcher:   match.NewSuffixIndex(logger),
		opts:      opts,
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
		dateRuns:  make(map[string]*dateLock),
	}
}

// Run executes the full pipeline for the given report date. Concurrent runs
// for the same date are serialized; the second run sees the first one's
// output and, with SkipExisting set, returns without regenerating it.
func (e *Engine) Run(ctx context.Context, date string) (RunResult, error) {
	if err := storage.ValidateDate(date); err != nil {
		return RunResult{}, err
	}

	lock := e.acquireDate(date)
	defer e.releaseDate(date, lock)

	runID := uuid.New().String()
	log := e.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"date":   date,
	})

	start := time.Now()
	result, err := e.run(ctx, date, runID, log)
	elapsed := time.Since(start)

	if e.recorder != nil {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "error"
		case result.Skipped:
			outcome = "skipped"
		}
		e.recorder.RecordRun(outcome, elapsed.Seconds())
		if err == nil && !result.Skipped {
			e.recorder.SetLastRunTimestamp(time.Now().Unix())
		}
	}

	if err != nil {
		log.WithError(err).WithField("duration", elapsed).Error("Report run failed")
		return RunResult{}, err
	}

	log.WithFields(logrus.Fields{
		"duration": elapsed,
		"rows":     result.Rows,
		"skipped":  result.Skipped,
	}).Info("Report run completed")
	return result, nil
}

func (e *Engine) run(ctx context.Context, date, runID string, log *logrus.Entry) (RunResult, error) {
	result := RunResult{RunID: runID, Date: date}

	if e.opts.SkipExisting && e.store.ReportExists(date) {
		log.Info("Report already exists, skipping run")
		result.Skipped = true
		return result, nil
	}

	// A failed snapshot degrades to an empty inventory: the run completes
	// with no matches instead of taking the whole service down with it.
	raw, err := e.provider.Snapshot(ctx)
	if err != nil {
		log.WithError(err).Error("Inventory snapshot failed, continuing with empty inventory")
		raw = nil
	}

	// Side-write failures lose an audit artifact but not the report.
	if err := e.store.WriteInventoryCSV(e.store.RawInventoryPath(date), raw); err != nil {
		log.WithError(err).Warn("Failed to write raw inventory CSV")
	}

	cleansed := cleanse.Records(raw, log)
	if err := e.store.WriteInventoryCSV(e.store.CleansedInventoryPath(date), cleansed); err != nil {
		log.WithError(err).Warn("Failed to write cleansed inventory CSV")
	}

	findings, err := e.source.Findings(ctx, date, cleansed)
	if err != nil {
		return result, fmt.Errorf("loading scan findings failed: %w", err)
	}

	pairs := e.matcher.Match(cleansed, findings)
	rows, err := e.generate(pairs, date, log)
	if err != nil {
		return result, err
	}
	result.Rows = rows

	if e.recorder != nil {
		e.recorder.RecordStages(len(raw), len(cleansed), len(findings), len(pairs), rows)
	}

	if rows > 0 && e.publisher != nil {
		paths := []string{e.store.ReportCSVPath(date), e.store.ReportMarkdownPath(date)}
		if err := e.publisher.Publish(ctx, date, paths); err != nil {
			log.WithError(err).WithField("publisher", e.publisher.Name()).Warn("Failed to publish report")
		}
	}

	return result, nil
}

// generate groups the matched pairs and writes the report artifacts. Zero
// rows means no artifacts at all.
func (e *Engine) generate(pairs []types.MatchedPair, date string, log *logrus.Entry) (int, error) {
	rows := report.Build(pairs, e.opts.ClusterName, date, e.opts.Report, log)

	if len(rows) == 0 {
		log.Info("No vulnerabilities matched inventory, skipping report artifacts")
		return 0, nil
	}

	if err := report.WriteCSV(e.store.ReportCSVPath(date), rows); err != nil {
		return 0, fmt.Errorf("writing report CSV failed: %w", err)
	}
	if err := report.WriteMarkdown(e.store.ReportMarkdownPath(date), rows); err != nil {
		return 0, fmt.Errorf("writing report markdown failed: %w", err)
	}

	return len(rows), nil
}

func (e *Engine) acquireDate(date string) *dateLock {
	e.mu.Lock()
	lock, ok := e.dateRuns[date]
	if !ok {
		lock = &dateLock{}
		e.dateRuns[date] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (e *Engine) releaseDate(date string, lock *dateLock) {
	lock.mu.Unlock()

	e.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(e.dateRuns, date)
	}
	e.mu.Unlock()
}
