// Package monitor owns the scan pipeline and its schedule: fetch pages
// from every source, filter, enrich, persist, notify, and track health
// across runs.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mkorchagin/vacradar/internal/enrich"
	"github.com/mkorchagin/vacradar/internal/model"
)

// ErrAlreadyRunning is returned by Start when the monitor is active.
var ErrAlreadyRunning = errors.New("monitor already running")

// Health summarizes recent run outcomes.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthDown     Health = "down"
)

// Consecutive failed runs before health drops from degraded to down.
const downThreshold = 3

// PostingFilter decides which scraped postings enter the pipeline.
type PostingFilter interface {
	Match(posting model.RawPosting) bool
}

// SourceStats is the per-source outcome of one run. Failed marks a fetch
// failure; it feeds the source's own counter, never run health.
type SourceStats struct {
	Found         int
	Saved         int
	Failed        bool
	PersistErrors int
	Error         string
}

// RunStats is the outcome of one scan run.
type RunStats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Full       bool
	TotalFound int
	TotalSaved int
	BySource   map[string]SourceStats
}

// Status is a snapshot of the monitor's state. SourceFailures holds the
// consecutive fetch-failure count per source; it is informational and does
// not affect Health.
type Status struct {
	Running             bool
	Health              Health
	ConsecutiveFailures int
	SourceFailures      map[string]int
	LastRun             *RunStats
}

// Config holds the scan schedule and paging behavior.
type Config struct {
	Queries         []string
	MaxPages        int           // pages per query on a full scan
	PageDelay       time.Duration // pause between pages of one source
	IncrementalSpec string        // cron spec for first-page scans
	FullSpec        string        // cron spec for deep scans
	Override        bool          // re-ingestion resets moderation state
}

// Monitor coordinates scheduled scans over a set of source adapters.
// Sources run concurrently; pages within one source run sequentially with
// a politeness delay.
type Monitor struct {
	adapters []model.SourceAdapter
	filter   PostingFilter
	enricher model.Enricher
	store    model.VacancyStore
	notifier model.Notifier
	logger   *slog.Logger
	cfg      Config

	// runMu serializes scan runs; mu guards the state below.
	runMu sync.Mutex
	mu    sync.Mutex

	running             bool
	cron                *cron.Cron
	cancel              context.CancelFunc
	scanWG              *sync.WaitGroup
	consecutiveFailures int
	sourceFailures      map[string]int
	lastRun             *RunStats
}

// New creates a monitor wired with all its dependencies.
func New(
	adapters []model.SourceAdapter,
	postingFilter PostingFilter,
	enricher model.Enricher,
	store model.VacancyStore,
	notifier model.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Monitor {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Monitor{
		adapters:       adapters,
		filter:         postingFilter,
		enricher:       enricher,
		store:          store,
		notifier:       notifier,
		logger:         logger,
		cfg:            cfg,
		sourceFailures: make(map[string]int),
	}
}

// Start registers the incremental and full scan schedules and begins
// ticking. A second Start without an intervening Stop fails with
// ErrAlreadyRunning.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()

	if _, err := c.AddFunc(m.cfg.IncrementalSpec, func() {
		if _, err := m.RunOnce(runCtx, false); err != nil {
			m.logger.Error("incremental scan failed", "error", err)
		}
	}); err != nil {
		cancel()
		return err
	}
	if m.cfg.FullSpec != "" {
		if _, err := c.AddFunc(m.cfg.FullSpec, func() {
			if _, err := m.RunOnce(runCtx, true); err != nil {
				m.logger.Error("full scan failed", "error", err)
			}
		}); err != nil {
			cancel()
			return err
		}
	}

	c.Start()
	m.cron = c
	m.cancel = cancel
	m.running = true

	// Scan immediately so a fresh deployment has data before the first tick.
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := m.RunOnce(runCtx, true); err != nil {
			m.logger.Error("initial scan failed", "error", err)
		}
	}()
	m.scanWG = wg

	m.logger.Info("monitor started",
		"sources", len(m.adapters),
		"queries", len(m.cfg.Queries),
		"incremental", m.cfg.IncrementalSpec,
		"full", m.cfg.FullSpec,
	)
	return nil
}

// Stop halts the schedule and blocks until any in-flight scan has finished,
// so a run's record set is never cut short. Cancelling the context passed
// to Start remains the way to abort scans on process shutdown.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	c := m.cron
	cancel := m.cancel
	wg := m.scanWG
	m.cron = nil
	m.cancel = nil
	m.scanWG = nil
	m.running = false
	m.mu.Unlock()

	<-c.Stop().Done()
	wg.Wait()
	cancel()
	m.logger.Info("monitor stopped")
}

// Status returns a snapshot of monitor state and derived health.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := HealthHealthy
	switch {
	case m.consecutiveFailures >= downThreshold:
		health = HealthDown
	case m.consecutiveFailures > 0:
		health = HealthDegraded
	}

	var last *RunStats
	if m.lastRun != nil {
		cp := *m.lastRun
		last = &cp
	}
	failures := make(map[string]int, len(m.sourceFailures))
	for name, n := range m.sourceFailures {
		failures[name] = n
	}
	return Status{
		Running:             m.running,
		Health:              health,
		ConsecutiveFailures: m.consecutiveFailures,
		SourceFailures:      failures,
		LastRun:             last,
	}
}

// RunOnce executes a single scan over all sources and queries. full scans
// walk MaxPages pages per query; incremental scans take only the first. A
// run with zero findings is a success; only a record that fails to persist
// counts against health, fetch errors stay in their source's counter.
func (m *Monitor) RunOnce(ctx context.Context, full bool) (*RunStats, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	stats := &RunStats{
		StartedAt: time.Now(),
		Full:      full,
		BySource:  make(map[string]SourceStats),
	}

	pages := 1
	if full {
		pages = m.cfg.MaxPages
	}

	var (
		wg         sync.WaitGroup
		resultMu   sync.Mutex
		newRecords []model.VacancyRecord
	)
	for _, a := range m.adapters {
		wg.Add(1)
		go func(a model.SourceAdapter) {
			defer wg.Done()
			src := m.scanSource(ctx, a, pages, &resultMu, &newRecords)
			resultMu.Lock()
			stats.BySource[a.Name()] = src
			stats.TotalFound += src.Found
			stats.TotalSaved += src.Saved
			resultMu.Unlock()
		}(a)
	}
	wg.Wait()
	stats.FinishedAt = time.Now()

	if len(newRecords) > 0 && m.notifier != nil {
		if err := m.notifier.Notify(newRecords); err != nil {
			m.logger.Error("notification failed", "error", err)
		}
	}

	// Only persistence errors count against run health. Fetch failures feed
	// each source's own counter so one blocked site cannot mark the run down.
	failed := false
	m.mu.Lock()
	for name, src := range stats.BySource {
		if src.PersistErrors > 0 {
			failed = true
		}
		if src.Failed {
			m.sourceFailures[name]++
		} else {
			m.sourceFailures[name] = 0
		}
	}
	if failed {
		m.consecutiveFailures++
	} else {
		m.consecutiveFailures = 0
	}
	m.lastRun = stats
	m.mu.Unlock()

	m.logger.Info("scan complete",
		"full", full,
		"found", stats.TotalFound,
		"saved", stats.TotalSaved,
		"duration", stats.FinishedAt.Sub(stats.StartedAt),
	)
	return stats, ctx.Err()
}

// scanSource walks the configured queries and pages for one adapter.
// Created records are appended to newRecords under resultMu.
func (m *Monitor) scanSource(
	ctx context.Context,
	a model.SourceAdapter,
	pages int,
	resultMu *sync.Mutex,
	newRecords *[]model.VacancyRecord,
) SourceStats {
	var src SourceStats
	for _, query := range m.cfg.Queries {
		for page := 1; page <= pages; page++ {
			if ctx.Err() != nil {
				return src
			}

			postings, err := a.Fetch(ctx, query, page)
			if err != nil {
				m.logger.Error("fetch failed",
					"source", a.Name(), "query", query, "page", page, "error", err)
				src.Failed = true
				src.Error = err.Error()
				break // remaining pages of this query are unlikely to fare better
			}
			src.Found += len(postings)

			for _, posting := range postings {
				if m.filter != nil && !m.filter.Match(posting) {
					continue
				}
				rec, created, err := m.ingest(ctx, posting)
				if err != nil {
					m.logger.Error("persist failed",
						"source", a.Name(), "external_id", posting.ExternalID, "error", err)
					src.PersistErrors++
					src.Error = err.Error()
					continue
				}
				src.Saved++
				if created {
					resultMu.Lock()
					*newRecords = append(*newRecords, *rec)
					resultMu.Unlock()
				}
			}

			// No results on this page means later pages are empty too.
			if len(postings) == 0 {
				break
			}

			if page < pages && m.cfg.PageDelay > 0 {
				select {
				case <-ctx.Done():
					return src
				case <-time.After(m.cfg.PageDelay):
				}
			}
		}
	}
	return src
}

// ingest enriches one posting and upserts it. Card salary text fills the
// analysis when no pipeline stage extracted bounds from the description.
func (m *Monitor) ingest(ctx context.Context, posting model.RawPosting) (*model.VacancyRecord, bool, error) {
	analysis := m.enricher.Enrich(ctx, posting.Title, posting.Description)
	if analysis.Salary.Min == 0 && analysis.Salary.Max == 0 && posting.Salary != "" {
		if salary, ok := enrich.ParseSalary(posting.Salary); ok {
			analysis.Salary = salary
		}
	}

	rec := &model.VacancyRecord{
		Source:      posting.Source,
		ExternalID:  posting.ExternalID,
		URL:         posting.URL,
		Title:       posting.Title,
		Company:     posting.Company,
		Location:    posting.Location,
		Description: posting.Description,
		PublishedAt: posting.PublishedAt,
		Analysis:    analysis,
	}

	id, created, err := m.store.Upsert(ctx, rec, m.cfg.Override)
	if err != nil {
		return nil, false, err
	}
	rec.ID = id
	return rec, created, nil
}
