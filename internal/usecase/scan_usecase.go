package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/repository"
	"github.com/user/backlink-service/internal/urlnorm"
	"github.com/user/backlink-service/pkg/config"
	"github.com/user/backlink-service/pkg/metrics"
)

// maxTargetsPerScan caps how many URLs a single scan may carry.
const maxTargetsPerScan = 500

var (
	ErrInvalidRootDomain = errors.New("root domain is empty or invalid")
	ErrNoValidURLs       = errors.New("no valid target urls")
	ErrTooManyURLs       = errors.New("too many target urls")
	ErrScanNotFound      = errors.New("scan not found")
)

// Analyzer resolves one target page into a structured analysis. Per-target
// failures come back inside the analysis, not as an error.
type Analyzer interface {
	Analyze(ctx context.Context, sourceURL, rootDomain string) entity.Analysis
}

// MetricsProvider resolves authority metrics for a batch of URLs.
type MetricsProvider interface {
	FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric
}

// Notifier announces terminal scan states.
type Notifier interface {
	ScanFinished(ctx context.Context, scanID int64, status string, backlinks int)
}

// Telemetry records coarse product events, best effort.
type Telemetry interface {
	Track(event string, attrs map[string]string)
}

// ScanOrchestrator drives a scan from creation through batched processing to
// a terminal state.
type ScanOrchestrator interface {
	CreateScan(ctx context.Context, projectID, requestedBy int64, rootDomain string, urls []string) (*entity.Scan, error)
	ProcessScan(ctx context.Context, scanID int64) error
	CancelScan(ctx context.Context, scanID int64) (*entity.Scan, error)
	FindScan(ctx context.Context, scanID int64) (*entity.Scan, error)
	ListScansByProject(ctx context.Context, projectID int64, limit int) ([]entity.Scan, error)
	Results(ctx context.Context, scanID int64, filters entity.ResultFilters) ([]entity.ScanResult, error)
	TrendAgainstPrevious(ctx context.Context, scanID int64) (*entity.ScanTrend, error)
}

type scanOrchestrator struct {
	repo      repository.ScanRepository
	analyzer  Analyzer
	provider  MetricsProvider
	notifier  Notifier
	telemetry Telemetry
	cfg       *config.Config
}

// NewScanOrchestrator wires the orchestrator.
func NewScanOrchestrator(
	repo repository.ScanRepository,
	analyzer Analyzer,
	provider MetricsProvider,
	notifier Notifier,
	telemetry Telemetry,
	cfg *config.Config,
) ScanOrchestrator {
	return &scanOrchestrator{
		repo:      repo,
		analyzer:  analyzer,
		provider:  provider,
		notifier:  notifier,
		telemetry: telemetry,
		cfg:       cfg,
	}
}

// CreateScan validates and normalizes the request, then persists the scan,
// its targets and the driving job atomically.
func (uc *scanOrchestrator) CreateScan(ctx context.Context, projectID, requestedBy int64, rootDomain string, urls []string) (*entity.Scan, error) {
	root := urlnorm.RootDomain(rootDomain)
	if root == "" {
		return nil, ErrInvalidRootDomain
	}

	// Deduplicate on normalized form, keeping first occurrence order.
	seen := make(map[string]bool, len(urls))
	var targets []string
	for _, raw := range urls {
		normalized := urlnorm.NormalizeURL(raw)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		targets = append(targets, normalized)
	}

	if len(targets) == 0 {
		return nil, ErrNoValidURLs
	}
	if len(targets) > maxTargetsPerScan {
		return nil, ErrTooManyURLs
	}

	scan := &entity.Scan{
		ProjectID:     projectID,
		RequestedBy:   requestedBy,
		Status:        entity.ScanStatusQueued,
		Provider:      uc.cfg.MetricsProvider,
		RootDomain:    root,
		TotalTargets:  len(targets),
		CorrelationID: uuid.NewString(),
	}
	job := &entity.Job{
		Type:          entity.JobTypeScanRun,
		MaxAttempts:   uc.cfg.QueueMaxAttempts,
		CorrelationID: scan.CorrelationID,
	}

	scanID, err := uc.repo.CreateScan(ctx, scan, targets, job)
	if err != nil {
		return nil, err
	}
	scan.ID = scanID

	uc.telemetry.Track("scan.created", map[string]string{"provider": scan.Provider})
	slog.Info("scan created",
		"scan_id", scanID,
		"project_id", projectID,
		"targets", len(targets),
		"correlation_id", scan.CorrelationID,
	)
	return scan, nil
}

// ProcessScan runs the scan in batches of the configured concurrency. Each
// batch re-reads the scan status first, so a cancellation lands between
// batches rather than mid-flight. A batch is one transaction: its results,
// links and the processed counter commit together or not at all.
func (uc *scanOrchestrator) ProcessScan(ctx context.Context, scanID int64) error {
	scan, err := uc.repo.FindScan(ctx, scanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScanNotFound
		}
		return err
	}
	if entity.IsTerminalScanStatus(scan.Status) {
		slog.Info("scan already terminal, skipping", "scan_id", scanID, "status", scan.Status)
		return nil
	}

	if err := uc.repo.MarkRunning(ctx, scanID); err != nil {
		return err
	}
	started := time.Now()

	targets, err := uc.repo.ListTargets(ctx, scanID)
	if err != nil {
		return uc.failScan(ctx, scanID, err)
	}

	batchSize := uc.cfg.ScanMaxConcurrency
	if batchSize <= 0 {
		batchSize = 1
	}

	// Jobs retry at least once, so a run may see targets a previous attempt
	// already committed. Skipping them keeps the retry idempotent and the
	// processed counter within total_targets.
	processed := 0
	var pending []entity.ScanTarget
	for _, target := range targets {
		if target.Status == entity.TargetStatusCompleted {
			processed++
			continue
		}
		pending = append(pending, target)
	}

	backlinks := 0

	for offset := 0; offset < len(pending); offset += batchSize {
		current, err := uc.repo.FindScan(ctx, scanID)
		if err != nil {
			return uc.failScan(ctx, scanID, err)
		}
		if current.Status == entity.ScanStatusCancelled {
			slog.Info("scan cancelled, stopping", "scan_id", scanID, "processed", processed)
			metrics.ScansTotal.WithLabelValues(entity.ScanStatusCancelled).Inc()
			return nil
		}

		end := offset + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[offset:end]

		results := uc.processBatch(ctx, scan, batch)
		for i := range results {
			if results[i].BacklinkFound {
				backlinks++
			}
		}

		processed += len(batch)
		if err := uc.repo.SaveBatch(ctx, scanID, results, processed); err != nil {
			return uc.failScan(ctx, scanID, err)
		}
		metrics.TargetsProcessed.Add(float64(len(batch)))
	}

	if err := uc.repo.MarkCompleted(ctx, scanID); err != nil {
		return err
	}
	metrics.ScansTotal.WithLabelValues(entity.ScanStatusCompleted).Inc()
	metrics.ScanDuration.Observe(time.Since(started).Seconds())

	uc.notifier.ScanFinished(ctx, scanID, entity.ScanStatusCompleted, backlinks)
	uc.telemetry.Track("scan.completed", map[string]string{"provider": scan.Provider})
	slog.Info("scan completed",
		"scan_id", scanID,
		"targets", len(targets),
		"backlinks", backlinks,
		"duration", time.Since(started),
	)
	return nil
}

// processBatch fetches and analyzes the batch's targets in parallel, then
// resolves authority metrics for the successfully fetched pages with a single
// provider call.
func (uc *scanOrchestrator) processBatch(ctx context.Context, scan *entity.Scan, batch []entity.ScanTarget) []entity.ScanResult {
	analyses := make([]entity.Analysis, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			analyses[i] = uc.analyzer.Analyze(ctx, batch[i].NormalizedURL, scan.RootDomain)
		}(i)
	}
	wg.Wait()

	var lookupURLs []string
	for i := range analyses {
		metrics.FetchesTotal.WithLabelValues(analyses[i].FetchStatus).Inc()
		if analyses[i].FetchStatus == entity.FetchStatusOK {
			lookupURLs = append(lookupURLs, analyses[i].FinalURL)
		}
	}

	var lookups map[string]entity.Metric
	if len(lookupURLs) > 0 {
		lookups = uc.provider.FetchMetrics(ctx, lookupURLs)
		for _, m := range lookups {
			metrics.ProviderLookups.WithLabelValues(scan.Provider, m.Status).Inc()
		}
	}

	results := make([]entity.ScanResult, len(batch))
	for i := range batch {
		results[i] = buildResult(&batch[i], &analyses[i], lookups)
	}
	return results
}

// buildResult merges one target's analysis with its metric lookup. Pages that
// never reached the provider carry the "n/a" provider status.
func buildResult(target *entity.ScanTarget, analysis *entity.Analysis, lookups map[string]entity.Metric) entity.ScanResult {
	res := entity.ScanResult{
		ScanID:         target.ScanID,
		TargetID:       target.ID,
		SourceURL:      analysis.SourceURL,
		SourceDomain:   analysis.SourceDomain,
		FinalURL:       analysis.FinalURL,
		FinalDomain:    analysis.FinalDomain,
		HTTPStatus:     analysis.HTTPStatus,
		FetchStatus:    analysis.FetchStatus,
		RedirectChain:  analysis.RedirectChain,
		RobotsNoindex:  analysis.RobotsNoindex,
		XRobotsNoindex: analysis.XRobotsNoindex,
		BacklinkFound:  analysis.BacklinkFound,
		BestLinkType:   analysis.BestLinkType,
		AnchorText:     analysis.AnchorText,
		ProviderStatus: entity.MetricStatusNA,
		FetchedAt:      time.Now().UTC(),
	}

	var errParts []string
	if analysis.ErrorMessage != "" {
		errParts = append(errParts, analysis.ErrorMessage)
	}

	if metric, ok := lookups[analysis.FinalURL]; ok && analysis.FetchStatus == entity.FetchStatusOK {
		res.PageAuthority = metric.PA
		res.DomainAuthority = metric.DA
		res.ProviderStatus = metric.Status
		if metric.Err != "" {
			errParts = append(errParts, metric.Err)
		}
	}

	if msg := strings.TrimSpace(strings.Join(errParts, "; ")); msg != "" {
		res.ErrorMessage = &msg
	}

	for _, link := range analysis.Links {
		res.Links = append(res.Links, entity.ScanLink{
			Href:        link.Href,
			ResolvedURL: link.ResolvedURL,
			Rel:         link.Rel,
			LinkType:    link.LinkType,
			AnchorText:  link.AnchorText,
			IsTarget:    link.IsTarget,
		})
	}
	return res
}

func (uc *scanOrchestrator) failScan(ctx context.Context, scanID int64, cause error) error {
	if err := uc.repo.MarkFailed(ctx, scanID, cause.Error()); err != nil {
		slog.Error("failed to mark scan failed", "scan_id", scanID, "error", err)
	}
	metrics.ScansTotal.WithLabelValues(entity.ScanStatusFailed).Inc()
	uc.notifier.ScanFinished(ctx, scanID, entity.ScanStatusFailed, 0)
	return cause
}

// CancelScan requests cancellation. Terminal scans are returned unchanged; a
// running scan stops at its next batch boundary.
func (uc *scanOrchestrator) CancelScan(ctx context.Context, scanID int64) (*entity.Scan, error) {
	scan, err := uc.repo.FindScan(ctx, scanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	if entity.IsTerminalScanStatus(scan.Status) {
		return scan, nil
	}

	if err := uc.repo.MarkCancelled(ctx, scanID); err != nil {
		return nil, err
	}
	uc.telemetry.Track("scan.cancelled", nil)
	slog.Info("scan cancellation requested", "scan_id", scanID, "was", scan.Status)
	return uc.repo.FindScan(ctx, scanID)
}

func (uc *scanOrchestrator) FindScan(ctx context.Context, scanID int64) (*entity.Scan, error) {
	scan, err := uc.repo.FindScan(ctx, scanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrScanNotFound
	}
	return scan, err
}

func (uc *scanOrchestrator) ListScansByProject(ctx context.Context, projectID int64, limit int) ([]entity.Scan, error) {
	return uc.repo.ListScansByProject(ctx, projectID, limit)
}

func (uc *scanOrchestrator) Results(ctx context.Context, scanID int64, filters entity.ResultFilters) ([]entity.ScanResult, error) {
	if _, err := uc.FindScan(ctx, scanID); err != nil {
		return nil, err
	}
	return uc.repo.Results(ctx, scanID, filters)
}

// TrendAgainstPrevious compares the scan's aggregates with the previous
// completed scan of the same project.
func (uc *scanOrchestrator) TrendAgainstPrevious(ctx context.Context, scanID int64) (*entity.ScanTrend, error) {
	scan, err := uc.FindScan(ctx, scanID)
	if err != nil {
		return nil, err
	}

	current, err := uc.repo.Aggregates(ctx, scanID)
	if err != nil {
		return nil, err
	}

	prev, err := uc.repo.PreviousCompleted(ctx, scan.ProjectID, scanID)
	if errors.Is(err, repository.ErrNotFound) {
		return &entity.ScanTrend{CurrentTotal: current.Total}, nil
	}
	if err != nil {
		return nil, err
	}

	previous, err := uc.repo.Aggregates(ctx, prev.ID)
	if err != nil {
		return nil, err
	}

	return &entity.ScanTrend{
		HasPrevious:    true,
		PreviousScanID: prev.ID,
		DeltaBacklinks: current.Backlinks - previous.Backlinks,
		DeltaAvgDA:     round2(current.AvgDA - previous.AvgDA),
		CurrentTotal:   current.Total,
		PreviousTotal:  previous.Total,
	}, nil
}

func round2(v float64) float64 {
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
