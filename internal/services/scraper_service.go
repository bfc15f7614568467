package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/scraper"
)

// JobStore is the slice of the scraper repository the coordinator uses.
type JobStore interface {
	TryClaim(ctx context.Context, workerID string, target scraper.Target, cooldown time.Duration, now time.Time) (claimed, isNew bool, err error)
	GetJob(ctx context.Context, jobID string) (models.ScraperJob, error)
	ApplyReport(ctx context.Context, report models.StatusReport, now time.Time) error
	AddLog(ctx context.Context, entry models.ScraperLogEntry) error
	ListJobs(ctx context.Context) ([]models.ScraperJob, error)
	RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.ScraperLogEntry, error)
}

// ScraperService hands scrape targets to VPS workers and folds their reports
// back into job state.
type ScraperService struct {
	Jobs     JobStore
	Cooldown time.Duration
	Logger   *slog.Logger

	// OnReport, when set, is called after every accepted status report.
	// The monitor feed hangs off it.
	OnReport func(models.ScraperLogEntry)
}

func (s *ScraperService) cooldown() time.Duration {
	if s.Cooldown > 0 {
		return s.Cooldown
	}
	return models.ScrapeCooldown
}

// NextJob walks the worker's assigned targets in table order and claims the
// first eligible one. A nil assignment with nil error means everything is in
// progress or cooling down.
func (s *ScraperService) NextJob(ctx context.Context, workerID string) (*models.JobAssignment, error) {
	logger := s.Logger.With("op", "services.NextJob", "vpsId", workerID)

	if !scraper.ValidWorker(workerID) {
		return nil, models.ErrInvalidWorker
	}

	now := time.Now()
	for _, target := range scraper.TargetsFor(workerID) {
		claimed, isNew, err := s.Jobs.TryClaim(ctx, workerID, target, s.cooldown(), now)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		logger.Info("job claimed", "city", target.City, "state", target.State, "new", isNew)
		return &models.JobAssignment{
			JobID:    workerID + "_" + target.City,
			City:     target.City,
			State:    target.State,
			IsNewJob: isNew,
		}, nil
	}

	logger.Info("no eligible targets")
	return nil, nil
}

// ReportStatus records a worker's scrape outcome: the job document gets the
// counters and status, and an immutable log row is appended.
func (s *ScraperService) ReportStatus(ctx context.Context, report models.StatusReport) error {
	logger := s.Logger.With("op", "services.ReportStatus", "vpsId", report.WorkerID, "jobId", report.JobID, "status", report.Status)

	if !scraper.ValidWorker(report.WorkerID) {
		return models.ErrInvalidWorker
	}
	if report.Status != models.JobCompleted && report.Status != models.JobFailed && report.Status != models.JobInProgress {
		return models.ErrInvalidAction
	}

	now := time.Now()
	if err := s.Jobs.ApplyReport(ctx, report, now); err != nil {
		return err
	}

	entry := models.ScraperLogEntry{
		WorkerID:          report.WorkerID,
		JobID:             report.JobID,
		Status:            report.Status,
		ListingsFound:     report.ListingsFound,
		NewListingsAdded:  report.NewListingsAdded,
		DuplicatesSkipped: report.DuplicatesSkipped,
		ErrorMessage:      report.ErrorMessage,
		ScrapeDuration:    report.ScrapeDuration,
		Timestamp:         now,
	}
	if err := s.Jobs.AddLog(ctx, entry); err != nil {
		// The job state is committed; a lost log row only degrades the
		// health view.
		logger.Error("failed to append scraper log", "error", err)
	}

	logger.Info("status report applied", "listingsFound", report.ListingsFound, "newListings", report.NewListingsAdded)
	if s.OnReport != nil {
		s.OnReport(entry)
	}
	return nil
}

// Health returns the basic liveness payload, or the full per-worker report
// when detailed is set.
func (s *ScraperService) Health(ctx context.Context, detailed bool) (models.HealthReport, error) {
	report := models.HealthReport{
		Status:            "ok",
		Service:           "scraper-coordinator",
		GeneratedAt:       time.Now(),
		CooldownHours:     s.cooldown().Hours(),
		ConfiguredWorkers: len(scraper.WorkerIDs()),
		ConfiguredCities:  scraper.TotalCities(),
	}
	if !detailed {
		return report, nil
	}

	jobs, err := s.Jobs.ListJobs(ctx)
	if err != nil {
		return models.HealthReport{}, err
	}

	cutoff := report.GeneratedAt.Add(-24 * time.Hour)
	byWorker := make(map[string]*models.WorkerStats)
	durations := make(map[string][2]int) // sum, count of completed scrape durations

	for _, job := range jobs {
		stats := byWorker[job.WorkerID]
		if stats == nil {
			stats = &models.WorkerStats{WorkerID: job.WorkerID}
			byWorker[job.WorkerID] = stats
		}
		stats.TotalJobs++
		switch job.Status {
		case models.JobCompleted:
			stats.CompletedJobs++
		case models.JobFailed:
			stats.FailedJobs++
		case models.JobInProgress:
			stats.InProgressJobs++
		}
		stats.TotalListingsFound += job.ListingsFound
		if job.LastScrapedAt != nil {
			if stats.LastActivity == "" || job.LastScrapedAt.Format(time.RFC3339) > stats.LastActivity {
				stats.LastActivity = job.LastScrapedAt.Format(time.RFC3339)
			}
			if job.LastScrapedAt.After(cutoff) {
				report.Listings24h += job.ListingsFound
				report.NewListings24h += job.NewListingsAdded
			}
		}
		if job.Status == models.JobCompleted && job.ScrapeDuration > 0 {
			d := durations[job.WorkerID]
			durations[job.WorkerID] = [2]int{d[0] + job.ScrapeDuration, d[1] + 1}
		}
	}

	for id, stats := range byWorker {
		if d := durations[id]; d[1] > 0 {
			stats.AverageScrapeDuration = d[0] / d[1]
		}
		report.Workers = append(report.Workers, *stats)
	}
	sort.Slice(report.Workers, func(i, j int) bool {
		return report.Workers[i].WorkerID < report.Workers[j].WorkerID
	})

	logs, err := s.Jobs.RecentLogs(ctx, cutoff, 50)
	if err != nil {
		s.Logger.Error("failed to load recent scraper logs", "op", "services.Health", "error", err)
	} else {
		report.RecentLogs = logs
	}
	return report, nil
}
