package repositories

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/scraper"
)

type ScraperRepository struct {
	Client *firestore.Client
}

func (r *ScraperRepository) jobs() *firestore.CollectionRef {
	return r.Client.Collection("scraper_jobs")
}

func (r *ScraperRepository) logs() *firestore.CollectionRef {
	return r.Client.Collection("scraper_logs")
}

// TryClaim attempts to assign one target to a worker. The read and the
// assignment write run in a single transaction, so two racing get-job calls
// cannot both claim the same city past the cooldown check.
func (r *ScraperRepository) TryClaim(ctx context.Context, workerID string, target scraper.Target, cooldown time.Duration, now time.Time) (claimed, isNew bool, err error) {
	jobID := workerID + "_" + target.City
	ref := r.jobs().Doc(jobID)

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && (snap == nil || snap.Exists()) {
			return err
		}

		if snap == nil || !snap.Exists() {
			// Never scraped before, claim immediately.
			claimed, isNew = true, true
			return tx.Create(ref, models.ScraperJob{
				WorkerID:   workerID,
				City:       target.City,
				State:      target.State,
				Status:     models.JobAssigned,
				AssignedAt: now,
				UpdatedAt:  now,
			})
		}

		var job models.ScraperJob
		if err := snap.DataTo(&job); err != nil {
			return err
		}
		if job.Status == models.JobInProgress {
			return nil
		}
		if job.LastScrapedAt != nil && now.Sub(*job.LastScrapedAt) < cooldown {
			return nil
		}

		claimed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: models.JobAssigned},
			{Path: "assignedAt", Value: now},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		return false, false, err
	}
	return claimed, isNew, nil
}

func (r *ScraperRepository) GetJob(ctx context.Context, jobID string) (models.ScraperJob, error) {
	snap, err := r.jobs().Doc(jobID).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return models.ScraperJob{}, models.ErrJobNotFound
		}
		return models.ScraperJob{}, err
	}

	var job models.ScraperJob
	if err := snap.DataTo(&job); err != nil {
		return models.ScraperJob{}, err
	}
	job.ID = snap.Ref.ID
	return job, nil
}

// ApplyReport updates a job document from a worker status report.
func (r *ScraperRepository) ApplyReport(ctx context.Context, report models.StatusReport, now time.Time) error {
	ref := r.jobs().Doc(report.JobID)

	snap, err := ref.Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return models.ErrJobNotFound
		}
		return err
	}

	updates := []firestore.Update{
		{Path: "status", Value: report.Status},
		{Path: "updatedAt", Value: now},
	}
	switch report.Status {
	case models.JobCompleted:
		updates = append(updates,
			firestore.Update{Path: "lastScrapedAt", Value: now},
			firestore.Update{Path: "listingsFound", Value: report.ListingsFound},
			firestore.Update{Path: "newListingsAdded", Value: report.NewListingsAdded},
			firestore.Update{Path: "duplicatesSkipped", Value: report.DuplicatesSkipped},
			firestore.Update{Path: "scrapeDuration", Value: report.ScrapeDuration},
			firestore.Update{Path: "lastError", Value: nil},
		)
	case models.JobFailed:
		msg := report.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		updates = append(updates,
			firestore.Update{Path: "lastError", Value: msg},
			firestore.Update{Path: "errorCount", Value: firestore.Increment(1)},
		)
	}

	_, err = ref.Update(ctx, updates)
	return err
}

// AddLog appends an immutable log entry for analytics.
func (r *ScraperRepository) AddLog(ctx context.Context, entry models.ScraperLogEntry) error {
	entry.Timestamp = time.Now()
	_, _, err := r.logs().Add(ctx, entry)
	return err
}

func (r *ScraperRepository) ListJobs(ctx context.Context) ([]models.ScraperJob, error) {
	iter := r.jobs().Documents(ctx)
	defer iter.Stop()

	var out []models.ScraperJob
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var job models.ScraperJob
		if err := snap.DataTo(&job); err != nil {
			return nil, err
		}
		job.ID = snap.Ref.ID
		out = append(out, job)
	}
	return out, nil
}

// RecentLogs returns log entries since the cutoff, newest first.
func (r *ScraperRepository) RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.ScraperLogEntry, error) {
	iter := r.logs().
		Where("timestamp", ">", since).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []models.ScraperLogEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var entry models.ScraperLogEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, err
		}
		entry.ID = snap.Ref.ID
		out = append(out, entry)
	}
	return out, nil
}
