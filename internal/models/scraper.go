package models

import "time"

// Scraper job statuses.
const (
	JobAssigned   = "assigned"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ScrapeCooldown is the minimum time before a city may be reassigned.
const ScrapeCooldown = 4 * time.Hour

// ScraperJob is a document in scraper_jobs, keyed by "{workerID}_{city}".
type ScraperJob struct {
	ID                string     `firestore:"-" json:"jobId"`
	WorkerID          string     `firestore:"vpsId" json:"vpsId"`
	City              string     `firestore:"city" json:"city"`
	State             string     `firestore:"state" json:"state"`
	Status            string     `firestore:"status" json:"status"`
	AssignedAt        time.Time  `firestore:"assignedAt" json:"assignedAt"`
	LastScrapedAt     *time.Time `firestore:"lastScrapedAt,omitempty" json:"lastScrapedAt,omitempty"`
	ListingsFound     int        `firestore:"listingsFound,omitempty" json:"listingsFound,omitempty"`
	NewListingsAdded  int        `firestore:"newListingsAdded,omitempty" json:"newListingsAdded,omitempty"`
	DuplicatesSkipped int        `firestore:"duplicatesSkipped,omitempty" json:"duplicatesSkipped,omitempty"`
	ScrapeDuration    int        `firestore:"scrapeDuration,omitempty" json:"scrapeDuration,omitempty"`
	ErrorCount        int        `firestore:"errorCount" json:"errorCount"`
	LastError         string     `firestore:"lastError,omitempty" json:"lastError,omitempty"`
	UpdatedAt         time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

// JobAssignment is what get-job returns to a worker.
type JobAssignment struct {
	JobID    string `json:"jobId"`
	City     string `json:"city"`
	State    string `json:"state"`
	IsNewJob bool   `json:"isNewJob"`
}

// StatusReport is the payload a worker posts after a scrape run.
type StatusReport struct {
	WorkerID          string `json:"vpsId"`
	JobID             string `json:"jobId"`
	Status            string `json:"status"`
	ListingsFound     int    `json:"listingsFound,omitempty"`
	NewListingsAdded  int    `json:"newListingsAdded,omitempty"`
	DuplicatesSkipped int    `json:"duplicatesSkipped,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	ScrapeDuration    int    `json:"scrapeDuration,omitempty"` // seconds
}

// ScraperLogEntry is an immutable row in scraper_logs.
type ScraperLogEntry struct {
	ID                string    `firestore:"-" json:"id"`
	WorkerID          string    `firestore:"vpsId" json:"vpsId"`
	JobID             string    `firestore:"jobId" json:"jobId"`
	Status            string    `firestore:"status" json:"status"`
	ListingsFound     int       `firestore:"listingsFound" json:"listingsFound"`
	NewListingsAdded  int       `firestore:"newListingsAdded" json:"newListingsAdded"`
	DuplicatesSkipped int       `firestore:"duplicatesSkipped" json:"duplicatesSkipped"`
	ErrorMessage      string    `firestore:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	ScrapeDuration    int       `firestore:"scrapeDuration" json:"scrapeDuration"`
	Timestamp         time.Time `firestore:"timestamp" json:"timestamp"`
}

// WorkerStats aggregates job counters per worker for the health view.
type WorkerStats struct {
	WorkerID              string `json:"vpsId"`
	TotalJobs             int    `json:"totalJobs"`
	CompletedJobs         int    `json:"completedJobs"`
	FailedJobs            int    `json:"failedJobs"`
	InProgressJobs        int    `json:"inProgressJobs"`
	TotalListingsFound    int    `json:"totalListingsFound"`
	LastActivity          string `json:"lastActivity,omitempty"`
	AverageScrapeDuration int    `json:"averageScrapeDuration"`
}

// HealthReport is the detailed health payload behind the shared secret.
type HealthReport struct {
	Status            string            `json:"status"`
	Service           string            `json:"service"`
	Workers           []WorkerStats     `json:"workers"`
	Listings24h       int               `json:"listings24h"`
	NewListings24h    int               `json:"newListings24h"`
	RecentLogs        []ScraperLogEntry `json:"recentLogs"`
	GeneratedAt       time.Time         `json:"generatedAt"`
	CooldownHours     float64           `json:"cooldownHours"`
	ConfiguredWorkers int               `json:"configuredWorkers"`
	ConfiguredCities  int               `json:"configuredCities"`
}
