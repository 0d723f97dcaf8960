// Package progress tracks the state of a batch run for logging and the
// status API.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageURLStart Stage = "URL_START"
	StageURLDone  Stage = "URL_DONE"
	StageURLError Stage = "URL_ERROR"
	StageURLSkip  Stage = "URL_SKIP"
	StageRetry    Stage = "RETRY"
)

// Event captures a single milestone of batch progress.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Domain is the normalized domain being processed.
	Domain string
	// URL is the page URL in flight.
	URL string
	// Attempt counts retries for this URL, starting at 1.
	Attempt int
	// Products carries the extracted product count on completion.
	Products int
	// Note attaches low-volume context such as error text.
	Note string
}

// Snapshot is a point-in-time view of a batch run, served by the status API.
type Snapshot struct {
	RunID     uuid.UUID `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Retries   int       `json:"retries"`
	Products  int       `json:"products"`
	Active    []string  `json:"active"`
}

// Tracker aggregates events into a Snapshot. Safe for concurrent use.
type Tracker struct {
	runID     uuid.UUID
	startedAt time.Time
	logger    *zap.Logger

	mu        sync.Mutex
	total     int
	succeeded int
	failed    int
	skipped   int
	retries   int
	products  int
	active    map[string]struct{}
}

// NewTracker creates a Tracker for a run over total URLs.
func NewTracker(runID uuid.UUID, total int, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		runID:     runID,
		startedAt: time.Now().UTC(),
		logger:    logger,
		total:     total,
		active:    make(map[string]struct{}),
	}
}

// Emit records the event and logs it at an appropriate level.
func (t *Tracker) Emit(evt Event) {
	if t == nil {
		return
	}
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}

	t.mu.Lock()
	switch evt.Stage {
	case StageURLStart:
		t.active[evt.URL] = struct{}{}
	case StageURLDone:
		delete(t.active, evt.URL)
		t.succeeded++
		t.products += evt.Products
	case StageURLError:
		delete(t.active, evt.URL)
		t.failed++
	case StageURLSkip:
		t.skipped++
	case StageRetry:
		t.retries++
	}
	t.mu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", t.runID.String()),
		zap.String("domain", evt.Domain),
		zap.String("url", evt.URL),
	}
	if evt.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", evt.Attempt))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}

	switch evt.Stage {
	case StageURLStart:
		t.logger.Info("Processing URL", fields...)
	case StageURLDone:
		t.logger.Info("URL processed", append(fields, zap.Int("products", evt.Products))...)
	case StageURLError:
		t.logger.Error("URL failed", fields...)
	case StageURLSkip:
		t.logger.Info("Skipping URL", fields...)
	case StageRetry:
		t.logger.Warn("Retrying URL", fields...)
	}
}

// Snapshot returns the current state of the run.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := make([]string, 0, len(t.active))
	for url := range t.active {
		active = append(active, url)
	}
	return Snapshot{
		RunID:     t.runID,
		StartedAt: t.startedAt,
		Total:     t.total,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Skipped:   t.skipped,
		Retries:   t.retries,
		Products:  t.products,
		Active:    active,
	}
}
