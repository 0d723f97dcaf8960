package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Failure pairs a URL with the final error that exhausted its retries.
type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Summary is the end-of-run report written next to the results.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
	Seconds    float64   `json:"duration_seconds"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Products   int       `json:"products"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Write saves the summary as summary_<unix-ts>.json in dir and returns the
// file path.
func (s Summary) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create summary directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("summary_%d.json", s.FinishedAt.Unix()))
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary file: %w", err)
	}
	return path, nil
}

// formatDuration renders a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
