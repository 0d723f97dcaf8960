package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StatusRecord tracks retry state for one URL so an interrupted run can
// resume without redoing exhausted attempts. Stored as
// {status_dir}/{domain}.status.json.
type StatusRecord struct {
	URL         string    `json:"url"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	Errors      []string  `json:"errors"`
}

func statusPath(dir, domain string) string {
	return filepath.Join(dir, domain+".status.json")
}

// LoadStatus reads the status record for a domain. A missing file returns a
// zero record and no error.
func LoadStatus(dir, domain string) (StatusRecord, error) {
	data, err := os.ReadFile(statusPath(dir, domain))
	if err != nil {
		if os.IsNotExist(err) {
			return StatusRecord{}, nil
		}
		return StatusRecord{}, fmt.Errorf("read status file for %s: %w", domain, err)
	}
	var rec StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return StatusRecord{}, fmt.Errorf("parse status file for %s: %w", domain, err)
	}
	return rec, nil
}

// SaveStatus writes the status record for a domain, creating the directory
// as needed.
func SaveStatus(dir, domain string, rec StatusRecord) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status for %s: %w", domain, err)
	}
	if err := os.WriteFile(statusPath(dir, domain), data, 0o644); err != nil {
		return fmt.Errorf("write status file for %s: %w", domain, err)
	}
	return nil
}

// ClearStatus removes the status record after a domain succeeds.
func ClearStatus(dir, domain string) error {
	err := os.Remove(statusPath(dir, domain))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove status file for %s: %w", domain, err)
	}
	return nil
}
