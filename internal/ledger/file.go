package ledger

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/logging"
)

// FileLedger keeps processed domains in a plain text file, one per line in
// the form "domain - count". Lines starting with # are comments. Appends are
// synced so a killed run loses at most the entry in flight.
type FileLedger struct {
	mu      sync.Mutex
	file    *os.File
	domains map[string]int
}

// OpenFile loads (or creates) the ledger file at path.
func OpenFile(path string) (*FileLedger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file %s: %w", path, err)
	}

	domains := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domain, count := parseLine(line)
		if domain == "" {
			logging.L.Warn("Skipping malformed ledger line", zap.String("line", line))
			continue
		}
		domains[domain] = count
	}
	if err := scanner.Err(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read ledger file %s: %w", path, err)
	}

	return &FileLedger{file: f, domains: domains}, nil
}

// parseLine splits "domain - count". Lines without a count parse to 0 so
// hand-edited files with bare domains still work.
func parseLine(line string) (string, int) {
	domain, countStr, found := strings.Cut(line, " - ")
	domain = strings.TrimSpace(domain)
	if !found {
		return domain, 0
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil {
		return domain, 0
	}
	return domain, count
}

// Contains reports whether the domain appears in the ledger.
func (l *FileLedger) Contains(_ context.Context, domain string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.domains[domain]
	return ok, nil
}

// Record appends the domain to the file and the in-memory set. Recording a
// domain twice updates the set but still appends, keeping the file an
// honest history of runs.
func (l *FileLedger) Record(_ context.Context, domain string, productCount int) error {
	if domain == "" {
		return fmt.Errorf("ledger: empty domain")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.file, "%s - %d\n", domain, productCount); err != nil {
		return fmt.Errorf("append ledger entry for %s: %w", domain, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger file: %w", err)
	}
	l.domains[domain] = productCount
	return nil
}

// Len returns the number of distinct processed domains.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.domains)
}

// Close closes the underlying file.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close ledger file: %w", err)
	}
	return nil
}
