package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider writes results to a directory on the local filesystem.
type LocalProvider struct {
	baseDir string
}

// NewLocalProvider ensures the output directory exists and is writable.
func NewLocalProvider(baseDir string) (*LocalProvider, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	info, err := os.Stat(baseDir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("output path %s is not a directory", baseDir)
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create output directory: %w", mkErr)
		}
	default:
		return nil, fmt.Errorf("stat output directory: %w", err)
	}

	return &LocalProvider{baseDir: baseDir}, nil
}

// Save writes data to baseDir/objectName, creating parent directories as
// needed. Object names resolving outside the base directory are rejected.
func (p *LocalProvider) Save(_ context.Context, objectName string, data []byte) error {
	if strings.TrimSpace(objectName) == "" {
		return fmt.Errorf("object name is required")
	}

	fullPath := filepath.Join(p.baseDir, objectName)
	cleanBase := filepath.Clean(p.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("object name %q escapes output directory", objectName)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write result file %s: %w", fullPath, err)
	}
	return nil
}
