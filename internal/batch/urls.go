package batch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadURLs loads the URL list for a run. One URL per line; blank lines and
// lines starting with # are ignored.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file %s: %w", path, err)
	}
	return urls, nil
}
