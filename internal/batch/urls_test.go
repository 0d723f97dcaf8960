package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeURLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadURLs(t *testing.T) {
	t.Parallel()

	path := writeURLFile(t, "# vendor sites\nhttps://a.com\n\n  https://b.com  \n# done\nhttps://c.com\n")

	urls, err := ReadURLs(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, urls)
}

func TestReadURLsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadURLs(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestStatusRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	rec, err := LoadStatus(dir, "example.com")
	require.NoError(t, err)
	require.Zero(t, rec.Attempts)

	rec = StatusRecord{URL: "https://example.com", Attempts: 2, Errors: []string{"timeout"}}
	require.NoError(t, SaveStatus(dir, "example.com", rec))

	loaded, err := LoadStatus(dir, "example.com")
	require.NoError(t, err)
	require.Equal(t, rec.URL, loaded.URL)
	require.Equal(t, 2, loaded.Attempts)
	require.Equal(t, []string{"timeout"}, loaded.Errors)

	require.NoError(t, ClearStatus(dir, "example.com"))
	rec, err = LoadStatus(dir, "example.com")
	require.NoError(t, err)
	require.Zero(t, rec.Attempts)

	// Clearing twice is fine.
	require.NoError(t, ClearStatus(dir, "example.com"))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	require.Equal(t, "00:00:00", formatDuration(0))
	require.Equal(t, "00:01:05", formatDuration(65e9))
	require.Equal(t, "02:30:00", formatDuration(9e12))
}
