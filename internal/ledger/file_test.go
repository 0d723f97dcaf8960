package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainNormalization(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.Example.COM/products":  "example.com",
		"http://example.com":                "example.com",
		"example.com":                       "example.com",
		"www.example.com/path":              "example.com",
		"https://shop.example.co.uk/?q=1":   "shop.example.co.uk",
		"  https://www.example.org/page  ":  "example.org",
		"":                                  "",
	}
	for input, want := range cases {
		require.Equal(t, want, Domain(input), "input %q", input)
	}
}

func TestFileLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed.txt")
	l, err := OpenFile(path)
	require.NoError(t, err)

	ctx := context.Background()

	ok, err := l.Contains(ctx, "example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, l.Record(ctx, "example.com", 12))
	require.NoError(t, l.Record(ctx, "other.org", 0))

	ok, err = l.Contains(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, l.Len())
	require.NoError(t, l.Close())

	// A fresh open reads what the previous instance wrote.
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, err = reopened.Contains(ctx, "other.org")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "example.com - 12\n")
	require.Contains(t, string(data), "other.org - 0\n")
}

func TestFileLedgerSkipsCommentsAndMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed.txt")
	content := "# processed domains\n\nexample.com - 3\nbare-domain.net\nbroken.io - notanumber\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := OpenFile(path)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	for _, domain := range []string{"example.com", "bare-domain.net", "broken.io"} {
		ok, err := l.Contains(ctx, domain)
		require.NoError(t, err)
		require.True(t, ok, domain)
	}
	require.Equal(t, 3, l.Len())
}

func TestFileLedgerRejectsEmptyDomain(t *testing.T) {
	t.Parallel()

	l, err := OpenFile(filepath.Join(t.TempDir(), "processed.txt"))
	require.NoError(t, err)
	defer l.Close()

	require.Error(t, l.Record(context.Background(), "", 1))
}
