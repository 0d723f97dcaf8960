package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePromptFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPromptStoreDefaults(t *testing.T) {
	store := NewPromptStore("")

	prompt := store.Get(PromptProduct, "https://example.com")
	require.NotEmpty(t, prompt)
	require.Contains(t, prompt, "https://example.com")
	require.NotContains(t, prompt, "{url}")
}

func TestPromptStoreParsesSections(t *testing.T) {
	path := writePromptFile(t, `# extraction prompts
[PRODUCT_EXTRACTION]
Extract the product at {url}.

[COMPANY_EXTRACTION]
# inline comment
Describe the company behind {url}.
`)

	store := NewPromptStore(path)

	require.Equal(t, "Extract the product at https://a.test.", store.Get(PromptProduct, "https://a.test"))
	require.Equal(t, "Describe the company behind https://a.test.", store.Get(PromptCompany, "https://a.test"))
}

func TestPromptStoreFallsBackForMissingKey(t *testing.T) {
	path := writePromptFile(t, `[PRODUCT_EXTRACTION]
Custom product prompt for {url}.
`)

	store := NewPromptStore(path)

	// Keys absent from the file come from the built-in defaults.
	want := strings.ReplaceAll(defaultPrompts[PromptClassify], "{url}", "https://b.test")
	require.Equal(t, want, store.Get(PromptClassify, "https://b.test"))
	require.Equal(t, "Custom product prompt for https://b.test.", store.Get(PromptProduct, "https://b.test"))
}

func TestPromptStoreMissingFileUsesDefaults(t *testing.T) {
	store := NewPromptStore(filepath.Join(t.TempDir(), "nope.txt"))

	want := strings.ReplaceAll(defaultPrompts[PromptDiscoverURLs], "{url}", "https://c.test")
	require.Equal(t, want, store.Get(PromptDiscoverURLs, "https://c.test"))
}

func TestParsePromptsIgnoresPreamble(t *testing.T) {
	parsed := parsePrompts("stray text before the first header\n[SYSTEM_INSTRUCTION]\nBe terse.\n")

	require.Len(t, parsed, 1)
	require.Equal(t, "Be terse.", parsed[PromptInstruction])
}

func TestTruncateHTML(t *testing.T) {
	require.Equal(t, "abc", truncateHTML("abc", 10))
	require.Equal(t, "abcde...", truncateHTML("abcdefgh", 5))
	require.Equal(t, "abc", truncateHTML("abc", 0))
}
