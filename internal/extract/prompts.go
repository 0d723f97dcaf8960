package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Prompt keys looked up in the prompt file.
const (
	PromptDiscoverURLs = "EXTRACT_PRODUCT_URLS"
	PromptProduct      = "PRODUCT_EXTRACTION"
	PromptCompany      = "COMPANY_EXTRACTION"
	PromptClassify     = "SITE_CLASSIFICATION"
	PromptInstruction  = "SYSTEM_INSTRUCTION"
)

// defaultPrompts back every key so the agent works without a prompt file.
var defaultPrompts = map[string]string{
	PromptDiscoverURLs: "Extract product page URLs from the website at {url}. " +
		"Return every distinct product detail page URL found in the supplied HTML " +
		"as JSON with a single key product_urls holding an array of absolute URLs, with no additional text.",
	PromptProduct: "Extract all product information from the product page at {url} using the supplied HTML " +
		"and return it as JSON with fields: url, name, description, price, currency, images, specifications, " +
		"availability, brand, category.",
	PromptCompany: "Extract company information from the supplied HTML and return it as JSON " +
		"with fields: name, description, website, email, phone, address, country, categories, is_producer.",
	PromptClassify: "Classify the website at {url} from the supplied HTML. " +
		"Return JSON with a single key kind whose value is either \"product\" or \"company\".",
	PromptInstruction: "You are a precise data extraction service. Answer only with JSON matching the requested schema.",
}

var promptKeyRe = regexp.MustCompile(`(?m)^\[([A-Z0-9_]+)\]\s*$`)

// PromptStore reads keyed prompts from a plain text file. The format is
// [KEY] headers followed by the prompt body; # lines are comments. Missing
// files and missing keys fall back to built-in defaults.
type PromptStore struct {
	path string

	mu      sync.Mutex
	mtime   int64
	prompts map[string]string
}

// NewPromptStore creates a store for the given file path. An empty path
// serves defaults only.
func NewPromptStore(path string) *PromptStore {
	return &PromptStore{path: path, prompts: map[string]string{}}
}

// Get returns the prompt for key with {url} replaced, falling back to the
// built-in default when the file lacks the key.
func (s *PromptStore) Get(key, url string) string {
	prompt := s.lookup(key)
	if prompt == "" {
		prompt = defaultPrompts[key]
	}
	return strings.ReplaceAll(prompt, "{url}", url)
}

func (s *PromptStore) lookup(key string) string {
	if s == nil || s.path == "" {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(); err != nil {
		return ""
	}
	return s.prompts[key]
}

// reload re-parses the file when its mtime changed since the last read.
func (s *PromptStore) reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat prompts file: %w", err)
	}
	mtime := info.ModTime().UnixNano()
	if mtime == s.mtime && len(s.prompts) > 0 {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read prompts file: %w", err)
	}
	s.mtime = mtime
	s.prompts = parsePrompts(string(data))
	return nil
}

func parsePrompts(content string) map[string]string {
	out := make(map[string]string)
	matches := promptKeyRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		key := content[m[2]:m[3]]
		start := m[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out[key] = stripComments(content[start:end])
	}
	return out
}

func stripComments(body string) string {
	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
