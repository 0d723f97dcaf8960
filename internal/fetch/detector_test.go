package fetch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectorBodyBelowThreshold(t *testing.T) {
	d := NewHeuristicDetector(100, nil, nil)
	require.True(t, d.NeedsJS(context.Background(), Page{Body: []byte("<html></html>")}))
	require.False(t, d.NeedsJS(context.Background(), Page{Body: []byte(strings.Repeat("x", 200))}))
}

func TestDetectorKeywords(t *testing.T) {
	d := NewHeuristicDetector(0, nil, []string{"__NEXT_DATA__", "data-reactroot"})
	body := []byte(`<html><script id="__next_data__">{}</script></html>`)
	require.True(t, d.NeedsJS(context.Background(), Page{Body: body}))
	require.False(t, d.NeedsJS(context.Background(), Page{Body: []byte("<html><body>static</body></html>")}))
}

func TestDetectorMissingSelector(t *testing.T) {
	d := NewHeuristicDetector(0, []string{".content"}, nil)
	require.True(t, d.NeedsJS(context.Background(), Page{Body: []byte("<html><body><div>x</div></body></html>")}))
	require.False(t, d.NeedsJS(context.Background(), Page{Body: []byte(`<html><body><div class="content">x</div></body></html>`)}))
}

func TestDetectorNilIsPermissive(t *testing.T) {
	var d *HeuristicDetector
	require.False(t, d.NeedsJS(context.Background(), Page{}))
}
