package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultObjectName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example_com.json", ResultObjectName("example.com"))
	require.Equal(t, "shop_example_co_uk.json", ResultObjectName("shop.example.co.uk"))
}

func TestLocalProviderSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p, err := NewLocalProvider(dir)
	require.NoError(t, err)

	require.NoError(t, p.Save(context.Background(), "example_com.json", []byte(`{"ok":true}`)))

	data, err := os.ReadFile(filepath.Join(dir, "example_com.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
}

func TestLocalProviderCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "results")
	p, err := NewLocalProvider(dir)
	require.NoError(t, err)

	require.NoError(t, p.Save(context.Background(), "nested/a.json", []byte("{}")))
	_, err = os.Stat(filepath.Join(dir, "nested", "a.json"))
	require.NoError(t, err)
}

func TestLocalProviderRejectsEscapes(t *testing.T) {
	t.Parallel()

	p, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	require.Error(t, p.Save(context.Background(), "../escape.json", []byte("{}")))
	require.Error(t, p.Save(context.Background(), "", []byte("{}")))
}

func TestNewLocalProviderRejectsFilePath(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "a-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLocalProvider(file)
	require.Error(t, err)
}
