package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func drain(t *testing.T, ch <-chan Result) []Result {
	t.Helper()
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestScanFindsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "hello")
	writeFile(t, dir, "b.txt", "ignored")

	ch, err := Scan(context.Background(), Options{RootDir: dir, Patterns: []string{"*.md"}})
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, "a.md", results[0].File.Path)
}

func TestScanExcludePatternsWinOverPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "hello")
	writeFile(t, dir, "vendor/b.md", "excluded")

	ch, err := Scan(context.Background(), Options{RootDir: dir, Patterns: []string{"*.md", "vendor/*.md"}, ExcludePatterns: []string{"vendor/*.md"}})
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 1)
	require.Equal(t, "a.md", results[0].File.Path)
}

func TestScanWithNoPatternsMatchesEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "hello")
	writeFile(t, dir, "b.txt", "world")

	ch, err := Scan(context.Background(), Options{RootDir: dir})
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 2)
}

func TestScanMissingRootErrors(t *testing.T) {
	_, err := Scan(context.Background(), Options{RootDir: filepath.Join(t.TempDir(), "nonexistent")})
	require.Error(t, err)
}

func TestScanRequiresRootDir(t *testing.T) {
	_, err := Scan(context.Background(), Options{})
	require.Error(t, err)
}

func TestScanDetectsContentType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "plain text content")

	ch, err := Scan(context.Background(), Options{RootDir: dir})
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 1)
	require.Contains(t, results[0].File.ContentType, "text/plain")
}

func TestScanRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, dir, filepath.Join("d", string(rune('a'+i%26))+".md"), "content")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	ch, err := Scan(ctx, Options{RootDir: dir})
	require.NoError(t, err)

	// must not hang regardless of how many results make it through before cancellation
	require.Eventually(t, func() bool {
		drain(t, ch)
		return true
	}, 5*time.Second, 10*time.Millisecond)
}
