package imagefind

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meshbatch/internal/logging"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func tree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range []string{"b.JPG", "a.png", "notes.txt", "clip.mov", "sub/c.tif", "sub/deep/d.exr"} {
		touch(t, filepath.Join(dir, p))
	}
	return dir
}

func TestFind_NonRecursive(t *testing.T) {
	dir := tree(t)
	got := Find([]string{dir}, false)
	want := FilesByType{
		Images: []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.JPG")},
		Videos: []string{filepath.Join(dir, "clip.mov")},
		Other:  []string{filepath.Join(dir, "notes.txt")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_Recursive(t *testing.T) {
	dir := tree(t)
	got := Finder{}.Find([]string{dir}, true)
	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.JPG"),
		filepath.Join(dir, "sub", "c.tif"),
		filepath.Join(dir, "sub", "deep", "d.exr"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_KeepsArgumentOrderAndFiles(t *testing.T) {
	dir := tree(t)
	single := filepath.Join(dir, "sub", "c.tif")
	got := Finder{}.Find([]string{single, filepath.Join(dir, "missing"), dir}, false)
	want := []string{single, filepath.Join(dir, "a.png"), filepath.Join(dir, "b.JPG")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_EmptyFolder(t *testing.T) {
	if got := (Finder{}).Find([]string{t.TempDir()}, true); len(got) != 0 {
		t.Errorf("Find on empty folder = %v, want none", got)
	}
}

func TestFinder_LogsSkippedVideos(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(slog.LevelInfo, "text", &buf)
	defer logging.Init(slog.LevelInfo, "text")

	dir := tree(t)
	got := Finder{}.Find([]string{dir}, false)
	if len(got) != 2 {
		t.Errorf("Find = %v, want the two images", got)
	}
	if !strings.Contains(buf.String(), "videos are not supported") || !strings.Contains(buf.String(), "count=1") {
		t.Errorf("expected a skipped-video warning, got:\n%s", buf.String())
	}
}

func TestIsImage(t *testing.T) {
	for path, want := range map[string]bool{"a.JPG": true, "b.webp": true, "c.mov": false, "d": false} {
		if got := IsImage(path); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", path, got, want)
		}
	}
}
