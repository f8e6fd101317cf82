package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest_DerivesDomainFromPath(t *testing.T) {
	path := writeManifest(t, `
# comment
sketch/dog/001.jpg 0
sketch/cat/004.jpg 1

real/dog/101.jpg 0
`)

	ds, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ds.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", ds.Len())
	}
	if ds.Target(1) != 1 {
		t.Errorf("expected label 1, got %d", ds.Target(1))
	}
	if ds.Domain(0) != "sketch" || ds.Domain(2) != "real" {
		t.Errorf("unexpected domains: %q, %q", ds.Domain(0), ds.Domain(2))
	}
	if ds.Path(2) != "real/dog/101.jpg" {
		t.Errorf("unexpected path: %q", ds.Path(2))
	}
}

func TestLoadManifest_ExplicitDomainColumn(t *testing.T) {
	path := writeManifest(t, "img_0001.png 4 quickdraw\nimg_0002.png 4 quickdraw\n")

	ds, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Domain(0) != "quickdraw" {
		t.Errorf("expected quickdraw, got %q", ds.Domain(0))
	}
}

func TestLoadManifest_RejectsBadLabel(t *testing.T) {
	path := writeManifest(t, "sketch/dog/001.jpg dog\n")

	if _, err := LoadManifest(path); err == nil {
		t.Error("expected error for non-integer label")
	}
}

func TestLoadManifest_RejectsShortLine(t *testing.T) {
	path := writeManifest(t, "sketch/dog/001.jpg\n")

	if _, err := LoadManifest(path); err == nil {
		t.Error("expected error for line without label")
	}
}

func TestLoadManifest_RejectsEmpty(t *testing.T) {
	path := writeManifest(t, "# nothing here\n")

	if _, err := LoadManifest(path); err == nil {
		t.Error("expected error for manifest without samples")
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
