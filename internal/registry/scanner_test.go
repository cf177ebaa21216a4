package registry

import (
	"os"
	"path/filepath"
	"testing"

	"promptrun/pkg/types"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func TestScanDir(t *testing.T) {
	d := t.TempDir()
	touch(t, filepath.Join(d, "tiny.gguf"))
	touch(t, filepath.Join(d, "BIG.GGUF"))
	touch(t, filepath.Join(d, "notes.txt"))
	if err := os.Mkdir(filepath.Join(d, "sub.gguf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	models, err := ScanDir(d)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d: %+v", len(models), models)
	}
	for _, m := range models {
		if m.Kind != types.KindText {
			t.Fatalf("scanned model should be text kind: %+v", m)
		}
		if !filepath.IsAbs(m.Path) {
			t.Fatalf("path should be absolute: %q", m.Path)
		}
	}
}

func TestScanDirMissing(t *testing.T) {
	if _, err := ScanDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
