package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptrun/pkg/types"
)

// ScanDir walks a directory for *.gguf files and builds text model specs
// from the filenames. ID is the full filename (including extension); Path is
// the absolute file path. Used by list-models and ad-hoc runs against local
// checkpoints.
func ScanDir(dir string) ([]types.ModelSpec, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelSpec
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.ModelSpec{
			ID:   name,
			Kind: types.KindText,
			Path: filepath.Join(abs, name),
		})
	}
	return models, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
