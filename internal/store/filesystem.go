package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"xray-annotator/internal/annotation"
)

// Filesystem stores each study as a pretty-printed JSON file under
// <root>/<patient-id>/<image-name>.json.
type Filesystem struct {
	mu   sync.Mutex
	root string
}

// NewFilesystem creates the store root if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("store: filesystem root not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &Filesystem{root: root}, nil
}

// safeName rejects key components that would escape the store root.
func safeName(s string) error {
	if s != filepath.Base(s) || s == "." || s == ".." {
		return fmt.Errorf("store: unsafe name %q", s)
	}
	return nil
}

func (f *Filesystem) path(key Key) (string, error) {
	if err := key.validate(); err != nil {
		return "", err
	}
	if err := safeName(key.PatientID); err != nil {
		return "", err
	}
	if err := safeName(key.ImageName); err != nil {
		return "", err
	}
	return filepath.Join(f.root, key.PatientID, key.ImageName+".json"), nil
}

func (f *Filesystem) Save(_ context.Context, key Key, col []*annotation.Annotation) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(col) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: remove %s: %w", key, err)
		}
		return nil
	}

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create patient dir: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated study behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Load(_ context.Context, key Key) ([]*annotation.Annotation, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []*annotation.Annotation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	var col []*annotation.Annotation
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return col, nil
}

func (f *Filesystem) Images(_ context.Context, patientID string) ([]string, error) {
	if err := safeName(patientID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(f.root, patientID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", patientID, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (f *Filesystem) Delete(_ context.Context, key Key) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Close() error { return nil }
