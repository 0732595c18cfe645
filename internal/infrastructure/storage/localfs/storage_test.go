package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorageSaveAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := storage.Save(context.Background(), "metadata.json", strings.NewReader("[]")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Save(context.Background(), "metadata.json", strings.NewReader("[1]")); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	f, err := storage.Open(context.Background(), "metadata.json")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	raw, _ := io.ReadAll(f)
	if string(raw) != "[1]" {
		t.Fatalf("expected overwrite, got %q", raw)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}
}

func TestStorageRejectsEscapingKeys(t *testing.T) {
	storage, _ := New(t.TempDir())
	for _, key := range []string{"", "../x", "/etc/passwd"} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestImageDirResolveFallbackOrder(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	touch("Figure_1.1.jpg")
	touch("figure_Figure_1.1.png")
	touch("figure_Figure_2.1.png")
	touch("Figure_3.1.png")
	touch("Figure_3.1.jpg")

	images, err := NewImageDir(dir)
	if err != nil {
		t.Fatalf("NewImageDir() error = %v", err)
	}

	cases := map[string]string{
		"Figure 1.1": "Figure_1.1.jpg",
		"Figure 2.1": "figure_Figure_2.1.png",
		"Figure 3.1": "Figure_3.1.png",
	}
	for figure, want := range cases {
		path, ok := images.Resolve(figure)
		if !ok || path != filepath.Join(dir, want) {
			t.Fatalf("Resolve(%q) = %q %v, want %q", figure, path, ok, want)
		}
	}
	if _, ok := images.Resolve("Figure 9.9"); ok {
		t.Fatalf("expected unresolved figure")
	}
	if _, ok := images.Resolve("../Figure_3.1"); ok {
		t.Fatalf("path separators must not resolve")
	}
}

func TestNewImageDirMissingIsAllowed(t *testing.T) {
	images, err := NewImageDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("NewImageDir() error = %v", err)
	}
	if _, ok := images.Resolve("Figure 1.1"); ok {
		t.Fatalf("expected nothing to resolve")
	}
}

func TestNewImageDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(file, nil, 0o644)
	if _, err := NewImageDir(file); err == nil {
		t.Fatalf("expected error for non-directory")
	}
}
