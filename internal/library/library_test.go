package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()

	office := filepath.Join(root, "Espana Ct Office")
	if err := os.MkdirAll(filepath.Join(office, "nested"), 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	for name, contents := range map[string]string{
		"c.heic":    "heic",
		"a.jpg":     "jpg",
		"B.PNG":     "png",
		"notes.txt": "text",
		"d.webp":    "webp",
	} {
		if err := os.WriteFile(filepath.Join(office, name), []byte(contents), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	empty := filepath.Join(root, "Santa Cruz Cottage")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(empty, "readme.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write readme: %v", err)
	}

	lib := New(root)
	lib.LockDir = filepath.Join(root, ".locks")
	return lib
}

func TestLoadFiltersAndOrders(t *testing.T) {
	lib := setupLibrary(t)

	sources, err := lib.Load(context.Background(), "Espana Ct Office")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expected := []string{"B.PNG", "a.jpg", "c.heic", "d.webp"}
	if len(sources) != len(expected) {
		t.Fatalf("Expected %d images, got %d", len(expected), len(sources))
	}
	for i, name := range expected {
		if sources[i].Filename != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, sources[i].Filename)
		}
	}
	if sources[0].Format != ".png" {
		t.Errorf("Expected lower-cased format .png, got %s", sources[0].Format)
	}
	if string(sources[2].Data) != "heic" {
		t.Errorf("Unexpected data for c.heic: %q", sources[2].Data)
	}
}

func TestLoadErrors(t *testing.T) {
	lib := setupLibrary(t)

	tests := []struct {
		name     string
		folder   string
		expected error
	}{
		{"missing folder", "Garage", ErrFolderNotFound},
		{"no recognized images", "Santa Cruz Cottage", ErrNoImages},
		{"traversal", "../etc", ErrInvalidFolder},
		{"nested traversal", "Espana Ct Office/../../etc", ErrInvalidFolder},
		{"absolute path", "/etc", ErrInvalidFolder},
		{"empty name", "  ", ErrInvalidFolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Load(context.Background(), tt.folder)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestLoadTrimsFolderName(t *testing.T) {
	lib := setupLibrary(t)

	sources, err := lib.Load(context.Background(), "  Espana Ct Office ")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(sources) != 4 {
		t.Fatalf("Expected 4 images, got %d", len(sources))
	}
	for _, src := range sources {
		if len(src.Data) == 0 {
			t.Errorf("Expected %s to be read, got empty data", src.Filename)
		}
	}
}

func TestLoadAllowsDotsInName(t *testing.T) {
	lib := setupLibrary(t)

	dir := filepath.Join(lib.Root, "Vol..2")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpg"), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	sources, err := lib.Load(context.Background(), "Vol..2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(sources) != 1 || string(sources[0].Data) != "jpg" {
		t.Errorf("Unexpected sources: %+v", sources)
	}
}

func TestFolders(t *testing.T) {
	lib := setupLibrary(t)

	folders, err := lib.Folders()
	if err != nil {
		t.Fatalf("Folders failed: %v", err)
	}
	if len(folders) != 2 || folders[0] != "Espana Ct Office" || folders[1] != "Santa Cruz Cottage" {
		t.Errorf("Unexpected folders: %v", folders)
	}
}

func TestLockExcludesSecondScan(t *testing.T) {
	lib := setupLibrary(t)

	unlock, err := lib.Lock(context.Background(), "Espana Ct Office")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := lib.Lock(ctx, "Espana Ct Office"); !errors.Is(err, ErrFolderBusy) {
		t.Errorf("Expected ErrFolderBusy while the lock is held, got %v", err)
	}

	unlock()

	unlockAgain, err := lib.Lock(context.Background(), "Espana Ct Office")
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	unlockAgain()
}
