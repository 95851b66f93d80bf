package library

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/lehigh-university-libraries/shelfscan/internal/images"
	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrNoImages       = errors.New("no images found in folder")
	ErrInvalidFolder  = errors.New("invalid folder name")
	ErrFolderBusy     = errors.New("folder is being scanned")
)

// Library resolves shelf folder names under a root directory
type Library struct {
	Root    string
	LockDir string
}

// New creates a library rooted at root. Lock files go under the OS temp dir.
func New(root string) *Library {
	return &Library{
		Root:    root,
		LockDir: filepath.Join(os.TempDir(), "shelfscan-locks"),
	}
}

// Resolve returns the directory for folder, rejecting names that escape the root
func (l *Library) Resolve(folder string) (string, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" || !filepath.IsLocal(folder) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}

	dir := filepath.Join(l.Root, folder)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
		}
		return "", fmt.Errorf("failed to stat folder: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	return dir, nil
}

// ImageNames lists the recognized image files of folder in enumeration (name) order
func (l *Library) ImageNames(folder string) ([]string, error) {
	_, names, err := l.list(folder)
	return names, err
}

func (l *Library) list(folder string) (string, []string, error) {
	dir, err := l.Resolve(folder)
	if err != nil {
		return "", nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !images.IsSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	if len(names) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoImages, folder)
	}

	return dir, names, nil
}

// Load reads every recognized image in folder in enumeration order. A file that
// cannot be read is kept with empty data so it still counts as discovered and
// fails normalization like any other broken image.
func (l *Library) Load(ctx context.Context, folder string) ([]models.SourceImage, error) {
	dir, names, err := l.list(folder)
	if err != nil {
		return nil, err
	}

	sources := make([]models.SourceImage, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("Unable to read image", "folder", folder, "file", name, "err", err)
			data = nil
		}

		sources = append(sources, models.SourceImage{
			Filename: name,
			Data:     data,
			Format:   strings.ToLower(filepath.Ext(name)),
		})
	}

	return sources, nil
}

// Folders lists the shelf locations available under the root
func (l *Library) Folders() ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read library root: %w", err)
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// Lock waits until no other shelfscan process is scanning folder. If ctx ends
// first the error wraps ErrFolderBusy.
// The returned func releases the lock.
func (l *Library) Lock(ctx context.Context, folder string) (func(), error) {
	dir, err := l.Resolve(folder)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.LockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum([]byte(abs))
	lock := flock.New(filepath.Join(l.LockDir, hex.EncodeToString(sum[:])+".lock"))

	ok, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFolderBusy, folder, err)
		}
		return nil, fmt.Errorf("acquire folder lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFolderBusy, folder)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release folder lock", "folder", folder, "err", err)
		}
	}, nil
}
