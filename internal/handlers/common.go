package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/lehigh-university-libraries/shelfscan/internal/scanning"
	"github.com/lehigh-university-libraries/shelfscan/internal/storage"
)

// Scanner runs a scan over a named library folder
type Scanner interface {
	ScanFolder(ctx context.Context, folder string) (*models.ScanResult, error)
}

// FolderSource lists and reads the library folders
type FolderSource interface {
	Load(ctx context.Context, folder string) ([]models.SourceImage, error)
	Folders() ([]string, error)
}

// BookLookup fetches publication details for one title
type BookLookup interface {
	Lookup(ctx context.Context, title, author string) (*models.BookDetails, error)
}

type Handler struct {
	scanStore *storage.ScanStore
	scanner   Scanner
	folders   FolderSource
	books     BookLookup
}

func New(scanner Scanner, folders FolderSource, books BookLookup) *Handler {
	return &Handler{
		scanStore: storage.New(),
		scanner:   scanner,
		folders:   folders,
		books:     books,
	}
}

// folderRequest is the body of the folder-based POST endpoints
type folderRequest struct {
	Folder string `json:"folder"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	h.writeJSON(w, code, map[string]string{"message": message})
}

// readFolder decodes a {folder} body, answering the request itself on failure
func (h *Handler) readFolder(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return "", false
	}
	if req.Folder == "" {
		h.writeError(w, "Folder name is required", http.StatusBadRequest)
		return "", false
	}
	return req.Folder, true
}

// writeScanError maps pipeline and library errors onto status codes
func (h *Handler) writeScanError(w http.ResponseWriter, err error) {
	var parseErr *scanning.ParseError
	switch {
	case errors.Is(err, library.ErrInvalidFolder):
		h.writeError(w, "Invalid folder name", http.StatusBadRequest)
	case errors.Is(err, library.ErrFolderNotFound):
		h.writeError(w, "Folder not found", http.StatusNotFound)
	case errors.Is(err, library.ErrNoImages):
		h.writeError(w, "No images found in folder", http.StatusNotFound)
	case errors.Is(err, library.ErrFolderBusy):
		h.writeError(w, "Folder is already being scanned", http.StatusConflict)
	case errors.As(err, &parseErr):
		slog.Error("Failed to parse model response", "err", parseErr.Err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Failed to parse model response",
			"raw":     parseErr.Raw,
		})
	default:
		slog.Error("Scan failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
			"error":   err.Error(),
		})
	}
}
