package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/shelfscan/internal/enrichment"
	"github.com/lehigh-university-libraries/shelfscan/internal/exifgps"
)

func (h *Handler) HandleFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	folders, err := h.folders.Folders()
	if err != nil {
		h.writeError(w, "Unable to list folders: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (h *Handler) HandleExtractGPS(w http.ResponseWriter, r *http.Request) {
	folder, ok := h.readFolder(w, r)
	if !ok {
		return
	}

	sources, err := h.folders.Load(r.Context(), folder)
	if err != nil {
		h.writeScanError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"folder":     folder,
		"imageCount": len(sources),
		"gpsData":    exifgps.ExtractFolder(sources),
	})
}

func (h *Handler) HandleEnrichBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		h.writeError(w, "Title is required", http.StatusBadRequest)
		return
	}

	details, err := h.books.Lookup(r.Context(), req.Title, req.Author)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, enrichment.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.writeJSON(w, status, map[string]any{"error": true, "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, details)
}
