package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

func (h *Handler) HandleScanShelf(w http.ResponseWriter, r *http.Request) {
	folder, ok := h.readFolder(w, r)
	if !ok {
		return
	}

	result, err := h.scanner.ScanFolder(r.Context(), folder)
	if err != nil {
		h.writeScanError(w, err)
		return
	}

	h.scanStore.Set(result)
	slog.Info("Scan stored", "scan_id", result.ScanID, "folder", folder, "books", len(result.Books))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleScans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.scanStore.List())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleScanDetail(w http.ResponseWriter, r *http.Request) {
	scanID := strings.TrimPrefix(r.URL.Path, "/api/scans/")

	scan, exists := h.scanStore.Get(scanID)
	if !exists {
		h.writeError(w, "Scan not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, scan)
	case http.MethodDelete:
		h.scanStore.Delete(scanID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
