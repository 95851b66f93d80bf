package handlers

import (
	"log/slog"
	"net/http"
)

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scan-shelf", h.HandleScanShelf)
	mux.HandleFunc("/api/scans", h.HandleScans)
	mux.HandleFunc("/api/scans/", h.HandleScanDetail)
	mux.HandleFunc("/api/extract-gps", h.HandleExtractGPS)
	mux.HandleFunc("/api/enrich-book", h.HandleEnrichBook)
	mux.HandleFunc("/api/folders", h.HandleFolders)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}
