package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorechart/internal/media"
)

type MediaHandler struct {
	store  *media.Store
	logger *slog.Logger
}

func NewMediaHandler(store *media.Store, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger}
}

// Upload handles POST /api/media. The multipart "file" field is stored and
// the returned attachment can be sent along with a comment or strike.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > media.MaxUploadBytes {
		writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	att, err := h.store.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	switch {
	case errors.Is(err, media.ErrUnsupported):
		writeMessage(w, http.StatusUnsupportedMediaType, "only images and videos can be attached")
		return
	case errors.Is(err, media.ErrDisabled):
		writeMessage(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	case err != nil:
		h.logger.Error("upload media", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to upload file")
		return
	}

	writeJSON(w, http.StatusCreated, att)
}

// Get handles GET /api/media/{ref...}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if !strings.HasPrefix(ref, "attachments/") || strings.Contains(ref, "..") {
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}

	body, contentType, err := h.store.Open(r.Context(), ref)
	if errors.Is(err, media.ErrDisabled) {
		writeMessage(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}
	if err != nil {
		h.logger.Warn("open media", "ref", ref, "error", err)
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	io.Copy(w, body)
}
