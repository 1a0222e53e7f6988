package handler

import (
	"errors"
	"net/http"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
	"ghostpic/internal/transport/http/middleware"
)

type MediaHandler struct {
	images ImagePinner
}

func NewMediaHandler(images ImagePinner) *MediaHandler {
	return &MediaHandler{images: images}
}

// Upload handles POST /api/media/images
// Pins a jpeg/png and returns its ipfs:// reference for a later post.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetActorFromContext(r.Context()) == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	maxFormSize := int64(model.MaxImageSizeBytes) + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &tooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	pinned, err := h.images.PinImage(r.Context(), file, header)
	if err != nil {
		writeServiceError(w, "upload image", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, pinned)
}
