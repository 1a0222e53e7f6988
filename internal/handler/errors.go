package handler

import (
	"errors"
	"log"
	"net/http"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
)

// writeServiceError maps domain errors to the JSON error envelope.
// Anything unrecognised is logged and reported as a 500 without its text.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png")
	case errors.Is(err, model.ErrAlreadyLiked), errors.Is(err, model.ErrAlreadyDisliked):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "Invalid username or password")
	case errors.Is(err, model.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, model.ErrRegionRestricted):
		httputil.WriteForbidden(w, "This post is not available in your state")
	case errors.Is(err, model.ErrNotPostOwner):
		httputil.WriteForbidden(w, "Only the author or a moderator can do this")
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrNullifierExists):
		httputil.WriteConflict(w, "This identity has already been registered")
	case errors.Is(err, model.ErrWalletExists):
		httputil.WriteConflict(w, "Wallet already registered")
	case errors.Is(err, model.ErrUsernameExists):
		httputil.WriteConflict(w, "Username already exists")
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrCreationFailed):
		httputil.WriteConflict(w, "Could not create resource, please retry")
	case errors.Is(err, model.ErrStoreUnavailable):
		log.Printf("[ERROR] %s: %v", op, err)
		httputil.WriteServiceUnavailable(w, "Service temporarily unavailable")
	case errors.Is(err, model.ErrPinningUnavailable):
		httputil.WriteServiceUnavailable(w, "Image uploads are not configured")
	default:
		log.Printf("[ERROR] %s: %v", op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
