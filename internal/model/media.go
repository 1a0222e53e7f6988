package model

import "errors"

const (
	MaxImageSizeBytes = 10 * 1024 * 1024
	MaxImageDimension = 1080
	ImageJPEGQuality  = 85
	ImageFolder       = "posts"
	ImageCacheControl = "public, max-age=31536000, immutable"
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidImageType   = errors.New("invalid image type")
	ErrPinningUnavailable = errors.New("image pinning not configured")
)

// PinnedImage is a content-addressed image stored with the pinning service.
// Ref is what posts persist; URL is a gateway link for browsers.
type PinnedImage struct {
	CID string `json:"cid"`
	Ref string `json:"ref"`
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
