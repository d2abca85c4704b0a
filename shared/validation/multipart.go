package validation

import (
	"fmt"
	"net/http"
)

// ValidateAndParseMultipart bounds the request body with MaxBytesReader
// and parses the multipart form. Exceeding the bound stops the read;
// the uploader sees the request fail rather than the server buffering
// an arbitrarily large body.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return fmt.Errorf("%w: failed to parse multipart form", ErrPayloadTooLarge)
	}

	return nil
}

// CalculateMaxRequestSize returns the maximum request size including an
// overhead buffer for form fields and multipart framing.
func CalculateMaxRequestSize(maxAttachmentSize int64, bufferSize int64) int64 {
	return maxAttachmentSize + bufferSize
}

// FormatSizeMB converts bytes to megabytes for user-facing messages.
func FormatSizeMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
