package validation

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// Sentinel upload failures; handlers map them to 413/400 responses.
var (
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrInvalidMimeType    = errors.New("invalid MIME type")
	ErrTooManyAttachments = errors.New("too many attachments")
)

// ValidateAttachments checks uploaded files against the allowed MIME
// lists and probes image dimensions. Callers own closing the returned
// readers.
func ValidateAttachments(fileHeaders []*multipart.FileHeader, allowedImageMimes, allowedVideoMimes []string, maxCount int, maxFileSize int64) ([]*domain.PendingFile, error) {
	if len(fileHeaders) == 0 {
		return nil, nil
	}
	if maxCount > 0 && len(fileHeaders) > maxCount {
		return nil, fmt.Errorf("%w: at most %d files per message", ErrTooManyAttachments, maxCount)
	}

	allowedMimes := BuildAllowedMimeMap(allowedImageMimes, allowedVideoMimes)

	var pendingFiles []*domain.PendingFile

	for _, fileHeader := range fileHeaders {
		if maxFileSize > 0 && fileHeader.Size > maxFileSize {
			return nil, fmt.Errorf("%w: %s", ErrPayloadTooLarge, fileHeader.Filename)
		}

		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}

		mimeType, err := DetectMimeType(fileHeader)
		if err != nil {
			file.Close()
			return nil, err
		}

		if !allowedMimes[mimeType] {
			file.Close()
			return nil, fmt.Errorf("%w: %s (file: %s)", ErrInvalidMimeType, mimeType, fileHeader.Filename)
		}

		width, height := ExtractImageDimensions(file, mimeType)

		pendingFiles = append(pendingFiles, &domain.PendingFile{
			OriginalName: fileHeader.Filename,
			ByteSize:     fileHeader.Size,
			MimeType:     mimeType,
			ImageWidth:   width,
			ImageHeight:  height,
			Data:         file,
		})
	}

	return pendingFiles, nil
}

func BuildAllowedMimeMap(imageMimes, videoMimes []string) map[string]bool {
	allowedMimes := make(map[string]bool)
	for _, m := range imageMimes {
		allowedMimes[m] = true
	}
	for _, m := range videoMimes {
		allowedMimes[m] = true
	}
	return allowedMimes
}

func DetectMimeType(fileHeader *multipart.FileHeader) (string, error) {
	mimeType := fileHeader.Header.Get("Content-Type")

	// If no Content-Type or it's generic, detect from extension
	if mimeType == "" || mimeType == "application/octet-stream" {
		ext := filepath.Ext(fileHeader.Filename)
		detectedType := mime.TypeByExtension(ext)
		if detectedType != "" {
			mimeType = detectedType
		}
	}

	if mimeType == "" {
		return "", fmt.Errorf("could not detect MIME type for file: %s", fileHeader.Filename)
	}

	return mimeType, nil
}

func ExtractImageDimensions(file multipart.File, mimeType string) (*int, *int) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, nil
	}

	img, _, err := image.DecodeConfig(file)
	if err != nil {
		// Not decodable is not fatal; dimensions stay unknown.
		file.Seek(0, 0)
		return nil, nil
	}

	// Reset file pointer after reading
	file.Seek(0, 0)

	width, height := img.Width, img.Height
	return &width, &height
}
