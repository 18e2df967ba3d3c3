package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidDataURI = errors.New("illustration must be a base64 image data URI")

// IllustrationStore persists the reference image attached to a booking.
type IllustrationStore interface {
	// UploadIllustration stores a data URI under publicID and returns its public URL.
	UploadIllustration(ctx context.Context, dataURI, publicID string) (string, error)
	DeleteIllustration(ctx context.Context, publicID string) error
}

// ValidateDataURI accepts only base64 encoded image data URIs.
func ValidateDataURI(dataURI string) error {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || payload == "" {
		return ErrInvalidDataURI
	}
	if !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return ErrInvalidDataURI
	}
	return nil
}
