package storage

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// CloudinaryStore uploads illustrations into one Cloudinary folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// NewCloudinaryStore creates a new CloudinaryStore instance.
func NewCloudinaryStore(cld *cloudinary.Cloudinary, folder string, logger *zap.Logger) *CloudinaryStore {
	return &CloudinaryStore{cld: cld, folder: folder, logger: logger}
}

// UploadIllustration overwrites any earlier upload with the same public ID,
// so a retried submission never leaves a duplicate asset behind.
func (s *CloudinaryStore) UploadIllustration(ctx context.Context, dataURI, publicID string) (string, error) {
	if err := ValidateDataURI(dataURI); err != nil {
		return "", err
	}
	params := uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	}
	result, err := s.cld.Upload.Upload(ctx, dataURI, params)
	if err != nil {
		return "", fmt.Errorf("CloudinaryStore: failed to upload illustration: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("CloudinaryStore: upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("CloudinaryStore: no URL returned")
	}
	s.logger.Debug("Illustration uploaded", zap.String("publicID", result.PublicID))
	return result.SecureURL, nil
}

func (s *CloudinaryStore) DeleteIllustration(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: s.folder + "/" + publicID})
	if err != nil {
		return fmt.Errorf("CloudinaryStore: failed to delete illustration: %w", err)
	}
	return nil
}
