package blob

import (
	"context"
	"fmt"

	"github.com/raushankrgupta/dreamsoul/config"
	"go.uber.org/zap"
)

// FromConfig builds the store named by BLOB_PROVIDER.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.BlobProvider {
	case "cloudinary":
		c, err := NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "s3":
		s, err := NewS3(ctx, cfg.AWSRegion, cfg.AWSBucketName, cfg.AWSPublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemory(""), nil
	}
	return nil, fmt.Errorf("unknown blob provider %q", cfg.BlobProvider)
}
