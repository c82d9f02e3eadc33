package blob

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// S3 stores objects under "<folder>/<uuid>" and serves them from a public
// base URL. Keys carry no extension; the content type travels as object
// metadata.
type S3 struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewS3 initializes the S3 client
func NewS3(ctx context.Context, region, bucket, publicBase string, logger *zap.Logger) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	logger.Info("S3 client initialized", zap.String("bucket", bucket), zap.String("region", region))
	return &S3{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

// Upload uploads a file to S3 and returns its public URL
func (s *S3) Upload(ctx context.Context, in UploadInput) (string, error) {
	key := strings.Trim(in.Folder, "/") + "/" + uuid.NewString()

	meta := map[string]string{"resource-type": string(in.ResourceType)}
	if in.MaxDuration > 0 {
		// honored by the transcoding job that watches the bucket
		meta["max-duration-seconds"] = strconv.Itoa(int(in.MaxDuration.Seconds()))
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
		Metadata:    meta,
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %v", err)
	}
	return s.publicBase + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, publicID string, _ ResourceType) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete S3 object: %v", err)
	}
	return nil
}

func (s *S3) PublicID(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, s.publicBase+"/") {
		return "", false
	}
	return publicIDAfter(rawURL, s.publicBase+"/")
}
