package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FolderExhibitions is the S3 prefix for exhibition objects.
const FolderExhibitions = "exhibitions"

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
	// PublicRead marks mirrored images public-read for buckets that allow ACLs.
	PublicRead bool
}

// S3 mirrors exhibition images into a bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY), falling back to the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ImagesBucket == "" {
		return nil, fmt.Errorf("s3: images bucket is not configured")
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("s3 client using static credentials", zap.String("region", cfg.Region), zap.String("bucket", cfg.ImagesBucket))
	} else {
		logger.Warn("s3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ExhibitionImageKey returns the object key of an exhibition's mirrored image:
// exhibitions/{exhibition_id}/image.
func ExhibitionImageKey(exhibitionID uuid.UUID) string {
	return path.Join(FolderExhibitions, exhibitionID.String(), "image")
}

// PublicObjectURL returns the unsigned URL of key in the images bucket.
func (s *S3) PublicObjectURL(key string) string {
	return PublicObjectURL(s.cfg.ImagesBucket, s.cfg.Region, key)
}

// ExhibitionImageURL returns the public URL of an exhibition's mirrored image.
func (s *S3) ExhibitionImageURL(exhibitionID uuid.UUID) string {
	return s.PublicObjectURL(ExhibitionImageKey(exhibitionID))
}

// PublicObjectURL builds a virtual-hosted style S3 URL.
func PublicObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// PutImage uploads an image to the images bucket under key.
func (s *S3) PutImage(ctx context.Context, key, contentType string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.ImagesBucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.cfg.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// DeleteImage removes key from the images bucket. Deleting a missing key succeeds.
func (s *S3) DeleteImage(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.ImagesBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
