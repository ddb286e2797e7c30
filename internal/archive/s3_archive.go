// Package archive implements the cold-storage snapshot archive (C13):
// an S3-compatible object store behind the hot snapshot cache, used
// when a cache entry has been evicted or never warmed.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

// LoadConfig resolves an aws.Config for region, using static
// credentials when both are non-empty and falling back to the
// default provider chain (environment, shared config, instance role)
// otherwise.
func LoadConfig(ctx context.Context, region, accessKeyID, secretAccessKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// SnapshotKey formats the archive key for a portfolio's snapshot taken
// at takenAt: "portfolios/{id}/{timestamp}.msgpack".
func SnapshotKey(portfolioID string, takenAt time.Time) string {
	return fmt.Sprintf("portfolios/%s/%d.msgpack", portfolioID, takenAt.UTC().Unix())
}

var _ domain.SnapshotArchive = (*S3Archive)(nil)

// S3Archive uploads and downloads snapshot payloads to a single S3
// bucket, keyed verbatim by the caller (see portfolio snapshot key
// format: "portfolios/{id}/{timestamp}.msgpack").
type S3Archive struct {
	bucket     string
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	log        zerolog.Logger
}

// New builds an S3Archive over an already-resolved aws.Config (see
// config.LoadDefaultConfig for the usual construction path).
func New(cfg aws.Config, bucket string, log zerolog.Logger) *S3Archive {
	client := s3.NewFromConfig(cfg)
	return &S3Archive{
		bucket:     bucket,
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		log:        log.With().Str("component", "archive").Str("bucket", bucket).Logger(),
	}
}

// Upload pushes payload to key, implementing domain.SnapshotArchive.
func (a *S3Archive) Upload(key string, payload []byte) error {
	ctx := context.Background()
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("upload archive object %s: %w", key, err)
	}
	a.log.Info().Str("key", key).Int("bytes", len(payload)).Msg("archived snapshot")
	return nil
}

// Download retrieves the payload stored at key, implementing
// domain.SnapshotArchive.
func (a *S3Archive) Download(key string) ([]byte, error) {
	ctx := context.Background()
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := a.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download archive object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}
