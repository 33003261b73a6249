// Package cloud mirrors completed run records to S3-compatible object
// storage. Upload is best-effort: a beat never fails because the bucket is
// unreachable.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/config"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// Uploader pushes run records to a bucket as JSON objects.
type Uploader struct {
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// New builds an uploader from the S3 settings in cfg. Credentials fall back
// to the default provider chain when not set explicitly.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		log:      log.With().Str("service", "cloud").Logger(),
	}, nil
}

// UploadRun stores one run record under beats/beat_<n>_<date>.json.
func (u *Uploader) UploadRun(ctx context.Context, rec *domain.RunRecord) error {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	date := rec.TimestampUTC
	if len(date) >= 10 {
		date = date[:10]
	}
	key := fmt.Sprintf("beats/beat_%d_%s.json", rec.BeatNumber, date)

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload run record: %w", err)
	}

	u.log.Info().Str("key", key).Int("bytes", len(body)).Msg("Run record uploaded")
	return nil
}
