package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// fileLoader reads feeds from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file-based feed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "feed-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) ([]FeedItem, error) {
	l.logger.Info().Str("file", path).Msg("loading catalogue feed")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open feed")
		return nil, fmt.Errorf("failed to open feed %s: %w", path, err)
	}
	defer file.Close()

	items, err := decodeFeed(ctx, file, isGzip(path))
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to decode feed")
		return nil, fmt.Errorf("failed to decode feed %s: %w", path, err)
	}

	l.logger.Info().Str("file", path).Int("items", len(items)).Msg("catalogue feed loaded")
	return items, nil
}

// objectGetter is the part of the S3 client used by s3Loader.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader reads feeds from an S3 bucket.
type s3Loader struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates an S3-based feed loader using the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	logger = logger.With().Str("component", "s3-feed-loader").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().Str("bucket", bucket).Str("region", region).Msg("S3 loader initialised")

	return &s3Loader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

func (l *s3Loader) Load(ctx context.Context, key string) ([]FeedItem, error) {
	l.logger.Info().Str("bucket", l.bucket).Str("key", key).Msg("loading catalogue feed from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().Err(err).Str("bucket", l.bucket).Str("key", key).Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	items, err := decodeFeed(ctx, result.Body, isGzip(key))
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to decode S3 feed")
		return nil, fmt.Errorf("failed to decode S3 feed %s: %w", key, err)
	}

	l.logger.Info().Str("key", key).Int("items", len(items)).Msg("catalogue feed loaded from S3")
	return items, nil
}

// fallbackLoader tries S3 first, then the local file system.
type fallbackLoader struct {
	s3       Loader
	file     Loader
	s3Prefix string
	logger   zerolog.Logger
}

// NewFallbackLoader creates a loader that prefers S3 when s3 is non-nil.
// The S3 key is s3Prefix + path; the local path is used as given.
func NewFallbackLoader(s3 Loader, file Loader, s3Prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3:       s3,
		file:     file,
		s3Prefix: s3Prefix,
		logger:   logger.With().Str("component", "fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) ([]FeedItem, error) {
	if l.s3 != nil {
		key := l.s3Prefix + path
		items, err := l.s3.Load(ctx, key)
		if err == nil {
			return items, nil
		}
		l.logger.Warn().Err(err).Str("s3_key", key).Msg("failed to load from S3, falling back to local file system")
	}

	return l.file.Load(ctx, path)
}
