// Package archive hands finished artifacts to durable storage. The only
// production sink is S3; the pipeline depends on the Sink interface so
// tests can capture uploads in memory.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"dramasync/internal/errcat"
)

// Sink stores a local file under a key and returns its public URL.
type Sink interface {
	Store(ctx context.Context, localPath, key string) (string, error)
}

// VideoKey returns the archive key for an episode's video file.
func VideoKey(drama string, ep int, videoID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("videos/%s/%s_Ep%d_%s.%s", drama, drama, ep, videoID, ext)
}

// TranscriptKey returns the archive key for a transcript file.
func TranscriptKey(drama, filename string) string {
	return fmt.Sprintf("transcripts/%s/%s", drama, filepath.Base(filename))
}

// S3Config carries the credentials and bucket location. All fields are
// required.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Sink uploads with public-read ACLs so archived episodes are directly
// linkable.
type S3Sink struct {
	uploader *s3manager.Uploader
	bucket   string
	region   string
	log      *slog.Logger
}

// NewS3Sink builds the session and verifies the bucket is reachable.
// An unreachable or missing bucket is a configuration error: better to die
// at startup than after the first hour-long download.
func NewS3Sink(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3Sink, error) {
	if cfg.Region == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errcat.Wrap(errcat.CategoryConfig, fmt.Errorf("incomplete S3 configuration"))
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	})
	if err != nil {
		return nil, errcat.Wrap(errcat.CategoryConfig, fmt.Errorf("creating AWS session: %w", err))
	}

	client := s3.New(sess)
	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, errcat.Wrap(errcat.CategoryConfig, fmt.Errorf("bucket %s not accessible: %w", cfg.Bucket, err))
	}
	log.Info("S3 bucket verified", "bucket", cfg.Bucket, "region", cfg.Region)

	return &S3Sink{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		log:      log,
	}, nil
}

// Store uploads localPath under key and returns the object's public URL.
func (s *S3Sink) Store(ctx context.Context, localPath, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", errcat.Wrap(errcat.CategoryFilesystem, fmt.Errorf("opening %s: %w", localPath, err))
	}
	defer file.Close()

	key = strings.TrimPrefix(key, "/")
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
		ACL:    aws.String("public-read"),
	}
	if ctype := contentTypeFor(localPath); ctype != "" {
		input.ContentType = aws.String(ctype)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("uploading %s: %w", key, err))
	}

	url := ObjectURL(s.bucket, s.region, key)
	s.log.Info("uploaded to S3", "key", key, "url", url)
	return url, nil
}

// ObjectURL is the public URL for a key in a bucket.
func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, strings.TrimPrefix(key, "/"))
}

func contentTypeFor(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return mime.TypeByExtension(ext)
	}
}
