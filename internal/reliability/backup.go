// Package reliability provides operational safeguards: off-host database
// backups to S3.
package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Uploader is the slice of the S3 transfer manager the backup service uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// BackupService uploads the database files to an S3 bucket, keyed by date.
type BackupService struct {
	uploader Uploader
	bucket   string
	paths    []string
	log      zerolog.Logger
}

// NewBackupService creates the backup service. paths are the database files
// to upload.
func NewBackupService(uploader Uploader, bucket string, paths []string, log zerolog.Logger) *BackupService {
	return &BackupService{
		uploader: uploader,
		bucket:   bucket,
		paths:    paths,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// Run uploads every configured database file under backups/<date>/. One
// failed file does not stop the rest; the first error is returned after the
// pass completes.
func (s *BackupService) Run(ctx context.Context) error {
	prefix := fmt.Sprintf("backups/%s", time.Now().UTC().Format("2006-01-02"))

	var firstErr error
	for _, path := range s.paths {
		if err := s.uploadFile(ctx, path, prefix); err != nil {
			s.log.Error().Err(err).Str("file", path).Msg("backup upload failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.log.Info().Str("file", path).Str("prefix", prefix).Msg("backup uploaded")
	}
	return firstErr
}

func (s *BackupService) uploadFile(ctx context.Context, path, prefix string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s", prefix, filepath.Base(path))
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
