package reliability

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	keys   []string
	bodies map[string]string
	err    error
}

func (u *stubUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if u.bodies == nil {
		u.bodies = make(map[string]string)
	}
	u.keys = append(u.keys, *input.Key)
	u.bodies[*input.Key] = string(body)
	return &manager.UploadOutput{}, nil
}

func writeTempDB(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunUploadsEveryDatabase(t *testing.T) {
	uploader := &stubUploader{}
	paths := []string{
		writeTempDB(t, "portfolio.db", "portfolio-bytes"),
		writeTempDB(t, "ledger.db", "ledger-bytes"),
	}
	svc := NewBackupService(uploader, "backups-bucket", paths, zerolog.Nop())

	require.NoError(t, svc.Run(context.Background()))
	require.Len(t, uploader.keys, 2)

	for _, key := range uploader.keys {
		assert.Regexp(t, `^backups/\d{4}-\d{2}-\d{2}/`, key)
	}
	assert.Contains(t, uploader.bodies[uploader.keys[0]], "portfolio-bytes")
}

func TestRunContinuesPastMissingFile(t *testing.T) {
	uploader := &stubUploader{}
	paths := []string{
		filepath.Join(t.TempDir(), "does-not-exist.db"),
		writeTempDB(t, "ledger.db", "ledger-bytes"),
	}
	svc := NewBackupService(uploader, "backups-bucket", paths, zerolog.Nop())

	err := svc.Run(context.Background())
	assert.Error(t, err)
	// The healthy file still made it up.
	require.Len(t, uploader.keys, 1)
	assert.Contains(t, uploader.keys[0], "ledger.db")
}

func TestRunReturnsUploadError(t *testing.T) {
	uploader := &stubUploader{err: errors.New("access denied")}
	paths := []string{writeTempDB(t, "ledger.db", "x")}
	svc := NewBackupService(uploader, "backups-bucket", paths, zerolog.Nop())

	assert.ErrorContains(t, svc.Run(context.Background()), "access denied")
}
