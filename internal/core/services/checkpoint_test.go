package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
	"studio-service/internal/testutil"
)

func TestCheckpointService_Download(t *testing.T) {
	provider := new(testutil.MockProviderClient)
	dir := t.TempDir()
	svc := NewCheckpointService(provider, dir)

	provider.On("DownloadFileContent", mock.Anything, "file-r").Return([]byte("weights"), nil)

	path, err := svc.Download(context.Background(), "file-r", "ckpt.bin")
	require.NoError(t, err)

	assert.Equal(t, "ckpt.bin", filepath.Base(path))
	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(got))
}

func TestCheckpointService_Download_RepeatedNamesDoNotCollide(t *testing.T) {
	provider := new(testutil.MockProviderClient)
	svc := NewCheckpointService(provider, t.TempDir())

	provider.On("DownloadFileContent", mock.Anything, "a").Return([]byte("first"), nil)
	provider.On("DownloadFileContent", mock.Anything, "b").Return([]byte("second"), nil)

	p1, err := svc.Download(context.Background(), "a", "ckpt.bin")
	require.NoError(t, err)
	p2, err := svc.Download(context.Background(), "b", "ckpt.bin")
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	got, _ := os.ReadFile(p1)
	assert.Equal(t, "first", string(got))
}

func TestCheckpointService_Download_StripsDirectories(t *testing.T) {
	provider := new(testutil.MockProviderClient)
	dir := t.TempDir()
	svc := NewCheckpointService(provider, dir)

	provider.On("DownloadFileContent", mock.Anything, "file-r").Return([]byte("x"), nil)

	path, err := svc.Download(context.Background(), "file-r", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "passwd", filepath.Base(path))
	assert.Equal(t, dir, filepath.Dir(filepath.Dir(path)))

	path, err = svc.Download(context.Background(), "file-r", "")
	require.NoError(t, err)
	assert.Equal(t, "file-r", filepath.Base(path))
}

func TestCheckpointService_Download_Errors(t *testing.T) {
	provider := new(testutil.MockProviderClient)
	svc := NewCheckpointService(provider, t.TempDir())

	_, err := svc.Download(context.Background(), "", "ckpt.bin")
	assert.ErrorIs(t, err, domain.ErrMissingFileID)

	provider.On("DownloadFileContent", mock.Anything, "gone").
		Return(nil, &ports.ProviderError{StatusCode: 404, Status: "404 Not Found"})
	_, err = svc.Download(context.Background(), "gone", "ckpt.bin")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
	assert.Contains(t, err.Error(), "Error downloading checkpoint file")
}

func TestCheckpointService_Download_SanitizesFileIDFallback(t *testing.T) {
	tests := []struct {
		fileID   string
		filename string
		want     string
	}{
		{"../x", "", "x"},
		{"a/b", "..", "b"},
		{"..", "/", "checkpoint"},
		{"file-r", "ckpt.bin", "ckpt.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.fileID+"|"+tt.filename, func(t *testing.T) {
			provider := new(testutil.MockProviderClient)
			dir := t.TempDir()
			svc := NewCheckpointService(provider, dir)
			provider.On("DownloadFileContent", mock.Anything, tt.fileID).Return([]byte("x"), nil)

			path, err := svc.Download(context.Background(), tt.fileID, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filepath.Base(path))
			assert.Equal(t, dir, filepath.Dir(filepath.Dir(path)))
		})
	}
}
