package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warning ", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFindImageFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "backdrop.tex"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), nil, 0o644))

	assert.Equal(t, filepath.Join(dir, "sub", "backdrop.tex"), FindImageFile("backdrop", dir, filepath.Join(dir, "sub")))
	assert.Equal(t, filepath.Join(dir, "sub", "backdrop.tex"), FindImageFile("materials/backdrop", filepath.Join(dir, "sub")))
	assert.Equal(t, filepath.Join(dir, "photo.jpg"), FindImageFile("photo.jpg", dir))
	assert.Equal(t, "", FindImageFile("missing", dir))
	assert.Equal(t, "", FindImageFile(""))
}
