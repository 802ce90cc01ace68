package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "media"), "http://localhost:8080/")
	require.NoError(t, err)

	url, err := s.Save("Photo.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	name := strings.TrimPrefix(url, "http://localhost:8080/media/")
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_RejectsUnknownType(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	require.NoError(t, err)
	_, err = s.Save("run.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
