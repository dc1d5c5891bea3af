package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"legalrag-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotKey(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	assert.Equal(t, "lex.uz/20260506T070809Z.txt", SnapshotKey("https://lex.uz", ts))
	assert.Equal(t, "www.gov.uk/browse_visas-immigration/20260506T070809Z.txt",
		SnapshotKey("https://www.gov.uk/browse/visas-immigration", ts))
	assert.Equal(t, "unknown/20260506T070809Z.txt", SnapshotKey("::not a url", ts))
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := SnapshotKey("https://lex.uz", time.Now())
	path, err := s.Put(ctx, key, strings.NewReader("Residency requires 5 years"))
	require.NoError(t, err)
	assert.Equal(t, key, path)

	rc, err := s.Get(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "Residency requires 5 years", string(data))

	_, err = s.Get(ctx, "lex.uz/missing.txt")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(root, "snapshots"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0600))

	for _, key := range []string{"../secret.txt", "lex.uz/../../secret.txt", "/etc/passwd", ""} {
		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		_, err = s.Put(ctx, key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStorageOverwritesSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "lex.uz/20260101T000000Z.txt"
	_, err = s.Put(ctx, key, strings.NewReader("old"))
	require.NoError(t, err)
	_, err = s.Put(ctx, key, strings.NewReader("new"))
	require.NoError(t, err)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(filepath.Join(s.root, "lex.uz"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewStorageNone(t *testing.T) {
	s, err := NewStorage(context.Background(), config.SnapshotConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewStorage(context.Background(), config.SnapshotConfig{Type: "ftp"})
	assert.Error(t, err)
}
