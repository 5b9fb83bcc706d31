package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pribylovaa/go-social-client/internal/storage"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestStorage_RoundTrip_Plain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")

	s, err := New(path, "")
	require.NoError(t, err)

	_, err = s.Get(ctx, "access_token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "access_token", "a1"))
	require.NoError(t, s.Set(ctx, "refresh_token", "r1"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"a1","refresh_token":"r1"}`, string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Второй экземпляр видит то же состояние (как другая вкладка браузера).
	s2, err := New(path, "")
	require.NoError(t, err)
	v, err := s2.Get(ctx, "refresh_token")
	require.NoError(t, err)
	require.Equal(t, "r1", v)

	require.NoError(t, s2.Delete(ctx, "access_token", "refresh_token"))
	_, err = s.Get(ctx, "access_token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Повторное удаление — no-op.
	require.NoError(t, s.Delete(ctx, "access_token"))
}

func TestStorage_Encrypted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.bin")

	s, err := New(path, testKey)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "access_token", "secret-access"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "secret-access"))

	v, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "secret-access", v)

	// Другой ключ — содержимое не расшифровывается.
	other, err := New(path, strings.Repeat("ff", 32))
	require.NoError(t, err)
	_, err = other.Get(ctx, "access_token")
	require.ErrorIs(t, err, storage.ErrCorrupted)

	// Без ключа — это не JSON.
	plain, err := New(path, "")
	require.NoError(t, err)
	_, err = plain.Get(ctx, "access_token")
	require.ErrorIs(t, err, storage.ErrCorrupted)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New("", "")
	require.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "t.json"), "abcd")
	require.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "t.json"), "zz"+testKey[2:])
	require.Error(t, err)
}
