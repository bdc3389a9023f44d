package auth

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	token, err := svc.IssueIdentityToken(domain.Identity{ID: "user-1", DisplayName: "Ada"})
	require.NoError(t, err)
	assert.Contains(t, token, "v4.local.")

	identity, err := svc.VerifyIdentityToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "user-1", DisplayName: "Ada"}, identity)
}

func TestVerify_Expired(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Minute)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.IssueIdentityToken(domain.Identity{ID: "user-1"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyIdentityToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongKey(t *testing.T) {
	issuer, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	token, err := issuer.IssueIdentityToken(domain.Identity{ID: "user-1"})
	require.NoError(t, err)

	_, err = other.VerifyIdentityToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyIdentityToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssue_RequiresUser(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	_, err = svc.IssueIdentityToken(domain.Identity{})
	assert.Error(t, err)
}

func TestNewTokenService_BadKeys(t *testing.T) {
	_, err := NewTokenService("abc", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService("zz23456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenServiceFromKey([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	info, err := os.Stat(filepath.Join(dir, KeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	svc, err := NewTokenService(hex.EncodeToString(key), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenDuration, svc.TokenDuration())
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), []byte("nothex"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey_UnreadableIsNotReplaced(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, KeyFile)
	require.NoError(t, os.Mkdir(keyPath, 0o700))

	_, err := LoadOrGenerateKey(dir)
	require.Error(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
