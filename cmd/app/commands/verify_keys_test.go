package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// clearKeyEnv unsets every keyring variable so ambient environment values
// cannot leak into a subtest.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv(cryptoDomain.EnvMasterKey, "")
	t.Setenv(cryptoDomain.EnvIndexKey, "")
	t.Setenv(cryptoDomain.EnvLegacyKey, "")
	t.Setenv(cryptoDomain.EnvLegacyKeyPrevious, "")
}

func rawKeyB64(fill byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{fill}, 32))
}

func TestRunVerifyKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("environment-success", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvMasterKey, rawKeyB64(0x01))
		t.Setenv(cryptoDomain.EnvIndexKey, rawKeyB64(0x02))

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, &MockKMSService{}, logger, &out, "")

		require.NoError(t, err)
		require.Contains(t, out.String(), "mode: environment (raw base64)")
		require.Contains(t, out.String(), cryptoDomain.EnvMasterKey+": configured")
		require.Contains(t, out.String(), cryptoDomain.EnvIndexKey+": configured")
		require.Contains(t, out.String(), "legacy key slots: 0")
		require.Contains(t, out.String(), "keyring OK")
	})

	t.Run("environment-with-legacy-keys", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvMasterKey, rawKeyB64(0x01))
		t.Setenv(cryptoDomain.EnvIndexKey, rawKeyB64(0x02))
		t.Setenv(cryptoDomain.EnvLegacyKey, rawKeyB64(0x03))

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, &MockKMSService{}, logger, &out, "")

		require.NoError(t, err)
		require.Contains(t, out.String(), "legacy key slots: 1")
	})

	t.Run("environment-missing-master-key", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvIndexKey, rawKeyB64(0x02))

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, &MockKMSService{}, logger, &out, "")

		require.Error(t, err)
		require.Contains(t, err.Error(), "keyring verification failed")
		require.Contains(t, err.Error(), cryptoDomain.EnvMasterKey)
		require.NotContains(t, out.String(), "keyring OK")
	})

	t.Run("environment-invalid-key-length", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvMasterKey, base64.StdEncoding.EncodeToString([]byte("short")))
		t.Setenv(cryptoDomain.EnvIndexKey, rawKeyB64(0x02))

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, &MockKMSService{}, logger, &out, "")

		require.Error(t, err)
		require.Contains(t, err.Error(), cryptoDomain.EnvMasterKey)
	})

	t.Run("kms-success", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvMasterKey, base64.StdEncoding.EncodeToString([]byte("ct-master")))
		t.Setenv(cryptoDomain.EnvIndexKey, base64.StdEncoding.EncodeToString([]byte("ct-index")))

		mockService := &MockKMSService{}
		mockKeeper := &MockKMSKeeper{}

		mockService.On("OpenKeeper", ctx, "base64key://test").Return(mockKeeper, nil)
		mockKeeper.On("Decrypt", ctx, []byte("ct-master")).Return(bytes.Repeat([]byte{0x01}, 32), nil)
		mockKeeper.On("Decrypt", ctx, []byte("ct-index")).Return(bytes.Repeat([]byte{0x02}, 32), nil)
		mockKeeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, mockService, logger, &out, "base64key://test")

		require.NoError(t, err)
		require.Contains(t, out.String(), "mode: KMS (base64key://test)")
		require.Contains(t, out.String(), "keyring OK")
		mockService.AssertExpectations(t)
		mockKeeper.AssertExpectations(t)
	})

	t.Run("kms-open-error", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv(cryptoDomain.EnvMasterKey, rawKeyB64(0x01))
		t.Setenv(cryptoDomain.EnvIndexKey, rawKeyB64(0x02))

		mockService := &MockKMSService{}
		mockService.On("OpenKeeper", ctx, "gcpkms://broken").Return(nil, errors.New("no credentials"))

		var out bytes.Buffer
		err := RunVerifyKeys(ctx, mockService, logger, &out, "gcpkms://broken")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open KMS keeper")
		mockService.AssertExpectations(t)
	})
}
