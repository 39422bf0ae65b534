package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
)

// RunVerifyKeys loads the keyring with full validation and reports which
// slots are configured. It exercises the exact startup path of the server,
// including the KMS unwrap when a key URI is configured, so a passing run
// means the server will come up keyed. No key bytes are ever printed.
func RunVerifyKeys(ctx context.Context, kmsService cryptoService.KMSService, logger *slog.Logger, out io.Writer, kmsKeyURI string) error {
	keyring, err := loadKeyring(ctx, kmsService, logger, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("keyring verification failed: %w", err)
	}
	defer keyring.Close()

	mode := "environment (raw base64)"
	if kmsKeyURI != "" {
		mode = fmt.Sprintf("KMS (%s)", kmsKeyURI)
	}

	fmt.Fprintln(out, "# Keyring verification")
	fmt.Fprintf(out, "mode: %s\n", mode)
	fmt.Fprintf(out, "%s: configured\n", cryptoDomain.EnvMasterKey)
	fmt.Fprintf(out, "%s: configured\n", cryptoDomain.EnvIndexKey)
	fmt.Fprintf(out, "legacy key slots: %d\n", len(keyring.LegacyKeys))
	fmt.Fprintln(out, "keyring OK")

	return nil
}

// loadKeyring loads the keyring from the environment, unwrapping through KMS
// when a key URI is configured.
func loadKeyring(ctx context.Context, kmsService cryptoService.KMSService, logger *slog.Logger, kmsKeyURI string) (*cryptoDomain.Keyring, error) {
	if kmsKeyURI == "" {
		return cryptoDomain.LoadKeyringFromEnv()
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	return cryptoDomain.LoadKeyringFromKMS(ctx, keeper)
}
