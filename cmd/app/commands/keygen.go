package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
)

// RunKeygen generates a cryptographically secure 32-byte key for any keyring
// slot and prints it base64 encoded. With a KMS key URI the plaintext key is
// wrapped through the keeper first and the printed value is the base64
// ciphertext, ready for an environment running with KMS_KEY_URI set. Key
// material is zeroed from memory after encoding.
func RunKeygen(ctx context.Context, kmsService cryptoService.KMSService, logger *slog.Logger, out io.Writer, kmsKeyURI string) error {
	// Generate a cryptographically secure 32-byte key
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	if kmsKeyURI == "" {
		fmt.Fprintln(out, "# Generated 32-byte key (standard base64)")
		fmt.Fprintf(out, "# Assign to %s, %s or a legacy slot:\n",
			cryptoDomain.EnvMasterKey, cryptoDomain.EnvIndexKey)
		fmt.Fprintln(out, base64.StdEncoding.EncodeToString(key))
		return nil
	}

	// KMS mode: print the wrapped ciphertext instead of the raw key
	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to wrap key with KMS: %w", err)
	}

	fmt.Fprintln(out, "# Generated 32-byte key, wrapped with KMS")
	fmt.Fprintf(out, "# KMS key URI: %s\n", kmsKeyURI)
	fmt.Fprintf(out, "# Assign to %s, %s or a legacy slot:\n",
		cryptoDomain.EnvMasterKey, cryptoDomain.EnvIndexKey)
	fmt.Fprintln(out, base64.StdEncoding.EncodeToString(ciphertext))
	return nil
}
