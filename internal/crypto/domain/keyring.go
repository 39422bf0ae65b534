package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
)

// Environment variable names for the process keyring.
//
// Each value is the standard base64 encoding of exactly 32 bytes. When
// KMS_KEY_URI is configured, each value is instead the base64 encoding of a
// KMS ciphertext that decrypts to 32 bytes.
const (
	// EnvMasterKey wraps workspace DEKs. Never encrypts field data directly.
	EnvMasterKey = "ENCRYPTION_MASTER_KEY"
	// EnvIndexKey derives blind-index fingerprints. Independent from the
	// master key so compromising one never exposes the other's material.
	EnvIndexKey = "FINGERPRINT_INDEX_KEY"
	// EnvLegacyKey is the retired single global encryption key, kept only to
	// read values the backfill has not migrated yet.
	EnvLegacyKey = "LEGACY_ENCRYPTION_KEY"
	// EnvLegacyKeyPrevious is the predecessor of EnvLegacyKey from the old
	// scheme's last rotation.
	EnvLegacyKeyPrevious = "LEGACY_ENCRYPTION_KEY_PREVIOUS"
)

// Keyring holds the process-wide key material, loaded once at startup and
// read-only afterwards. Sharing it across concurrent operations is safe as
// long as nothing mutates the slices; Close is the only sanctioned mutation
// and must happen after all users are done.
type Keyring struct {
	// MasterKey is the 32-byte root wrapping key.
	MasterKey []byte
	// IndexKey is the 32-byte fingerprint derivation key.
	IndexKey []byte
	// LegacyKeys are the optional retired global keys, ordered current
	// first, predecessor second. Empty when the deployment never ran the
	// old single-key scheme.
	LegacyKeys [][]byte
}

// HasLegacyKeys reports whether any legacy-scheme key is configured.
func (k *Keyring) HasLegacyKeys() bool {
	return len(k.LegacyKeys) > 0
}

// Close securely clears all key material from memory. Call during shutdown,
// after every component holding the keyring has stopped.
func (k *Keyring) Close() {
	Zero(k.MasterKey)
	Zero(k.IndexKey)
	for _, key := range k.LegacyKeys {
		Zero(key)
	}
	k.MasterKey = nil
	k.IndexKey = nil
	k.LegacyKeys = nil
}

// LoadKeyringFromEnv loads and validates the keyring from raw base64
// environment values.
//
// Required: ENCRYPTION_MASTER_KEY, FINGERPRINT_INDEX_KEY.
// Optional: LEGACY_ENCRYPTION_KEY, LEGACY_ENCRYPTION_KEY_PREVIOUS.
//
// Every failure carries the configuration error kind and names the variable
// (missing, invalid base64, or wrong decoded length) without ever including
// key material. On any failure the partially built keyring is zeroed and nil
// is returned: no component may operate on a partially valid configuration.
func LoadKeyringFromEnv() (*Keyring, error) {
	return loadKeyring(func(raw []byte) ([]byte, error) { return raw, nil })
}

// LoadKeyringFromKMS loads the keyring treating each environment value as a
// KMS ciphertext, decrypted through the supplied keeper. Keeper failures are
// configuration errors: the process must not start half-keyed.
func LoadKeyringFromKMS(ctx context.Context, keeper KMSKeeper) (*Keyring, error) {
	return loadKeyring(func(raw []byte) ([]byte, error) {
		plaintext, err := keeper.Decrypt(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKMSUnavailable, err)
		}
		return plaintext, nil
	})
}

// loadKeyring reads each slot, base64-decodes it, runs unwrap over the
// decoded bytes and checks the result is exactly KeySize bytes.
func loadKeyring(unwrap func([]byte) ([]byte, error)) (*Keyring, error) {
	kr := &Keyring{}

	masterKey, err := loadKey(EnvMasterKey, true, unwrap)
	if err != nil {
		return nil, err
	}
	kr.MasterKey = masterKey

	indexKey, err := loadKey(EnvIndexKey, true, unwrap)
	if err != nil {
		kr.Close()
		return nil, err
	}
	kr.IndexKey = indexKey

	for _, name := range []string{EnvLegacyKey, EnvLegacyKeyPrevious} {
		legacyKey, err := loadKey(name, false, unwrap)
		if err != nil {
			kr.Close()
			return nil, err
		}
		if legacyKey != nil {
			kr.LegacyKeys = append(kr.LegacyKeys, legacyKey)
		}
	}

	return kr, nil
}

// loadKey reads one keyring slot. Optional slots return (nil, nil) when the
// variable is unset; required slots fail. Intermediate buffers that do not
// become part of the keyring are zeroed before returning.
func loadKey(name string, required bool, unwrap func([]byte) ([]byte, error)) ([]byte, error) {
	raw := os.Getenv(name)
	if raw == "" {
		if required {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotSet, name)
		}
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKeyEncoding, name, err)
	}

	key, err := unwrap(decoded)
	if err != nil {
		Zero(decoded)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(key) != KeySize {
		Zero(decoded)
		Zero(key)
		return nil, fmt.Errorf("%w: %s must decode to %d bytes, got %d", ErrInvalidKeySize, name, KeySize, len(key))
	}

	// The KMS path leaves the ciphertext buffer behind; only the unwrapped
	// key may survive this function.
	if &decoded[0] != &key[0] {
		Zero(decoded)
	}

	return key, nil
}
