package domain

import (
	"github.com/tickbase/fieldvault/internal/errors"
)

// Sentinel errors for key handling and token decryption.
//
// Each sentinel wraps one of the closed error kinds from internal/errors so
// callers can branch on kind (configuration, decryption, store) without
// string matching. The error handling layer maps them to HTTP status codes.
var (
	// ErrKeyNotSet indicates a required key environment variable is missing.
	// The wrapping call site adds the variable name.
	ErrKeyNotSet = errors.Wrap(errors.ErrConfig, "key not set")

	// ErrInvalidKeyEncoding indicates key material that is not valid standard
	// base64.
	ErrInvalidKeyEncoding = errors.Wrap(errors.ErrConfig, "invalid key encoding")

	// ErrInvalidKeySize indicates a key that does not decode to exactly 32
	// bytes. Applies to the master key, the index key, legacy keys and
	// workspace DEKs alike.
	ErrInvalidKeySize = errors.Wrap(errors.ErrConfig, "invalid key size")

	// ErrKMSUnavailable indicates the configured KMS keeper could not be
	// opened or could not unwrap the key material at startup.
	ErrKMSUnavailable = errors.Wrap(errors.ErrConfig, "kms unavailable")

	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is
	// not supported. Returned for unknown DEK wrap algorithms from
	// configuration or from stored workspace key records.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrDecryptionFailed indicates an AEAD open failed. A wrong key
	// (including another workspace's DEK), a tampered ciphertext or tag, and
	// a corrupted key record all surface as this same error; neither the
	// message nor the kind says which.
	ErrDecryptionFailed = errors.Wrap(errors.ErrDecryption, "decryption failed")

	// ErrMalformedToken indicates a value that carries the encrypted token
	// scheme prefix but does not parse: wrong segment count, invalid base64,
	// or component lengths outside the AEAD parameters. Such values are
	// never treated as plaintext.
	ErrMalformedToken = errors.Wrap(errors.ErrDecryption, "malformed encrypted token")

	// ErrUnknownTokenVersion indicates a token whose version discriminator is
	// not one this build can decrypt.
	ErrUnknownTokenVersion = errors.Wrap(errors.ErrDecryption, "unknown token version")

	// ErrLegacyKeyNotConfigured indicates a legacy-scheme token was presented
	// but no legacy key is available to decrypt it.
	ErrLegacyKeyNotConfigured = errors.Wrap(errors.ErrDecryption, "legacy key not configured")

	// ErrPlaintextNotAllowed indicates a non-token value reached decryption
	// while the strict mode that forbids plaintext passthrough is enabled.
	ErrPlaintextNotAllowed = errors.Wrap(errors.ErrDecryption, "value is not an encrypted token")

	// ErrWorkspaceKeyNotFound indicates no key record exists for a workspace.
	ErrWorkspaceKeyNotFound = errors.Wrap(errors.ErrNotFound, "workspace key not found")
)
