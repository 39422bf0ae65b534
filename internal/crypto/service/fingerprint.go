package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// FingerprintService implements the Fingerprinter interface using HMAC-SHA256.
//
// Fingerprints are deterministic blind-index digests stored next to encrypted
// columns so exact-match lookups (for example "find the client with this email")
// work without decrypting rows. The index key is independent from the master
// key, so a compromise of one never derives the other.
//
// Values are normalized before hashing: surrounding whitespace is trimmed and
// the value is lowercased. "Alice@Example.com" and " alice@example.com " yield
// the same fingerprint.
type FingerprintService struct {
	indexKey []byte
}

// NewFingerprint creates a new FingerprintService with the provided index key.
//
// The key must be exactly 32 bytes. Keys should be generated using a
// cryptographically secure random number generator.
func NewFingerprint(indexKey []byte) (*FingerprintService, error) {
	if len(indexKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	return &FingerprintService{indexKey: indexKey}, nil
}

// Fingerprint returns the HMAC-SHA256 digest of the normalized value.
//
// Returns nil when the value normalizes to the empty string, mirroring how
// empty field values pass through encryption unchanged. Callers persist nil
// as SQL NULL so blank values never share an index entry.
func (f *FingerprintService) Fingerprint(value string) []byte {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return nil
	}

	mac := hmac.New(sha256.New, f.indexKey)
	mac.Write([]byte(normalized))
	return mac.Sum(nil)
}
