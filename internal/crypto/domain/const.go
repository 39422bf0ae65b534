package domain

// Algorithm names an AEAD construction for wrapping workspace DEKs. The
// values match what DEK_WRAP_ALGORITHM accepts and what workspace_keys rows
// record, so a deployment can switch algorithms while old rows keep
// unwrapping with the one they were written under.
type Algorithm string

const (
	// AESGCM is AES-256-GCM, the default wrap algorithm. Field tokens are
	// always AES-GCM regardless of this setting; the choice only affects
	// how DEKs are wrapped at rest.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305, for hosts without AES hardware
	// support.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// ParseAlgorithm converts a configuration value to an Algorithm.
// Returns ErrUnsupportedAlgorithm for anything but the exact lowercase names.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch alg := Algorithm(s); alg {
	case AESGCM, ChaCha20:
		return alg, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

const (
	// KeySize is the required byte length of every key in the system: the
	// master wrapping key, the fingerprint index key, legacy keys and
	// workspace DEKs.
	KeySize = 32

	// NonceSize is the AEAD nonce length in bytes for both supported
	// algorithms.
	NonceSize = 12

	// TagSize is the AEAD authentication tag length in bytes for both
	// supported algorithms.
	TagSize = 16
)
