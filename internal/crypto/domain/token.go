package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Field token wire format.
//
// An encrypted field value is stored as an ASCII string:
//
//	enc:v1:<base64 iv>:<base64 ciphertext>:<base64 tag>
//
// The token is self-describing: the literal scheme tag plus a version
// discriminator let old and new schemes coexist in the same column while the
// backfill migrates records. Consumers outside this service treat tokens as
// opaque.
const (
	// TokenScheme is the literal prefix every encrypted token starts with.
	TokenScheme = "enc"

	// TokenVersionV1 is the current scheme: AES-256-GCM under the owning
	// workspace's DEK.
	TokenVersionV1 = "v1"

	// TokenVersionV0 is the retired scheme: AES-256-GCM under the single
	// global legacy key. Decrypt-only; nothing writes v0 tokens anymore.
	TokenVersionV0 = "v0"

	tokenSeparator = ":"
	tokenSegments  = 5
)

// tokenPrefix guards the plaintext-passthrough decision: values starting
// with it claim to be tokens and must parse or fail, never fall through as
// plaintext.
var tokenPrefix = TokenScheme + tokenSeparator

// FieldToken is the decoded form of one encrypted field value.
type FieldToken struct {
	Version    string
	IV         []byte
	Ciphertext []byte
	Tag        []byte
}

// String serializes the token into its wire format.
func (t *FieldToken) String() string {
	return strings.Join([]string{
		TokenScheme,
		t.Version,
		base64.StdEncoding.EncodeToString(t.IV),
		base64.StdEncoding.EncodeToString(t.Ciphertext),
		base64.StdEncoding.EncodeToString(t.Tag),
	}, tokenSeparator)
}

// Sealed returns ciphertext and tag reassembled the way AEAD open expects
// them.
func (t *FieldToken) Sealed() []byte {
	sealed := make([]byte, 0, len(t.Ciphertext)+len(t.Tag))
	sealed = append(sealed, t.Ciphertext...)
	return append(sealed, t.Tag...)
}

// HasTokenPrefix reports whether the value claims to be an encrypted token.
// It deliberately accepts malformed tokens: a value that starts with the
// scheme tag but fails ParseFieldToken is a decryption error, not legacy
// plaintext.
func HasTokenPrefix(value string) bool {
	return strings.HasPrefix(value, tokenPrefix)
}

// IsFieldToken reports whether the value is a complete well-formed token of
// a known version. Used for the idempotent-encryption check.
func IsFieldToken(value string) bool {
	_, err := ParseFieldToken(value)
	return err == nil
}

// ParseFieldToken parses the token grammar strictly: exact segment count,
// known version, valid standard base64 in each component, and component
// lengths matching the AEAD parameters. The length checks run before any
// cipher call so a hostile token can never reach the AEAD with an
// out-of-spec nonce.
func ParseFieldToken(value string) (*FieldToken, error) {
	parts := strings.Split(value, tokenSeparator)
	if len(parts) != tokenSegments || parts[0] != TokenScheme {
		return nil, fmt.Errorf("%w: expected %d segments with %q scheme", ErrMalformedToken, tokenSegments, TokenScheme)
	}

	version := parts[1]
	if version != TokenVersionV0 && version != TokenVersionV1 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTokenVersion, version)
	}

	iv, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid iv encoding", ErrMalformedToken)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding", ErrMalformedToken)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tag encoding", ErrMalformedToken)
	}

	if len(iv) != NonceSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedToken, NonceSize, len(iv))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", ErrMalformedToken, TagSize, len(tag))
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrMalformedToken)
	}

	return &FieldToken{
		Version:    version,
		IV:         iv,
		Ciphertext: ciphertext,
		Tag:        tag,
	}, nil
}

// NewFieldToken splits freshly sealed AEAD output (ciphertext with the tag
// appended) into a v1 token.
func NewFieldToken(iv, sealed []byte) *FieldToken {
	boundary := len(sealed) - TagSize
	return &FieldToken{
		Version:    TokenVersionV1,
		IV:         iv,
		Ciphertext: sealed[:boundary],
		Tag:        sealed[boundary:],
	}
}
