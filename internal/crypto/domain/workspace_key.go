// Package domain defines the core cryptographic domain models for workspace
// envelope encryption.
//
// It implements a two-tier key hierarchy: Master Key → workspace DEK → field
// data. Each workspace owns exactly one Data Encryption Key, wrapped under
// the process-wide master key and stored as a WorkspaceKey record. Field
// values are encrypted with the workspace DEK and serialized as versioned
// tokens (see FieldToken). A separate index key derives searchable
// fingerprints and never touches the encryption hierarchy.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceKey is the persisted form of a workspace's Data Encryption Key.
// The plaintext DEK is never persisted and should be zeroed from memory
// immediately after use. Exactly one record exists per workspace; it is
// created lazily on first use and immutable afterwards, with Version
// reserved for a future rotation scheme.
type WorkspaceKey struct {
	WorkspaceID  uuid.UUID // Owning workspace (primary key)
	Algorithm    Algorithm // AEAD used to wrap the DEK (AESGCM or ChaCha20)
	EncryptedKey []byte    // The DEK sealed under the master key, tag appended
	Nonce        []byte    // Unique nonce used for the wrap
	Version      uint      // Version number for rotation tracking
	CreatedAt    time.Time
}
