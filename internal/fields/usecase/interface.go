// Package usecase implements the business logic for field-level encryption.
//
// It turns plaintext field values into self-describing encrypted tokens and
// back, and derives blind-index fingerprints for exact-match search. It is
// the single entry point the CRUD layer uses for every sensitive column,
// keeping key handling and token grammar out of the data model entirely.
package usecase

import (
	"context"

	"github.com/google/uuid"
)

// FieldUseCase encrypts, decrypts, and fingerprints individual field values.
//
// Every operation is scoped to a workspace: values are sealed under the
// owning workspace's data encryption key, so a token copied between tenants
// can never decrypt. Fingerprints are the deliberate exception, derived from
// a workspace-independent index key so that duplicate detection can work
// across the whole installation.
type FieldUseCase interface {
	// Encrypt seals a plaintext field value under the workspace's DEK and
	// returns the encoded token.
	//
	// Empty values are returned as-is: nothing is stored for a blank field,
	// so there is no token to manufacture. Values already in token form are
	// returned unchanged, which makes the CRUD layer's write path safe to
	// run over both fresh input and already-migrated records. Failure to
	// obtain the workspace DEK surfaces as apperrors.ErrStore or
	// apperrors.ErrDecryption.
	Encrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error)

	// Decrypt recovers the plaintext from an encoded token.
	//
	// Empty values are returned as-is. Values without the token prefix are
	// returned unchanged (plaintext passthrough for not-yet-migrated
	// records) unless strict mode is enabled, in which case they are an
	// error. Values with the token prefix must parse and verify; any
	// tamper, truncation, unknown version, or cross-workspace replay is an
	// error matching apperrors.ErrDecryption, never a silently empty
	// result.
	Decrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error)

	// Fingerprint derives the deterministic blind-index digest for a value,
	// or nil when the value normalizes to empty.
	//
	// The digest only depends on the normalized value and the
	// installation's index key, so equal inputs collide on purpose: that
	// collision is what makes encrypted columns searchable by exact match.
	Fingerprint(value string) []byte
}
