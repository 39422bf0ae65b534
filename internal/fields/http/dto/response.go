// Package dto provides data transfer objects for HTTP request and response handling.
package dto

// FieldResponse contains the result of an encrypt or decrypt operation.
//
// For encryption, Value carries the encoded token (or the empty string when
// the input was empty). For decryption, Value carries the recovered
// plaintext. SECURITY: Decrypted values are sensitive and must only travel
// over the internal listener.
type FieldResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Value       string `json:"value"`
}

// FingerprintResponse contains the derived blind-index digest.
//
// Fingerprint is the hex-encoded HMAC digest, or the empty string when the
// input normalizes to empty and therefore has no index entry.
type FingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
}
