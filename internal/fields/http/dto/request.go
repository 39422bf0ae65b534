// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"
)

// maxFieldValueLength bounds request payloads to column-sized values. Larger
// payloads belong in blob storage, not in encrypted columns.
const maxFieldValueLength = 64 * 1024

// EncryptFieldRequest contains the parameters for encrypting a field value.
//
// An empty value is valid: it passes through unencrypted because nothing is
// stored for blank fields.
type EncryptFieldRequest struct {
	Value string `json:"value"`
}

// Validate checks if the encrypt field request is valid.
func (r *EncryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Length(0, maxFieldValueLength),
		),
	)
}

// DecryptFieldRequest contains the parameters for decrypting a field value.
type DecryptFieldRequest struct {
	Value string `json:"value"`
}

// Validate checks if the decrypt field request is valid.
func (r *DecryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Length(0, maxFieldValueLength),
		),
	)
}

// FingerprintRequest contains the parameters for deriving a blind-index
// fingerprint.
type FingerprintRequest struct {
	Value string `json:"value"`
}

// Validate checks if the fingerprint request is valid.
func (r *FingerprintRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Length(0, maxFieldValueLength),
		),
	)
}
