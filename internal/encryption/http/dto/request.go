// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	customValidation "github.com/allisson/credstore/internal/validation"
)

// RotateKeyRequest selects the key that encrypts new values.
//
// A name alone activates a key that is already configured. Supplying provider fields
// declares a new key; for a configured key they must match its configuration.
type RotateKeyRequest struct {
	Name         string `json:"name"`
	ProviderName string `json:"provider_name,omitempty"`
	ProviderType string `json:"provider_type,omitempty"`
	Algorithm    string `json:"algorithm,omitempty"`
	Password     string `json:"password,omitempty"`
	KeyURI       string `json:"key_uri,omitempty"`
}

// DeclaresKey reports whether the request carries provider fields.
func (r *RotateKeyRequest) DeclaresKey() bool {
	return r.ProviderName != "" || r.ProviderType != "" || r.Password != "" || r.KeyURI != ""
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	declares := r.DeclaresKey()
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, customValidation.NoWhitespace),
		validation.Field(&r.ProviderName, validation.When(declares, validation.Required)),
		validation.Field(&r.ProviderType,
			validation.When(declares, validation.Required),
			validation.In(string(encryptionDomain.ProviderInternal), string(encryptionDomain.ProviderKMS)),
		),
		validation.Field(&r.Algorithm,
			validation.In(string(encryptionDomain.AESGCM), string(encryptionDomain.ChaCha20)),
		),
		validation.Field(&r.Password, validation.When(
			r.ProviderType == string(encryptionDomain.ProviderInternal),
			validation.Required,
			validation.Length(16, 0),
		)),
		validation.Field(&r.KeyURI, validation.When(
			r.ProviderType == string(encryptionDomain.ProviderKMS),
			validation.Required,
		)),
	)
}

// ToMetadata converts a key declaration to key metadata.
func (r *RotateKeyRequest) ToMetadata() encryptionDomain.KeyMetadata {
	algorithm := encryptionDomain.Algorithm(r.Algorithm)
	if algorithm == "" && r.ProviderType == string(encryptionDomain.ProviderInternal) {
		algorithm = encryptionDomain.AESGCM
	}
	return encryptionDomain.KeyMetadata{
		ProviderName: r.ProviderName,
		ProviderType: encryptionDomain.ProviderType(r.ProviderType),
		Algorithm:    algorithm,
		Name:         r.Name,
		Password:     r.Password,
		KeyURI:       r.KeyURI,
		Active:       true,
	}
}
