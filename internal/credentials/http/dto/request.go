// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	credentialsUseCase "github.com/allisson/credstore/internal/credentials/usecase"
	customValidation "github.com/allisson/credstore/internal/validation"
)

// GenerateCredentialRequest asks for a generated credential.
type GenerateCredentialRequest struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Mode       string          `json:"mode,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Validate checks the request shape. Type specific rules are applied by the use case.
func (r *GenerateCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Type, validation.Required, validation.In(
			string(credentialsDomain.TypePassword),
			string(credentialsDomain.TypeRSA),
			string(credentialsDomain.TypeSSH),
			string(credentialsDomain.TypeCertificate),
		).Error("must be one of password, rsa, ssh or certificate")),
		validation.Field(&r.Mode, validation.In(
			string(credentialsDomain.ModeOverwrite),
			string(credentialsDomain.ModeConverge),
			string(credentialsDomain.ModeNoOverwrite),
		).Error("must be one of overwrite, converge or no-overwrite")),
		validation.Field(&r.Parameters, customValidation.JSONObject),
	)
}

// ToInput converts the request to the use case input.
func (r *GenerateCredentialRequest) ToInput() credentialsUseCase.GenerateInput {
	return credentialsUseCase.GenerateInput{
		Name:       r.Name,
		Type:       credentialsDomain.CredentialType(r.Type),
		Mode:       credentialsDomain.WriteMode(r.Mode),
		Parameters: r.Parameters,
	}
}

// SetCredentialRequest stores a caller supplied value.
type SetCredentialRequest struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Validate checks the request shape.
func (r *SetCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Type, validation.Required, validation.In(
			string(credentialsDomain.TypeValue),
			string(credentialsDomain.TypeJSON),
			string(credentialsDomain.TypePassword),
			string(credentialsDomain.TypeRSA),
			string(credentialsDomain.TypeSSH),
			string(credentialsDomain.TypeCertificate),
		).Error("must be one of value, json, password, rsa, ssh or certificate")),
		validation.Field(&r.Value, validation.Required, customValidation.JSONDocument),
	)
}

// ToInput converts the request to the use case input.
func (r *SetCredentialRequest) ToInput() credentialsUseCase.SetInput {
	return credentialsUseCase.SetInput{
		Name:  r.Name,
		Type:  credentialsDomain.CredentialType(r.Type),
		Value: r.Value,
	}
}
