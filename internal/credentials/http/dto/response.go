package dto

import (
	"encoding/json"
	"time"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

// CredentialResponse represents one credential version in API responses.
// SECURITY: Value holds the decrypted secret.
type CredentialResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Value            json.RawMessage `json:"value"`
	Generated        bool            `json:"generated"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	VersionCreatedAt time.Time       `json:"version_created_at"`
}

// ListCredentialsResponse wraps versions of a name, newest first.
type ListCredentialsResponse struct {
	Data []CredentialResponse `json:"data"`
}

// MapCredentialToResponse converts a decrypted version to an API response.
func MapCredentialToResponse(version *credentialsDomain.CredentialVersion) CredentialResponse {
	return CredentialResponse{
		ID:               version.ID.String(),
		Name:             version.Name,
		Type:             string(version.Type),
		Value:            version.Value,
		Generated:        version.Generated(),
		ExpiryDate:       version.ExpiresAt,
		VersionCreatedAt: version.CreatedAt,
	}
}

// MapCredentialsToListResponse converts decrypted versions to a list response.
func MapCredentialsToListResponse(versions []*credentialsDomain.CredentialVersion) ListCredentialsResponse {
	data := make([]CredentialResponse, 0, len(versions))
	for _, version := range versions {
		data = append(data, MapCredentialToResponse(version))
	}
	return ListCredentialsResponse{Data: data}
}
