package dto

import (
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
)

// KeyResponse describes a configured key. Secret references are never returned.
type KeyResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProviderName string `json:"provider_name"`
	Active       bool   `json:"active"`
}

// ListKeysResponse lists the keys of the installed key set.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// MapKeySetToListResponse converts the installed key set to a list response.
func MapKeySetToListResponse(set *encryptionDomain.KeySet) ListKeysResponse {
	data := make([]KeyResponse, 0, set.Len())
	for _, id := range set.IDs() {
		key, err := set.Get(id)
		if err != nil {
			continue
		}
		data = append(data, KeyResponse{
			ID:           key.ID.String(),
			Name:         key.Name,
			ProviderName: key.ProviderName,
			Active:       key.ID == set.Active().ID,
		})
	}
	return ListKeysResponse{Data: data}
}

// RotateKeyResponse reports the outcome of a rotation.
type RotateKeyResponse struct {
	ActiveKeyID     string   `json:"active_key_id"`
	ActiveKey       string   `json:"active_key"`
	Reencrypted     int      `json:"reencrypted"`
	Skipped         int64    `json:"skipped"`
	DeletedCanaries []string `json:"deleted_canaries"`
}

// MapRotationToResponse converts a rotation outcome to an API response.
func MapRotationToResponse(
	active *encryptionDomain.EncryptionKey,
	result *encryptionUseCase.RotationResult,
) RotateKeyResponse {
	deleted := make([]string, 0, len(result.DeletedCanaries))
	for _, id := range result.DeletedCanaries {
		deleted = append(deleted, id.String())
	}
	return RotateKeyResponse{
		ActiveKeyID:     active.ID.String(),
		ActiveKey:       active.Name,
		Reencrypted:     result.Reencrypted,
		Skipped:         result.Skipped,
		DeletedCanaries: deleted,
	}
}
