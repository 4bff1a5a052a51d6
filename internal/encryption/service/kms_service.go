package service

import (
	"context"
	"fmt"
	"net/url"

	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

// KMSService opens gocloud.dev keepers for kms key URIs.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

type kmsService struct {
	mux *secrets.URLMux
}

// NewKMSService resolves awskms://, gcpkms://, azurekeyvault://, hashivault:// and
// base64key:// URIs through the default gocloud.dev mux.
func NewKMSService() KMSService {
	return &kmsService{mux: secrets.DefaultURLMux()}
}

// OpenKeeper rejects schemes no driver is registered for with ErrInvalidKeyMetadata, so a
// typo in the keys file is not reported as an unreachable provider.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error) {
	u, err := url.Parse(keyURI)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key URI: %v", encryptionDomain.ErrInvalidKeyMetadata, err)
	}
	if !k.mux.ValidKeeperScheme(u.Scheme) {
		return nil, fmt.Errorf("%w: unknown key URI scheme %q", encryptionDomain.ErrInvalidKeyMetadata, u.Scheme)
	}

	keeper, err := k.mux.OpenKeeperURL(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
