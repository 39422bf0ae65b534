package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"

	// Register every KMS provider scheme OpenKeeper can dial.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens the keeper named by a deployment's KMS_KEY_URI. The
// keyring loader and the key commands depend on this interface, so tests can
// substitute fakes without dialing a real provider.
type KMSService interface {
	// OpenKeeper connects to the KMS provider encoded in keyURI.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

// kmsService is the gocloud.dev implementation.
type kmsService struct{}

// NewKMSService returns the gocloud.dev-backed keeper factory.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper dials the provider for keyURI. Supported schemes: gcpkms://,
// awskms://, azurekeyvault://, hashivault://, and base64key:// for local
// development. The returned keeper is *secrets.Keeper behind the KMSKeeper
// interface.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
