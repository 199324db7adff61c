// Package azure implements provider.Provider against Azure Key Vault,
// adapted from the teacher's internal/providers.AzureKeyVaultProvider.
// It exists as an extensibility demonstration: the Provider Registry
// accepts any number of Providers and tries them in registration order,
// and this package shows a second store type wired alongside AWS
// Secrets Manager and CyberArk without touching core packages.
package azure

import (
	"context"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
)

// KeyVaultStoreType is this provider's StoreType tag. It has the same
// value as provider.AzureKeyVault; callers register references against
// it the same way they would against provider.AwsSecretsManager.
const KeyVaultStoreType provider.StoreType = "AzureKeyVault"

// KeyVaultAPI is the subset of *azsecrets.Client this Provider calls,
// narrowed for test injection (mirroring the teacher's
// AzureKeyVaultClientAPI seam).
type KeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// Provider fetches secrets from a single Azure Key Vault instance.
type Provider struct {
	client KeyVaultAPI
}

// New builds a Provider against vaultURL using azidentity's default
// credential chain (managed identity, environment, Azure CLI, in that
// order — azidentity.NewDefaultAzureCredential's own precedence).
func New(vaultURL string) (*Provider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errs.NewConfiguration("credential", "failed to create Azure credential: "+err.Error())
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, errs.NewConfiguration("vaultURL", "failed to create Key Vault client: "+err.Error())
	}
	return &Provider{client: client}, nil
}

// NewWithClient builds a Provider around an already-constructed
// KeyVaultAPI, for tests or a caller supplying its own azcore.TokenCredential.
func NewWithClient(client KeyVaultAPI) *Provider {
	return &Provider{client: client}
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType provider.StoreType) bool {
	return storeType == KeyVaultStoreType
}

// SupportsChangeNotifications implements provider.Provider.
func (p *Provider) SupportsChangeNotifications() bool {
	return false
}

// GetLatestVersion is not supported by this Provider.
func (p *Provider) GetLatestVersion(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (string, bool) {
	return "", false
}

// FetchSecret implements provider.Provider against Key Vault's
// GetSecret. The reference's version hint is passed through verbatim
// unless it is VersionLatest, in which case Key Vault's own "no version
// given" behavior (latest) is used.
func (p *Provider) FetchSecret(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (*provider.Secret, error) {
	version := ref.VersionHint
	if version == provider.VersionLatest {
		version = ""
	}

	resp, err := p.client.GetSecret(ctx, ref.Name, version, nil)
	if err != nil {
		return nil, errs.NewAccess(ref, "GetSecret failed", err)
	}
	if resp.Value == nil {
		return nil, errs.NewAccess(ref, "secret has no value", nil)
	}

	// Key Vault's GetSecretResponse carries no separate version string
	// when the caller already pinned one via the version argument; a
	// pinned fetch's own version hint is stable by construction, and an
	// unpinned ("latest") fetch is versioned by its last-updated
	// timestamp instead, which changes exactly when the secret's value
	// does.
	fetchedVersion := version
	if fetchedVersion == "" && resp.Attributes != nil && resp.Attributes.Updated != nil {
		fetchedVersion = strconv.FormatInt(resp.Attributes.Updated.Unix(), 10)
	}

	meta := provider.NewSecretMetadata(fetchedVersion, KeyVaultStoreType, ref).WithTimestamp()
	id := ref.String() + "@" + fetchedVersion
	return provider.NewSecret(id, ref.Name, []byte(*resp.Value), meta), nil
}
