// Package gcp implements provider.Provider against Google Cloud Secret
// Manager, adapted from the teacher's
// internal/providers.GCPSecretManagerProvider. Like internal/providers/
// azure, it exists as an extensibility demonstration of a third store
// type the Provider Registry accepts without any change to core
// packages.
package gcp

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
)

// SecretManagerStoreType is this provider's StoreType tag.
const SecretManagerStoreType provider.StoreType = "GcpSecretManager"

// SecretManagerAPI is the subset of *secretmanager.Client this Provider
// calls, narrowed for test injection.
type SecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...interface{}) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Provider fetches secrets from a single GCP project's Secret Manager.
type Provider struct {
	client    SecretManagerAPI
	projectID string
}

// New builds a Provider scoped to projectID, using the real
// *secretmanager.Client.
func New(ctx context.Context, projectID string) (*Provider, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, errs.NewConfiguration("client", "failed to create Secret Manager client: "+err.Error())
	}
	return &Provider{client: clientAdapter{client}, projectID: projectID}, nil
}

// NewWithClient builds a Provider around an already-constructed
// SecretManagerAPI, for tests or a caller supplying its own client
// options (impersonation, a service account key file, and so on).
func NewWithClient(client SecretManagerAPI, projectID string) *Provider {
	return &Provider{client: client, projectID: projectID}
}

// clientAdapter narrows *secretmanager.Client's variadic
// gax.CallOption parameter to SecretManagerAPI's interface{}
// variadic, since this package does not depend on the gax package
// directly.
type clientAdapter struct {
	client *secretmanager.Client
}

func (a clientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...interface{}) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType provider.StoreType) bool {
	return storeType == SecretManagerStoreType
}

// SupportsChangeNotifications implements provider.Provider.
func (p *Provider) SupportsChangeNotifications() bool {
	return false
}

// GetLatestVersion is not supported by this Provider.
func (p *Provider) GetLatestVersion(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (string, bool) {
	return "", false
}

// FetchSecret implements provider.Provider against Secret Manager's
// AccessSecretVersion. The reference's version hint maps to Secret
// Manager's version path segment; VersionLatest maps to Secret
// Manager's own "latest" alias.
func (p *Provider) FetchSecret(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (*provider.Secret, error) {
	version := ref.VersionHint
	if version == provider.VersionLatest || version == "" {
		version = "latest"
	}

	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.projectID, ref.Name, version)

	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resourceName})
	if err != nil {
		return nil, errs.NewAccess(ref, "AccessSecretVersion failed", err)
	}
	if resp.Payload == nil || resp.Payload.Data == nil {
		return nil, errs.NewAccess(ref, "secret has no payload data", nil)
	}

	fetchedVersion := version
	if resp.Name != "" {
		fetchedVersion = resp.Name
	}

	meta := provider.NewSecretMetadata(fetchedVersion, SecretManagerStoreType, ref).WithTimestamp()
	id := ref.String() + "@" + fetchedVersion
	return provider.NewSecret(id, ref.Name, resp.Payload.Data, meta), nil
}
