// Package cyberark implements provider.Provider against a CyberArk-style
// REST secret vault, grounded on the teacher's
// internal/providers.infisicalHTTPClient: a bare net/http.Client with a
// per-request auth header, no vendor SDK, since the pack carries no
// CyberArk client library.
package cyberark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
)

// DefaultTimeout is applied to the internal http.Client if none is given
// via WithHTTPClient.
const DefaultTimeout = 10 * time.Second

// Provider fetches secrets from a CyberArk Central Credential Provider
// (CCP) style REST endpoint, authenticating with an API key presented as
// a request header.
type Provider struct {
	baseURL    string
	appID      string
	httpClient *http.Client
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithHTTPClient overrides the Provider's http.Client (for tests or
// custom TLS configuration).
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// New builds a Provider against baseURL (the CCP webservice root) using
// appID to scope credential retrieval.
func New(baseURL, appID string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    baseURL,
		appID:      appID,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType provider.StoreType) bool {
	return storeType == provider.CyberArk
}

// SupportsChangeNotifications implements provider.Provider: this REST
// endpoint has no push mechanism.
func (p *Provider) SupportsChangeNotifications() bool {
	return false
}

// GetLatestVersion is not supported by this Provider.
func (p *Provider) GetLatestVersion(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (string, bool) {
	return "", false
}

type ccpResponse struct {
	Content   string `json:"Content"`
	Username  string `json:"UserName"`
	PolicyID  string `json:"PolicyID"`
	ChangedAt string `json:"LastChangedTime"`
}

// FetchSecret implements provider.Provider against the CCP webservice's
// GetPassword endpoint, authenticating with credential's CyberArkApiKey
// value via the x-api-key header.
func (p *Provider) FetchSecret(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (*provider.Secret, error) {
	apiKey, ok := credential.CyberArkApiKeyValue()
	if !ok {
		return nil, errs.NewAccess(ref, "CyberArk provider requires a CYBERARK_API_KEY credential", nil)
	}

	endpoint := fmt.Sprintf("%s/AIMWebService/api/Accounts", p.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.NewAccess(ref, "failed to build request", err)
	}

	q := url.Values{}
	q.Set("AppID", p.appID)
	q.Set("Object", ref.Name)
	if ref.VersionHint != "" && ref.VersionHint != provider.VersionLatest {
		q.Set("Safe", ref.VersionHint)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewAccess(ref, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewAccess(ref, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewAccess(ref, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed ccpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.NewAccess(ref, "failed to decode response", err)
	}
	if parsed.Content == "" {
		return nil, errs.NewAccess(ref, "response carried no Content field", nil)
	}

	version := parsed.ChangedAt
	if version == "" {
		version = parsed.PolicyID
	}

	meta := provider.NewSecretMetadata(version, provider.CyberArk, ref).WithTimestamp()
	id := ref.String() + "@" + version
	return provider.NewSecret(id, ref.Name, []byte(parsed.Content), meta), nil
}
