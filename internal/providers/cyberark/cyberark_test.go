package cyberark_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretaccess/internal/providers/cyberark"
	"github.com/systmms/secretaccess/pkg/provider"
)

func testRef(t *testing.T, name, versionHint string) provider.SecretReference {
	t.Helper()
	ref, err := provider.NewSecretReference(provider.CyberArk, name, versionHint)
	require.NoError(t, err)
	return ref
}

func testCredential(t *testing.T) provider.AccessCredential {
	t.Helper()
	cred, err := provider.NewCyberArkApiKeyCredential("the-api-key")
	require.NoError(t, err)
	return cred
}

func TestFetchSecretReturnsContentAsValue(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "the-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "my-app", r.URL.Query().Get("AppID"))
		assert.Equal(t, "db", r.URL.Query().Get("Object"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"Content":         "hunter2",
			"LastChangedTime": "2024-01-01T00:00:00Z",
		})
	}))
	defer server.Close()

	p := cyberark.New(server.URL, "my-app")
	secret, err := p.FetchSecret(context.Background(), testRef(t, "db", ""), testCredential(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret.Value())
	assert.Equal(t, "2024-01-01T00:00:00Z", secret.Metadata().Version)
}

func TestFetchSecretWrapsNonOKStatusAsAccessError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("access denied"))
	}))
	defer server.Close()

	p := cyberark.New(server.URL, "my-app")
	_, err := p.FetchSecret(context.Background(), testRef(t, "db", ""), testCredential(t))
	require.Error(t, err)
}

func TestFetchSecretRejectsMissingContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	p := cyberark.New(server.URL, "my-app")
	_, err := p.FetchSecret(context.Background(), testRef(t, "db", ""), testCredential(t))
	require.Error(t, err)
}

func TestFetchSecretRejectsNonCyberArkCredential(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("the server must not be contacted without a CyberArk credential")
	}))
	defer server.Close()

	p := cyberark.New(server.URL, "my-app")
	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123456789012:role/test", "", 0, "")
	require.NoError(t, err)
	iamCred, err := provider.NewIamRoleCredential(cfg)
	require.NoError(t, err)

	_, err = p.FetchSecret(context.Background(), testRef(t, "db", ""), iamCred)
	require.Error(t, err)
}

func TestSupportsStoreOnlyMatchesCyberArk(t *testing.T) {
	t.Parallel()

	p := cyberark.New("http://example.invalid", "my-app")
	assert.True(t, p.SupportsStore(provider.CyberArk))
	assert.False(t, p.SupportsStore(provider.AwsSecretsManager))
}
