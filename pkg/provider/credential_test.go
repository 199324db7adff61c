package provider_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretaccess/pkg/provider"
)

// TestNewCyberArkApiKeyCredentialRejectsEmptyKey is scenario S6: a bad
// credential must raise a ValidationError a caller can recognize with
// errors.As, not a bare error string.
func TestNewCyberArkApiKeyCredentialRejectsEmptyKey(t *testing.T) {
	t.Parallel()
	_, err := provider.NewCyberArkApiKeyCredential("")
	require.Error(t, err)

	var validationErr provider.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "apiKey", validationErr.Field)
}

func TestNewIamRoleCredentialRejectsEmptyRoleArn(t *testing.T) {
	t.Parallel()
	_, err := provider.NewIamRoleCredential(provider.STSAssumeRoleConfig{})
	require.Error(t, err)

	var validationErr provider.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNewSTSAssumeRoleConfigRejectsEmptyRoleArn(t *testing.T) {
	t.Parallel()
	_, err := provider.NewSTSAssumeRoleConfig("", "", 0, "")
	require.Error(t, err)

	var validationErr provider.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNewSTSAssumeRoleConfigAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123:role/x", "", 0, "")
	require.NoError(t, err)
	assert.Equal(t, provider.DefaultSTSSessionName, cfg.SessionName)
	assert.Equal(t, provider.DefaultSTSDurationSeconds, cfg.DurationSeconds)
}

// TestAccessCredentialStringNeverLeaksPayload is property 4 (redaction):
// String() on a credential carrying either payload shape must not
// disclose the raw secret bytes it wraps.
func TestAccessCredentialStringNeverLeaksPayload(t *testing.T) {
	t.Parallel()

	apiKeyCred, err := provider.NewCyberArkApiKeyCredential("sekrit-api-key-value")
	require.NoError(t, err)
	assert.NotContains(t, apiKeyCred.String(), "sekrit-api-key-value")
	assert.Contains(t, apiKeyCred.String(), "REDACTED")

	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123:role/x", "", 0, "shh-external-id")
	require.NoError(t, err)
	stsCred, err := provider.NewIamRoleCredential(cfg)
	require.NoError(t, err)
	assert.NotContains(t, stsCred.String(), "shh-external-id")
	assert.Contains(t, stsCred.String(), "REDACTED")
}

func TestSTSAssumeRoleConfigStringElidesEmptyExternalID(t *testing.T) {
	t.Parallel()
	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123:role/x", "", 0, "")
	require.NoError(t, err)
	assert.Contains(t, cfg.String(), "(none)")
	assert.False(t, strings.Contains(cfg.String(), "REDACTED"))
}

// TestAccessCredentialEqualityLaws is property 5: two credentials built
// from the same method and payload must be equal and interchangeable as
// map keys; credentials differing in either must not be.
func TestAccessCredentialEqualityLaws(t *testing.T) {
	t.Parallel()

	a, err := provider.NewCyberArkApiKeyCredential("key-1")
	require.NoError(t, err)
	b, err := provider.NewCyberArkApiKeyCredential("key-1")
	require.NoError(t, err)
	c, err := provider.NewCyberArkApiKeyCredential("key-2")
	require.NoError(t, err)

	assert.Equal(t, a, b, "same method and payload must be equal")
	assert.NotEqual(t, a, c, "different payloads must not be equal")

	seen := map[provider.AccessCredential]bool{a: true}
	assert.True(t, seen[b], "equal credentials must hash to the same map key")
	assert.False(t, seen[c])
}

func TestAccessCredentialAccessorsReportWrongMethodAsAbsent(t *testing.T) {
	t.Parallel()
	apiKeyCred, err := provider.NewCyberArkApiKeyCredential("key-1")
	require.NoError(t, err)

	_, ok := apiKeyCred.STSAssumeRoleConfigValue()
	assert.False(t, ok, "a CyberArk credential must not yield an STS config")

	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123:role/x", "", 0, "")
	require.NoError(t, err)
	stsCred, err := provider.NewIamRoleCredential(cfg)
	require.NoError(t, err)

	_, ok = stsCred.CyberArkApiKeyValue()
	assert.False(t, ok, "an IAM role credential must not yield an API key")
}

func TestValidationErrorIsDistinguishableFromOtherErrors(t *testing.T) {
	t.Parallel()
	_, err := provider.NewCyberArkApiKeyCredential("")

	var validationErr provider.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	plain := errors.New("unrelated failure")
	assert.False(t, errors.As(plain, &validationErr))
}
