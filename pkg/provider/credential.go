package provider

import (
	"fmt"
	"time"
)

// CredentialMethod is an enumerated authentication scheme.
type CredentialMethod string

const (
	CyberArkApiKey CredentialMethod = "CYBERARK_API_KEY"
	IamRole        CredentialMethod = "IAM_ROLE"
)

// STSAssumeRoleConfig is the payload for an IamRole credential: an
// immutable record describing which role to assume via AWS STS and for
// how long. roleArn is required; externalId is optional and is redacted
// in any diagnostic form.
type STSAssumeRoleConfig struct {
	RoleArn         string
	SessionName     string
	DurationSeconds int
	ExternalID      string
}

// DefaultSTSSessionName and DefaultSTSDurationSeconds are the defaults
// applied by NewSTSAssumeRoleConfig when the caller leaves those fields
// zero.
const (
	DefaultSTSSessionName     = "SecretAccessSession"
	DefaultSTSDurationSeconds = 900
)

// NewSTSAssumeRoleConfig builds a validated STSAssumeRoleConfig, applying
// defaults for an empty SessionName or zero DurationSeconds.
func NewSTSAssumeRoleConfig(roleArn, sessionName string, durationSeconds int, externalID string) (STSAssumeRoleConfig, error) {
	if roleArn == "" {
		return STSAssumeRoleConfig{}, NewValidationError("roleArn", "sts assume-role config: roleArn must not be empty")
	}
	if sessionName == "" {
		sessionName = DefaultSTSSessionName
	}
	if durationSeconds == 0 {
		durationSeconds = DefaultSTSDurationSeconds
	}
	return STSAssumeRoleConfig{
		RoleArn:         roleArn,
		SessionName:     sessionName,
		DurationSeconds: durationSeconds,
		ExternalID:      externalID,
	}, nil
}

// Duration returns the configured session duration as a time.Duration.
func (c STSAssumeRoleConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// String renders a diagnostic form that elides the external ID, matching
// the spec's "never disclose payload bytes" rendering requirement.
func (c STSAssumeRoleConfig) String() string {
	externalID := "(none)"
	if c.ExternalID != "" {
		externalID = "[REDACTED]"
	}
	return fmt.Sprintf("STSAssumeRoleConfig{RoleArn: %s, SessionName: %s, DurationSeconds: %d, ExternalID: %s}",
		c.RoleArn, c.SessionName, c.DurationSeconds, externalID)
}

// AccessCredential is an immutable (method, payload) pair. The payload
// type is constrained by method: CyberArkApiKey requires a non-empty
// opaque string; IamRole requires an STSAssumeRoleConfig. This is a sum
// type rather than a reflective runtime check — exactly one of apiKey or
// stsConfig is populated, selected by method, and the accessors below are
// the only way to read the payload back out.
//
// Per the core's design notes, the historical "IamRole with a bare string
// payload" variant does not exist here: no provider ever consumed it, and
// the sum-typed redesign drops it rather than carrying forward a payload
// shape with no consumer.
type AccessCredential struct {
	method    CredentialMethod
	apiKey    string
	stsConfig STSAssumeRoleConfig
}

// NewCyberArkApiKeyCredential builds an AccessCredential for the
// CyberArkApiKey method. apiKey must be non-empty.
func NewCyberArkApiKeyCredential(apiKey string) (AccessCredential, error) {
	if apiKey == "" {
		return AccessCredential{}, NewValidationError("apiKey", "CYBERARK_API_KEY credential requires a non-empty API key")
	}
	return AccessCredential{method: CyberArkApiKey, apiKey: apiKey}, nil
}

// NewIamRoleCredential builds an AccessCredential for the IamRole method
// from a validated STSAssumeRoleConfig.
func NewIamRoleCredential(cfg STSAssumeRoleConfig) (AccessCredential, error) {
	if cfg.RoleArn == "" {
		return AccessCredential{}, NewValidationError("stsConfig", "IAM_ROLE credential requires a non-empty STSAssumeRoleConfig (roleArn)")
	}
	return AccessCredential{method: IamRole, stsConfig: cfg}, nil
}

// Method returns the credential's authentication scheme.
func (c AccessCredential) Method() CredentialMethod {
	return c.method
}

// CyberArkApiKeyValue returns the API key payload and true, or ("", false)
// if this credential is not a CyberArkApiKey credential.
func (c AccessCredential) CyberArkApiKeyValue() (string, bool) {
	if c.method != CyberArkApiKey {
		return "", false
	}
	return c.apiKey, true
}

// STSAssumeRoleConfigValue returns the STS config payload and true, or
// (zero value, false) if this credential is not an IamRole credential.
func (c AccessCredential) STSAssumeRoleConfigValue() (STSAssumeRoleConfig, bool) {
	if c.method != IamRole {
		return STSAssumeRoleConfig{}, false
	}
	return c.stsConfig, true
}

// String renders a diagnostic form that never discloses payload bytes.
func (c AccessCredential) String() string {
	switch c.method {
	case CyberArkApiKey:
		return fmt.Sprintf("AccessCredential{Method: %s, ApiKey: [REDACTED]}", c.method)
	case IamRole:
		return fmt.Sprintf("AccessCredential{Method: %s, STSConfig: %s}", c.method, c.stsConfig)
	default:
		return fmt.Sprintf("AccessCredential{Method: %s}", c.method)
	}
}
