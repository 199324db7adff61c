// Package aws implements provider.Provider against AWS Secrets Manager,
// authenticating via STS AssumeRole. Grounded on the teacher's
// internal/providers.AWSSecretsManagerProvider (the GetSecretValue call,
// the SecretsManagerClientAPI seam for test injection) and
// internal/providers.AWSSTSProvider (the AssumeRole call and its
// expiry-based credential cache), merged into a single Provider because
// this core's AccessCredential already carries the assume-role config
// the teacher's two providers took as separate configuration.
package aws

import (
	"context"
	"sync"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
)

// SecretsManagerAPI is the subset of *secretsmanager.Client this Provider
// calls, narrowed for test injection.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// STSAssumeRoleAPI is the subset of *sts.Client this Provider calls.
type STSAssumeRoleAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

type assumedSession struct {
	client    SecretsManagerAPI
	expiresAt time.Time
}

// Provider is a Secrets Manager provider.Provider implementation. It
// accepts only IamRole credentials: each distinct STSAssumeRoleConfig is
// assumed once via STS and the resulting temporary credentials are
// reused for GetSecretValue calls until they expire.
type Provider struct {
	region    string
	sts       STSAssumeRoleAPI
	newClient func(awssdk.Config) SecretsManagerAPI

	mu       sync.Mutex
	sessions map[string]*assumedSession
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithSTSClient overrides the STS client (for tests).
func WithSTSClient(client STSAssumeRoleAPI) Option {
	return func(p *Provider) { p.sts = client }
}

// WithClientFactory overrides how an assumed-role secretsmanager client is
// built from an aws.Config (for tests).
func WithClientFactory(factory func(awssdk.Config) SecretsManagerAPI) Option {
	return func(p *Provider) { p.newClient = factory }
}

// New builds a Provider for region, loading the default AWS SDK
// configuration unless WithSTSClient/WithClientFactory override it.
func New(ctx context.Context, region string, opts ...Option) (*Provider, error) {
	p := &Provider{region: region, sessions: make(map[string]*assumedSession)}
	for _, opt := range opts {
		opt(p)
	}

	if p.sts == nil || p.newClient == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, errs.NewConfiguration("region", "failed to load AWS config: "+err.Error())
		}
		if p.sts == nil {
			p.sts = sts.NewFromConfig(cfg)
		}
		if p.newClient == nil {
			p.newClient = func(assumedCfg awssdk.Config) SecretsManagerAPI {
				return secretsmanager.NewFromConfig(assumedCfg)
			}
		}
	}

	return p, nil
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType provider.StoreType) bool {
	return storeType == provider.AwsSecretsManager
}

// SupportsChangeNotifications implements provider.Provider: Secrets
// Manager has no push mechanism this core consumes.
func (p *Provider) SupportsChangeNotifications() bool {
	return false
}

// GetLatestVersion is not supported by this Provider.
func (p *Provider) GetLatestVersion(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (string, bool) {
	return "", false
}

// FetchSecret implements provider.Provider against AWS Secrets Manager,
// authenticating via the credential's STSAssumeRoleConfig.
func (p *Provider) FetchSecret(ctx context.Context, ref provider.SecretReference, credential provider.AccessCredential) (*provider.Secret, error) {
	cfg, ok := credential.STSAssumeRoleConfigValue()
	if !ok {
		return nil, errs.NewAccess(ref, "AWS Secrets Manager provider requires an IAM_ROLE credential", nil)
	}

	client, err := p.clientFor(ctx, ref, cfg)
	if err != nil {
		return nil, err
	}

	var versionStage, versionID *string
	if ref.VersionHint != "" && ref.VersionHint != provider.VersionLatest {
		versionStage = awssdk.String(ref.VersionHint)
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     awssdk.String(ref.Name),
		VersionId:    versionID,
		VersionStage: versionStage,
	})
	if err != nil {
		return nil, errs.NewAccess(ref, "GetSecretValue failed", err)
	}

	var value []byte
	switch {
	case out.SecretString != nil:
		value = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		value = out.SecretBinary
	default:
		return nil, errs.NewAccess(ref, "secret has neither SecretString nor SecretBinary", nil)
	}

	version := ""
	if out.VersionId != nil {
		version = *out.VersionId
	}

	meta := provider.NewSecretMetadata(version, provider.AwsSecretsManager, ref).WithTimestamp()
	id := ref.String() + "@" + version
	return provider.NewSecret(id, ref.Name, value, meta), nil
}

// clientFor returns a cached assumed-role client for cfg.RoleArn, re-
// assuming the role if no cached session exists or it has expired.
func (p *Provider) clientFor(ctx context.Context, ref provider.SecretReference, cfg provider.STSAssumeRoleConfig) (SecretsManagerAPI, error) {
	p.mu.Lock()
	session, ok := p.sessions[cfg.RoleArn]
	p.mu.Unlock()

	if ok && time.Now().Before(session.expiresAt) {
		return session.client, nil
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         awssdk.String(cfg.RoleArn),
		RoleSessionName: awssdk.String(cfg.SessionName),
		DurationSeconds: awssdk.Int32(int32(cfg.DurationSeconds)),
	}
	if cfg.ExternalID != "" {
		input.ExternalId = awssdk.String(cfg.ExternalID)
	}

	out, err := p.sts.AssumeRole(ctx, input)
	if err != nil {
		return nil, errs.NewAccess(ref, "AssumeRole failed for "+cfg.RoleArn, err)
	}
	if out.Credentials == nil {
		return nil, errs.NewAccess(ref, "AssumeRole returned no credentials", nil)
	}

	assumedCfg := awssdk.Config{
		Region: p.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			*out.Credentials.AccessKeyId,
			*out.Credentials.SecretAccessKey,
			*out.Credentials.SessionToken,
		),
	}

	client := p.newClient(assumedCfg)
	session = &assumedSession{client: client, expiresAt: *out.Credentials.Expiration}

	p.mu.Lock()
	p.sessions[cfg.RoleArn] = session
	p.mu.Unlock()

	return client, nil
}
