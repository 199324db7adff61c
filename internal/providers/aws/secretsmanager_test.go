package aws_test

import (
	"context"
	"errors"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	secretsmanagerprovider "github.com/systmms/secretaccess/internal/providers/aws"
	"github.com/systmms/secretaccess/pkg/provider"
)

type fakeSTS struct {
	calls      int
	expiration time.Time
	err        error
}

func (f *fakeSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.AssumeRoleOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     awssdk.String("AKIAFAKE"),
			SecretAccessKey: awssdk.String("fakesecret"),
			SessionToken:    awssdk.String("faketoken"),
			Expiration:      awssdk.Time(f.expiration),
		},
	}, nil
}

type fakeSecretsManager struct {
	value string
	err   error
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{
		SecretString: awssdk.String(f.value),
		VersionId:    awssdk.String("v1"),
	}, nil
}

func testCredential(t *testing.T) provider.AccessCredential {
	t.Helper()
	cfg, err := provider.NewSTSAssumeRoleConfig("arn:aws:iam::123456789012:role/test", "", 0, "")
	require.NoError(t, err)
	cred, err := provider.NewIamRoleCredential(cfg)
	require.NoError(t, err)
	return cred
}

func testRef(t *testing.T) provider.SecretReference {
	t.Helper()
	ref, err := provider.NewSecretReference(provider.AwsSecretsManager, "db", "")
	require.NoError(t, err)
	return ref
}

func TestFetchSecretReturnsValueAndVersion(t *testing.T) {
	t.Parallel()

	stsClient := &fakeSTS{expiration: time.Now().Add(time.Hour)}
	smClient := &fakeSecretsManager{value: "hunter2"}

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(stsClient),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return smClient }),
	)
	require.NoError(t, err)

	secret, err := p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret.Value())
	assert.Equal(t, "v1", secret.Metadata().Version)
	assert.Equal(t, 1, stsClient.calls)
}

func TestFetchSecretReusesAssumedSessionUntilExpiry(t *testing.T) {
	t.Parallel()

	stsClient := &fakeSTS{expiration: time.Now().Add(time.Hour)}
	smClient := &fakeSecretsManager{value: "hunter2"}

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(stsClient),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return smClient }),
	)
	require.NoError(t, err)

	_, err = p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.NoError(t, err)
	_, err = p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.NoError(t, err)

	assert.Equal(t, 1, stsClient.calls, "a second fetch before expiry must not re-assume the role")
}

func TestFetchSecretReAssumesAfterExpiry(t *testing.T) {
	t.Parallel()

	stsClient := &fakeSTS{expiration: time.Now().Add(-time.Second)}
	smClient := &fakeSecretsManager{value: "hunter2"}

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(stsClient),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return smClient }),
	)
	require.NoError(t, err)

	_, err = p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.NoError(t, err)
	_, err = p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.NoError(t, err)

	assert.Equal(t, 2, stsClient.calls, "an already-expired session must be re-assumed")
}

func TestFetchSecretRejectsNonIamRoleCredential(t *testing.T) {
	t.Parallel()

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(&fakeSTS{}),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return &fakeSecretsManager{} }),
	)
	require.NoError(t, err)

	cyberArkCred, err := provider.NewCyberArkApiKeyCredential("api-key")
	require.NoError(t, err)

	_, err = p.FetchSecret(context.Background(), testRef(t), cyberArkCred)
	require.Error(t, err)
}

func TestFetchSecretWrapsAssumeRoleFailureAsAccessError(t *testing.T) {
	t.Parallel()

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(&fakeSTS{err: errors.New("access denied")}),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return &fakeSecretsManager{} }),
	)
	require.NoError(t, err)

	_, err = p.FetchSecret(context.Background(), testRef(t), testCredential(t))
	require.Error(t, err)
}

func TestSupportsStoreOnlyMatchesAwsSecretsManager(t *testing.T) {
	t.Parallel()

	p, err := secretsmanagerprovider.New(context.Background(), "us-east-1",
		secretsmanagerprovider.WithSTSClient(&fakeSTS{}),
		secretsmanagerprovider.WithClientFactory(func(awssdk.Config) secretsmanagerprovider.SecretsManagerAPI { return &fakeSecretsManager{} }),
	)
	require.NoError(t, err)

	assert.True(t, p.SupportsStore(provider.AwsSecretsManager))
	assert.False(t, p.SupportsStore(provider.CyberArk))
}
