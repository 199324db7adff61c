package resolve_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretaccess/internal/cache"
	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/eventbus"
	"github.com/systmms/secretaccess/internal/providers/mock"
	"github.com/systmms/secretaccess/internal/refresh"
	"github.com/systmms/secretaccess/internal/resolve"
	"github.com/systmms/secretaccess/pkg/provider"
)

func mustRef(t *testing.T, name, versionHint string) provider.SecretReference {
	t.Helper()
	ref, err := provider.NewSecretReference(provider.AwsSecretsManager, name, versionHint)
	require.NoError(t, err)
	return ref
}

func mustCredential(t *testing.T) provider.AccessCredential {
	t.Helper()
	cred, err := provider.NewCyberArkApiKeyCredential("api-key-value")
	require.NoError(t, err)
	return cred
}

// TestColdReadFetchesOnceAndPublishesRefreshed mirrors S1: an empty
// cache, a mock provider holding one value, a single Get producing one
// Provider call, a populated cache entry, and one ValueChanged=true
// SecretRefreshed event.
func TestColdReadFetchesOnceAndPublishesRefreshed(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "db", "")
	prov := mock.New(provider.AwsSecretsManager)
	prov.SetValue(ref, "abc", "v1")
	c := cache.New()
	bus := eventbus.New(nil)

	agg, err := resolve.New(ref, mustCredential(t), prov, c, nil, bus)
	require.NoError(t, err)

	secret, err := agg.GetSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), secret.Value())

	_, hit := c.Get(ref)
	assert.True(t, hit)

	history := bus.PublishedHistory()
	require.Len(t, history, 1)
	refreshed, ok := history[0].(eventbus.SecretRefreshed)
	require.True(t, ok)
	assert.True(t, refreshed.ValueChanged)
	assert.Equal(t, "v1", refreshed.Version)
}

// TestStaleReadRefetchesAfterTTLExpiry mirrors S3.
func TestStaleReadRefetchesAfterTTLExpiry(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "db", "")
	prov := mock.New(provider.AwsSecretsManager)
	prov.SetValue(ref, "abc", "v1")
	c := cache.New()
	c.SetDefaultTTL(50 * time.Millisecond)
	bus := eventbus.New(nil)

	agg, err := resolve.New(ref, mustCredential(t), prov, c, nil, bus)
	require.NoError(t, err)

	_, err = agg.GetSecret(context.Background())
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	prov.SetValue(ref, "def", "v2")
	secret, err := agg.GetSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("def"), secret.Value())

	history := bus.PublishedHistory()
	require.Len(t, history, 2, "one SecretRefreshed per fetch")
}

// TestRolloverDetectionPrecedesRefreshed mirrors S4: a pre-loaded
// inactive sibling, two refreshes on the active reference where the
// version changes between them, and SecretRolloverDetected published
// immediately before SecretRefreshed on the second refresh.
func TestRolloverDetectionPrecedesRefreshed(t *testing.T) {
	t.Parallel()

	activeRef := mustRef(t, "rot", "active")
	inactiveRef := mustRef(t, "rot", "inactive")

	c := cache.New()
	inactiveMeta := provider.NewSecretMetadata("old", inactiveRef.StoreType, inactiveRef)
	c.Put(provider.NewSecret("inactive-id", inactiveRef.Name, []byte("old-inactive"), inactiveMeta))

	prov := mock.New(provider.AwsSecretsManager)
	prov.SetValue(activeRef, "v1-value", "v1")
	bus := eventbus.New(nil)

	agg, err := resolve.New(activeRef, mustCredential(t), prov, c, nil, bus)
	require.NoError(t, err)

	_, err = agg.RefreshSecret(context.Background())
	require.NoError(t, err)

	prov.SetValue(activeRef, "v2-value", "v2")
	_, err = agg.RefreshSecret(context.Background())
	require.NoError(t, err)

	history := bus.PublishedHistory()
	require.Len(t, history, 3, "first refresh's SecretRefreshed, then rollover + second SecretRefreshed")

	rollover, ok := history[1].(eventbus.SecretRolloverDetected)
	require.True(t, ok, "rollover must be published on the second refresh")
	assert.Equal(t, activeRef, rollover.ActiveReference)
	assert.Equal(t, inactiveRef, rollover.InactiveReference)
	assert.Equal(t, "v2", rollover.NewActiveVersion)

	refreshed, ok := history[2].(eventbus.SecretRefreshed)
	require.True(t, ok, "SecretRefreshed must immediately follow the rollover event")
	assert.Equal(t, "v2", refreshed.Version)
}

// TestProviderErrorLeavesCacheUnchangedAndPublishesNoEvent mirrors S5.
func TestProviderErrorLeavesCacheUnchangedAndPublishesNoEvent(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "x", "")
	prov := mock.New(provider.AwsSecretsManager)
	prov.SetFailure(ref, assert.AnError)
	c := cache.New()
	bus := eventbus.New(nil)

	agg, err := resolve.New(ref, mustCredential(t), prov, c, nil, bus)
	require.NoError(t, err)

	_, err = agg.GetSecret(context.Background())
	require.Error(t, err)

	var accessErr errs.AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, ref, accessErr.Reference)

	_, hit := c.Get(ref)
	assert.False(t, hit)
	assert.Empty(t, bus.PublishedHistory())
}

// TestConcurrentGetsCoalesceOntoASingleProviderCall verifies the
// single-flight guarantee: many concurrent GetSecret calls against a
// cold cache must result in exactly one Provider call.
func TestConcurrentGetsCoalesceOntoASingleProviderCall(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "db", "")
	prov := mock.New(provider.AwsSecretsManager)
	prov.SetValue(ref, "abc", "v1")
	prov.SetDelay(ref, 50*time.Millisecond)
	c := cache.New()
	bus := eventbus.New(nil)

	agg, err := resolve.New(ref, mustCredential(t), prov, c, nil, bus)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	results := make([]*provider.Secret, n)
	errsOut := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errsOut[i] = agg.GetSecret(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errsOut[i])
		assert.Equal(t, []byte("abc"), results[i].Value())
	}
	assert.Len(t, bus.PublishedHistory(), 1, "one Provider fetch publishes exactly one SecretRefreshed")
}

func TestNewRejectsProviderThatDoesNotSupportStoreType(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "db", "")
	prov := mock.New(provider.CyberArk)
	c := cache.New()

	_, err := resolve.New(ref, mustCredential(t), prov, c, nil, eventbus.New(nil))
	require.Error(t, err)
	var cfgErr errs.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

// TestPolicyTriggeredRefreshStillDetectsRollover proves a refresh driven
// by a Policy's own TriggerRefresh (rather than a direct GetSecret/
// RefreshSecret call) still goes through this Aggregate's single-flight
// guard and rollover detection, rather than fetching and caching on its
// own as a parallel, uncoordinated path.
func TestPolicyTriggeredRefreshStillDetectsRollover(t *testing.T) {
	t.Parallel()

	activeRef := mustRef(t, "rot", "active")
	inactiveRef := mustRef(t, "rot", "inactive")

	c := cache.New()
	inactiveMeta := provider.NewSecretMetadata("old", inactiveRef.StoreType, inactiveRef)
	c.Put(provider.NewSecret("inactive-id", inactiveRef.Name, []byte("old-inactive"), inactiveMeta))

	prov := mock.New(provider.AwsSecretsManager)
	prov.SetValue(activeRef, "v1-value", "v1")
	bus := eventbus.New(nil)

	policy := refresh.NewPolling(time.Hour, bus, nil)

	agg, err := resolve.New(activeRef, mustCredential(t), prov, c, policy, bus)
	require.NoError(t, err)
	defer agg.Stop()

	// resolve.New must have registered the Aggregate itself as the
	// Policy's Refresher for this reference.
	ok := policy.TriggerRefresh(context.Background(), activeRef)
	require.True(t, ok, "policy must have the reference registered")

	prov.SetValue(activeRef, "v2-value", "v2")
	ok = policy.TriggerRefresh(context.Background(), activeRef)
	require.True(t, ok)

	history := bus.PublishedHistory()
	// each TriggerRefresh publishes SecretRefreshRequested, then the
	// Aggregate's own SecretRefreshed (and, on the second call, the
	// rollover it detects): requested, refreshed, requested, rollover, refreshed.
	require.Len(t, history, 5)
	assert.IsType(t, eventbus.SecretRefreshRequested{}, history[0])
	assert.IsType(t, eventbus.SecretRefreshed{}, history[1])
	assert.IsType(t, eventbus.SecretRefreshRequested{}, history[2])

	rollover, ok := history[3].(eventbus.SecretRolloverDetected)
	require.True(t, ok, "a policy-triggered refresh must still detect rollover")
	assert.Equal(t, "v2", rollover.NewActiveVersion)

	refreshed, ok := history[4].(eventbus.SecretRefreshed)
	require.True(t, ok)
	assert.Equal(t, "v2", refreshed.Version)
}

func TestNewRejectsNilProviderAndCache(t *testing.T) {
	t.Parallel()

	ref := mustRef(t, "db", "")
	cred := mustCredential(t)

	_, err := resolve.New(ref, cred, nil, cache.New(), nil, nil)
	require.Error(t, err)

	_, err = resolve.New(ref, cred, mock.New(provider.AwsSecretsManager), nil, nil, nil)
	require.Error(t, err)
}
