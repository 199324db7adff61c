// Package provider defines the external interface that secret store
// adapters implement, and the value types the secret access core passes
// across that boundary: store types, references, credentials, and secrets.
//
// A Provider is an opaque collaborator: the core routes a SecretReference
// to the first registered Provider whose SupportsStore reports true for
// the reference's StoreType, then calls FetchSecret on it. Everything
// about how a Provider talks to its backing store — AWS Secrets Manager,
// a CyberArk-style vault, or anything else — is the Provider's concern.
package provider

// StoreType is an enumerated tag identifying a family of backing secret
// stores. It carries no behavior; Providers advertise which StoreTypes
// they support via SupportsStore.
type StoreType string

// Initial StoreType members. The set is extensible: a custom Provider may
// advertise support for any StoreType value, including ones not listed
// here.
const (
	AwsSecretsManager StoreType = "AwsSecretsManager"
	CyberArk          StoreType = "CyberArk"
	AzureKeyVault     StoreType = "AzureKeyVault"
	GcpSecretManager  StoreType = "GcpSecretManager"
)
