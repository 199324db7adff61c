package secretaccess

import (
	"fmt"
	"os"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/provider"
	"gopkg.in/yaml.v3"
)

// ManifestEntry names a secret reference's shape — which store, which
// name, which version hint — without ever carrying the secret's value or
// the credential used to fetch it. It mirrors the teacher's
// internal/config Reference, which likewise kept "which secret" separate
// from any secret material: a manifest is safe to commit alongside
// application code because it is reference metadata, not a vault dump.
type ManifestEntry struct {
	Store       provider.StoreType `yaml:"store"`
	Name        string             `yaml:"name"`
	VersionHint string             `yaml:"versionHint"`
}

// Manifest is the YAML-decoded shape of a manifest file: a set of named
// secret reference entries keyed by the same names callers pass to
// Client.Register/Get. Loading a Manifest never touches a Provider or a
// credential — RegisterFromManifest still requires the caller to supply
// the credential at call time, keeping secret material out of the file
// entirely.
type Manifest struct {
	Secrets map[string]ManifestEntry `yaml:"secrets"`
}

// LoadManifest reads and parses a manifest file at path, following the
// teacher's internal/config.Config.Load shape: read the file, unmarshal
// as YAML, and wrap either failure as this core's own error taxonomy
// rather than returning the raw os/yaml error.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NewConfiguration("path", fmt.Sprintf("manifest file not found: %s", path))
		}
		return nil, errs.NewConfiguration("path", fmt.Sprintf("could not read manifest file %s: %v", path, err))
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errs.NewConfiguration("manifest", fmt.Sprintf("invalid YAML syntax in manifest file %s: %v", path, err))
	}
	return &m, nil
}

// entry looks up name, raising ConfigurationError if the manifest was
// never loaded or does not name it.
func (m *Manifest) entry(name string) (ManifestEntry, error) {
	if m == nil {
		return ManifestEntry{}, errs.NewConfiguration("manifest", "no manifest file was set via Builder.WithManifestFile")
	}
	entry, ok := m.Secrets[name]
	if !ok {
		return ManifestEntry{}, errs.NewConfiguration("name", "manifest has no entry named "+name)
	}
	return entry, nil
}
