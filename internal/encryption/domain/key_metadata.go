// Package domain defines the encryption key management model: configured key metadata,
// canaries persisted per key, encrypted values and the runtime key set.
//
// Keys are declared in configuration and never change at runtime. Each configured key is
// mapped to a persisted canary by trial decryption; the canary id is the key identity stored
// next to every EncryptedValue, so values written under historical keys stay readable as
// long as the key remains configured.
package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeyMetadata describes one configured encryption key.
//
// The struct is comparable and is used as the memoization key of key proxies.
type KeyMetadata struct {
	ProviderName string
	ProviderType ProviderType
	Algorithm    Algorithm
	Name         string
	// Password is the secret the internal provider derives its key from.
	Password string
	// KeyURI is the gocloud.dev/secrets URL of a remote key (kms provider).
	KeyURI string
	Active bool
}

// String never prints secret material.
func (m KeyMetadata) String() string {
	return fmt.Sprintf("%s/%s(%s, active=%t)", m.ProviderName, m.Name, m.ProviderType, m.Active)
}

// KeyConfig is one key entry in the keys file.
type KeyConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password,omitempty"`
	KeyURI   string `yaml:"key_uri,omitempty"`
	Active   bool   `yaml:"active"`
}

// ProviderConfig is one provider entry in the keys file.
type ProviderConfig struct {
	Name      string       `yaml:"name"`
	Type      ProviderType `yaml:"type"`
	Algorithm Algorithm    `yaml:"algorithm,omitempty"`
	Keys      []KeyConfig  `yaml:"keys"`
}

// KeysConfig is the full set of configured providers and keys.
//
// Example file:
//
//	providers:
//	  - name: local
//	    type: internal
//	    algorithm: aes-gcm
//	    keys:
//	      - name: key-2026
//	        password: ${CREDSTORE_KEY_2026}
//	        active: true
//	      - name: key-2025
//	        password: ${CREDSTORE_KEY_2025}
//	  - name: cloud
//	    type: kms
//	    keys:
//	      - name: aws-main
//	        key_uri: awskms:///alias/credstore?region=us-east-1
type KeysConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadKeysConfig reads and validates the keys file. Environment references (${VAR}) are
// expanded before parsing so passwords can be kept out of the file.
func LoadKeysConfig(path string) (*KeysConfig, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read keys file %s: %v", ErrInvalidKeyMetadata, path, err)
	}
	return ParseKeysConfig([]byte(os.ExpandEnv(string(raw))))
}

// ParseKeysConfig parses and validates a YAML keys document.
func ParseKeysConfig(data []byte) (*KeysConfig, error) {
	var cfg KeysConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMetadata, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Keys flattens every provider's keys into KeyMetadata, preserving file order.
func (c *KeysConfig) Keys() []KeyMetadata {
	var keys []KeyMetadata
	for _, p := range c.Providers {
		alg := p.Algorithm
		if alg == "" && p.Type == ProviderInternal {
			alg = AESGCM
		}
		for _, k := range p.Keys {
			keys = append(keys, KeyMetadata{
				ProviderName: p.Name,
				ProviderType: p.Type,
				Algorithm:    alg,
				Name:         k.Name,
				Password:     k.Password,
				KeyURI:       k.KeyURI,
				Active:       k.Active,
			})
		}
	}
	return keys
}

// Validate checks that every key is well formed and that exactly one key is active.
func (c *KeysConfig) Validate() error {
	names := make(map[string]struct{})
	for _, key := range c.Keys() {
		if err := key.Validate(); err != nil {
			return err
		}
		if _, ok := names[key.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateKeyName, key.Name)
		}
		names[key.Name] = struct{}{}
	}
	_, err := ActiveKeyMetadata(c.Keys())
	return err
}

// Validate checks a single key entry.
func (m KeyMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: key name is required", ErrInvalidKeyMetadata)
	}
	switch m.ProviderType {
	case ProviderInternal:
		if m.Password == "" {
			return fmt.Errorf("%w: key %s requires a password", ErrInvalidKeyMetadata, m.Name)
		}
		if m.Algorithm != AESGCM && m.Algorithm != ChaCha20 {
			return fmt.Errorf("%w: %q for key %s", ErrUnsupportedAlgorithm, m.Algorithm, m.Name)
		}
	case ProviderKMS:
		if m.KeyURI == "" {
			return fmt.Errorf("%w: key %s requires a key_uri", ErrInvalidKeyMetadata, m.Name)
		}
	default:
		return fmt.Errorf("%w: %q for key %s", ErrUnsupportedProvider, m.ProviderType, m.Name)
	}
	return nil
}

// ActiveKeyMetadata returns the single key flagged active.
func ActiveKeyMetadata(keys []KeyMetadata) (KeyMetadata, error) {
	var active []KeyMetadata
	for _, k := range keys {
		if k.Active {
			active = append(active, k)
		}
	}
	switch len(active) {
	case 0:
		return KeyMetadata{}, ErrNoActiveKey
	case 1:
		return active[0], nil
	default:
		return KeyMetadata{}, fmt.Errorf("%w: %d keys are active", ErrMultipleActiveKeys, len(active))
	}
}

// WithActiveKey returns a copy of the configuration where key is the only active key.
// A key whose name is already configured must match its configured material; a new key is
// appended to the provider named key.ProviderName, which is created when missing.
func (c *KeysConfig) WithActiveKey(key KeyMetadata) (*KeysConfig, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	for _, configured := range c.Keys() {
		if configured.Name == key.Name && !sameMaterial(configured, key) {
			return nil, fmt.Errorf(
				"%w: key %s is already configured with different material",
				ErrInvalidKeyMetadata, key.Name,
			)
		}
	}

	out := &KeysConfig{Providers: make([]ProviderConfig, 0, len(c.Providers)+1)}
	found := false
	for _, p := range c.Providers {
		cp := p
		cp.Keys = make([]KeyConfig, 0, len(p.Keys)+1)
		for _, k := range p.Keys {
			k.Active = k.Name == key.Name
			found = found || k.Active
			cp.Keys = append(cp.Keys, k)
		}
		out.Providers = append(out.Providers, cp)
	}

	if !found {
		entry := KeyConfig{Name: key.Name, Password: key.Password, KeyURI: key.KeyURI, Active: true}
		placed := false
		for i := range out.Providers {
			if out.Providers[i].Name == key.ProviderName {
				if out.Providers[i].Type != key.ProviderType {
					return nil, fmt.Errorf(
						"%w: provider %s is %s, not %s",
						ErrInvalidKeyMetadata, key.ProviderName, out.Providers[i].Type, key.ProviderType,
					)
				}
				out.Providers[i].Keys = append(out.Providers[i].Keys, entry)
				placed = true
				break
			}
		}
		if !placed {
			out.Providers = append(out.Providers, ProviderConfig{
				Name:      key.ProviderName,
				Type:      key.ProviderType,
				Algorithm: key.Algorithm,
				Keys:      []KeyConfig{entry},
			})
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// sameMaterial reports whether a and b describe the same key, ignoring the active flag.
func sameMaterial(a, b KeyMetadata) bool {
	a.Active, b.Active = false, false
	if a.ProviderType != ProviderInternal {
		a.Algorithm, b.Algorithm = "", ""
	}
	return a == b
}
