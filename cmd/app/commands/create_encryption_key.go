package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-password/password"
	"gocloud.dev/secrets/localsecrets"
	"gopkg.in/yaml.v3"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

const generatedPasswordLength = 64

// RunCreateEncryptionKey prints a keys file provider entry holding one new key, ready to be
// merged into the encryption keys file.
//
// Internal keys get a generated password. KMS keys need keyURI; when it is empty a
// localsecrets base64key:// URI is generated, which is only suitable for local development.
// If keyName is empty, a default name in format "key-YYYY-MM-DD" is used.
func RunCreateEncryptionKey(
	writer io.Writer,
	providerName string,
	providerType string,
	algorithm string,
	keyName string,
	keyURI string,
	active bool,
) error {
	if providerName == "" {
		return fmt.Errorf("provider name is required")
	}
	if keyName == "" {
		keyName = fmt.Sprintf("key-%s", time.Now().UTC().Format("2006-01-02"))
	}

	provider := encryptionDomain.ProviderConfig{
		Name: providerName,
		Type: encryptionDomain.ProviderType(providerType),
	}
	key := encryptionDomain.KeyConfig{Name: keyName, Active: active}

	switch provider.Type {
	case encryptionDomain.ProviderInternal:
		if algorithm == "" {
			algorithm = string(encryptionDomain.AESGCM)
		}
		provider.Algorithm = encryptionDomain.Algorithm(algorithm)
		// no symbols: the keys file is expanded with os.ExpandEnv and '$' would be eaten
		pw, err := password.Generate(generatedPasswordLength, 10, 0, false, true)
		if err != nil {
			return fmt.Errorf("failed to generate key password: %w", err)
		}
		key.Password = pw
	case encryptionDomain.ProviderKMS:
		if keyURI == "" {
			uri, err := newLocalKeyURI()
			if err != nil {
				return err
			}
			keyURI = uri
			_, _ = fmt.Fprintln(writer, "# base64key:// keeps the key in this file, never use it in production")
		}
		key.KeyURI = keyURI
	default:
		return fmt.Errorf("invalid provider type: %s (valid options: internal, kms)", providerType)
	}

	if err := (encryptionDomain.KeyMetadata{
		ProviderName: provider.Name,
		ProviderType: provider.Type,
		Algorithm:    provider.Algorithm,
		Name:         key.Name,
		Password:     key.Password,
		KeyURI:       key.KeyURI,
		Active:       key.Active,
	}).Validate(); err != nil {
		return err
	}

	provider.Keys = []encryptionDomain.KeyConfig{key}
	out, err := yaml.Marshal(encryptionDomain.KeysConfig{
		Providers: []encryptionDomain.ProviderConfig{provider},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal keys file entry: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Merge this entry into the encryption keys file")
	_, err = writer.Write(out)
	return err
}

func newLocalKeyURI() (string, error) {
	key, err := localsecrets.NewRandomKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate local key: %w", err)
	}
	return "base64key://" + base64.URLEncoding.EncodeToString(key[:]), nil
}
