package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, encryptionDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAEADManager_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(key, encryptionDomain.Algorithm("des"))
		assert.ErrorIs(t, err, encryptionDomain.ErrUnsupportedAlgorithm)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := manager.CreateCipher(make([]byte, 16), encryptionDomain.AESGCM)
		assert.ErrorIs(t, err, encryptionDomain.ErrInvalidKeySize)
	})

	t.Run("algorithms are not interchangeable", func(t *testing.T) {
		aesCipher, err := manager.CreateCipher(key, encryptionDomain.AESGCM)
		require.NoError(t, err)
		chachaCipher, err := manager.CreateCipher(key, encryptionDomain.ChaCha20)
		require.NoError(t, err)

		ciphertext, nonce, err := aesCipher.Encrypt([]byte("canary"), nil)
		require.NoError(t, err)
		_, err = chachaCipher.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
	})
}

func TestAEAD_RoundTrip(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)

	for _, alg := range []encryptionDomain.Algorithm{encryptionDomain.AESGCM, encryptionDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			plaintext := []byte(`{"password":"s3cr3t"}`)
			aad := []byte("credential-version")

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, 12)
			assert.NotEqual(t, plaintext, ciphertext)

			got, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)

			// nonces are never reused
			_, nonce2, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.NotEqual(t, nonce, nonce2)

			_, err = cipher.Decrypt(ciphertext, nonce, []byte("other"))
			assert.Error(t, err)

			tampered := append([]byte{}, ciphertext...)
			tampered[0] ^= 0xff
			_, err = cipher.Decrypt(tampered, nonce, aad)
			assert.Error(t, err)

			_, err = cipher.Decrypt(ciphertext, nonce[:4], aad)
			assert.Error(t, err)
		})
	}
}
