package domain

// Zero overwrites derived key material and decrypted plaintext once it is no longer needed.
func Zero(b []byte) {
	clear(b)
}
