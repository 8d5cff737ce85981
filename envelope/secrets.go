package envelope

import (
	"crypto/hmac"
	"crypto/rand"
	"fmt"
)

// Access secrets are never persisted in cleartext. A node record carries two
// derived forms: a scrypt-salted hash used to check a caller-supplied secret,
// and a wrapped copy sealed under the deployment secret so folder export can
// decrypt descendants without asking for each one's secret.

// HashSecret returns salt||scrypt(secret, salt) for storage.
func HashSecret(secret string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := deriveKey(secret, salt)
	if err != nil {
		return nil, fmt.Errorf("derive hash: %w", err)
	}
	out := make([]byte, 0, SaltSize+keySize)
	out = append(out, salt...)
	out = append(out, hash...)
	return out, nil
}

// VerifySecret checks a candidate against a stored hash in constant time.
func VerifySecret(secret string, stored []byte) bool {
	if len(stored) != SaltSize+keySize {
		return false
	}
	computed, err := deriveKey(secret, stored[:SaltSize])
	if err != nil {
		return false
	}
	return hmac.Equal(computed, stored[SaltSize:])
}

// WrapSecret seals a secret under the deployment fallback secret using the
// standard envelope format.
func (c *Codec) WrapSecret(secret string) ([]byte, error) {
	return c.Encrypt([]byte(secret), "")
}

// UnwrapSecret recovers a secret wrapped by WrapSecret.
func (c *Codec) UnwrapSecret(wrapped []byte) (string, error) {
	plain, err := c.Decrypt(wrapped, "")
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
