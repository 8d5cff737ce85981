package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/crypto/scrypt"
)

const (
	SaltSize   = 16
	IVSize     = 16
	TagSize    = 16
	HeaderSize = SaltSize + IVSize + TagSize

	keySize = 32

	// scrypt cost parameters, interactive-grade but memory-hard
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	// ErrMalformedEnvelope is returned when the input is too short to hold
	// the fixed header, before any key derivation is attempted.
	ErrMalformedEnvelope = errors.New("malformed envelope: shorter than header")

	// ErrIntegrity covers both tampered ciphertext and a wrong passphrase.
	// The two cases are deliberately indistinguishable.
	ErrIntegrity = errors.New("envelope integrity check failed")
)

// Codec seals and opens encrypted envelopes. Objects stored without their own
// passphrase are keyed from the deployment-wide fallback secret instead.
//
// Envelope layout: salt(16) || iv(16) || authTag(16) || ciphertext.
type Codec struct {
	fallbackSecret string
}

func NewCodec(fallbackSecret string) *Codec {
	return &Codec{fallbackSecret: fallbackSecret}
}

func (c *Codec) passphraseOrFallback(passphrase string) string {
	if passphrase == "" {
		return c.fallbackSecret
	}
	return passphrase
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext into a fresh envelope. A new random salt and iv are
// generated on every call, so two objects sealed under the same passphrase
// never share key material.
func (c *Codec) Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key, err := deriveKey(c.passphraseOrFallback(passphrase), salt)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// Seal appends the tag after the ciphertext; the envelope wants it in
	// the header instead.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	env := make([]byte, 0, HeaderSize+len(ciphertext))
	env = append(env, salt...)
	env = append(env, iv...)
	env = append(env, tag...)
	env = append(env, ciphertext...)

	return env, nil
}

// Decrypt opens an envelope produced by Encrypt. Envelopes shorter than the
// fixed header fail with ErrMalformedEnvelope before any cryptographic work;
// any authentication failure surfaces as ErrIntegrity.
func (c *Codec) Decrypt(env []byte, passphrase string) ([]byte, error) {
	if len(env) < HeaderSize {
		return nil, ErrMalformedEnvelope
	}

	salt := env[:SaltSize]
	iv := env[SaltSize : SaltSize+IVSize]
	tag := env[SaltSize+IVSize : HeaderSize]
	ciphertext := env[HeaderSize:]

	key, err := deriveKey(c.passphraseOrFallback(passphrase), salt)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}

	return plaintext, nil
}

// DeriveFilename produces an opaque storage key for a blob. The original name
// contributes only its extension, so the blob store never learns what a file
// was called.
func DeriveFilename(originalName string) string {
	suffix := make([]byte, 16)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d_%x%s", time.Now().UnixMilli(), suffix, filepath.Ext(originalName))
}
