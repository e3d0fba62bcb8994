// Package seal encrypts stored passwords at rest.
// sealing is opt-in; the default Plain sealer stores text verbatim.
package seal

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zarlcorp/core/pkg/zcrypto"
)

const verifyToken = "zpass-store-ok"

// ErrWrongPassphrase is returned when a passphrase does not match the store.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// Sealer converts a password to and from its stored form.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// Plain stores passwords verbatim.
type Plain struct{}

func (Plain) Seal(plaintext string) (string, error) { return plaintext, nil }
func (Plain) Open(stored string) (string, error)    { return stored, nil }

// Cipher seals passwords with AES-256-GCM under a passphrase-derived key.
type Cipher struct {
	key []byte
}

// NewSalt returns fresh random salt for key derivation.
func NewSalt() ([]byte, error) {
	salt, err := zcrypto.RandBytes(zcrypto.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NewCipher derives a key from passphrase and salt.
func NewCipher(passphrase, salt []byte) (*Cipher, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("new cipher: empty passphrase")
	}
	key, _, err := zcrypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("new cipher: derive key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Seal encrypts plaintext and returns it base64 encoded.
func (c *Cipher) Seal(plaintext string) (string, error) {
	ct, err := zcrypto.Encrypt(c.key, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal.
func (c *Cipher) Open(stored string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("open: base64 decode: %w", err)
	}
	plain, err := zcrypto.Decrypt(c.key, ct)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plain), nil
}

// Token returns an encrypted verification token for this key.
func (c *Cipher) Token() ([]byte, error) {
	ct, err := zcrypto.Encrypt(c.key, []byte(verifyToken))
	if err != nil {
		return nil, fmt.Errorf("encrypt verify token: %w", err)
	}
	return ct, nil
}

// Verify checks that token was produced by Token under the same key.
func (c *Cipher) Verify(token []byte) error {
	plain, err := zcrypto.Decrypt(c.key, token)
	if err != nil || string(plain) != verifyToken {
		return ErrWrongPassphrase
	}
	return nil
}

// Close erases the key from memory.
func (c *Cipher) Close() {
	zcrypto.Erase(c.key)
	c.key = nil
}
