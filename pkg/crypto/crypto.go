// Package crypto provides the cryptographic primitives for vaultkeeper.
//
// A vault key is derived from the master password with PBKDF2-HMAC-SHA256
// and kept in its textual (URL-safe base64) form. Individual record fields
// are sealed with AES-256-GCM into self-contained text tokens.
//
// # Security Features
//
//   - PBKDF2-HMAC-SHA256 key derivation (600,000 iterations)
//   - AES-256-GCM authenticated encryption with a random nonce per call
//   - Versioned tokens; the version byte is authenticated
//   - Secure memory wiping for key material
//
// # Example Usage
//
//	key := crypto.DeriveKey("master password", "personal")
//	defer key.Wipe()
//
//	token, err := crypto.Encrypt("hunter2", key)
//	plaintext, err := crypto.Decrypt(token, key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and token parameters.
const (
	// Iterations is the PBKDF2 work factor. Vaults re-derive their key on
	// every open, so lowering it makes existing vaults unreadable.
	Iterations = 600_000

	// KeyLength is the length of raw encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TokenVersion is the first byte of every token.
	TokenVersion byte = 0x01
)

// Sentinel errors returned by crypto functions.
var (
	// ErrAuthenticationFailed indicates the token was not produced by Encrypt
	// under the given key, was tampered with, or is malformed.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")

	// ErrInvalidKey indicates the key is not a base64 encoded 32-byte key.
	ErrInvalidKey = errors.New("crypto: invalid key, must be 32 bytes in url-safe base64")
)

var encoding = base64.URLEncoding

// Key is a derived vault key in its textual form.
type Key []byte

// Wipe overwrites the key in place.
func (k Key) Wipe() {
	SecureWipe(k)
}

// String hides the key material from fmt output.
func (k Key) String() string {
	return "crypto.Key(redacted)"
}

// raw decodes the textual key into its 32 raw bytes.
func (k Key) raw() ([]byte, error) {
	if len(k) != encoding.EncodedLen(KeyLength) {
		return nil, ErrInvalidKey
	}
	raw := make([]byte, KeyLength)
	n, err := encoding.Decode(raw, k)
	if err != nil || n != KeyLength {
		SecureWipe(raw)
		return nil, ErrInvalidKey
	}
	return raw, nil
}

// DeriveKey derives a vault key from a password and salt using
// PBKDF2-HMAC-SHA256.
//
// The result is deterministic for the same inputs. An empty password is
// accepted; the vault's validation row is what gates access.
func DeriveKey(password, salt string) Key {
	return DeriveKeyIterations(password, salt, Iterations)
}

// DeriveKeyIterations is DeriveKey with an explicit PBKDF2 work factor.
// A key derived with any other count than the one a vault was created with
// does not open it.
func DeriveKeyIterations(password, salt string, iterations int) Key {
	raw := pbkdf2.Key([]byte(password), []byte(salt), iterations, KeyLength, sha256.New)
	defer SecureWipe(raw)

	key := make(Key, encoding.EncodedLen(KeyLength))
	encoding.Encode(key, raw)
	return key
}

func newGCM(raw []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under key and returns a text token.
//
// The token is url-safe base64 of version || nonce || ciphertext+tag.
// A fresh random nonce is used on every call, so encrypting the same
// plaintext twice yields different tokens.
func Encrypt(plaintext string, key Key) (string, error) {
	raw, err := key.raw()
	if err != nil {
		return "", err
	}
	defer SecureWipe(raw)

	gcm, err := newGCM(raw)
	if err != nil {
		return "", err
	}

	blob := make([]byte, 1+NonceLength, 1+NonceLength+len(plaintext)+gcm.Overhead())
	blob[0] = TokenVersion
	nonce := blob[1 : 1+NonceLength]
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	blob = gcm.Seal(blob, nonce, []byte(plaintext), blob[:1])
	return encoding.EncodeToString(blob), nil
}

// Decrypt opens a token produced by Encrypt.
//
// Any token that does not verify under key yields an error wrapping
// ErrAuthenticationFailed. A malformed key yields ErrInvalidKey.
func Decrypt(token string, key Key) (string, error) {
	raw, err := key.raw()
	if err != nil {
		return "", err
	}
	defer SecureWipe(raw)

	blob, err := encoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: token is not valid base64", ErrAuthenticationFailed)
	}

	gcm, err := newGCM(raw)
	if err != nil {
		return "", err
	}

	if len(blob) < 1+NonceLength+gcm.Overhead() {
		return "", fmt.Errorf("%w: token too short", ErrAuthenticationFailed)
	}
	if blob[0] != TokenVersion {
		return "", fmt.Errorf("%w: unsupported token version %d", ErrAuthenticationFailed, blob[0])
	}

	nonce := blob[1 : 1+NonceLength]
	plaintext, err := gcm.Open(nil, nonce, blob[1+NonceLength:], blob[:1])
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}

// EncryptMany encrypts each present value and passes nil entries through.
// The returned slice has the same length and order as values.
func EncryptMany(values []*string, key Key) ([]*string, error) {
	out := make([]*string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		token, err := Encrypt(*v, key)
		if err != nil {
			return nil, fmt.Errorf("crypto: field %d: %w", i, err)
		}
		out[i] = &token
	}
	return out, nil
}

// DecryptMany is the inverse of EncryptMany.
func DecryptMany(tokens []*string, key Key) ([]*string, error) {
	out := make([]*string, len(tokens))
	for i, t := range tokens {
		if t == nil {
			continue
		}
		plaintext, err := Decrypt(*t, key)
		if err != nil {
			return nil, fmt.Errorf("crypto: field %d: %w", i, err)
		}
		out[i] = &plaintext
	}
	return out, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
