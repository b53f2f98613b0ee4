package prefs

import (
	"context"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MasterKeySize is the length in bytes of the key passed to NewEncrypted.
const MasterKeySize = 32

var errCiphertext = errors.New("malformed ciphertext")

// Encrypted wraps a Store so that key names are replaced by a keyed hash
// and values are sealed with XChaCha20-Poly1305.
type Encrypted struct {
	inner  Store
	keyMAC []byte
	aead   cipher.AEAD
}

// NewEncrypted derives the name and value subkeys from masterKey with
// HKDF-SHA256.
func NewEncrypted(inner Store, masterKey []byte) (*Encrypted, error) {
	if len(masterKey) != MasterKeySize {
		return nil, &StorageError{Op: "init", Err: fmt.Errorf("%w: master key must be %d bytes", ErrKeyUnavailable, MasterKeySize)}
	}

	keyMAC, err := derive(masterKey, "stepr-prefs-key", 32)
	if err != nil {
		return nil, &StorageError{Op: "init", Err: err}
	}
	valueKey, err := derive(masterKey, "stepr-prefs-value", chacha20poly1305.KeySize)
	if err != nil {
		return nil, &StorageError{Op: "init", Err: err}
	}
	aead, err := chacha20poly1305.NewX(valueKey)
	if err != nil {
		return nil, &StorageError{Op: "init", Err: err}
	}
	return &Encrypted{inner: inner, keyMAC: keyMAC, aead: aead}, nil
}

func derive(master []byte, info string, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive %s: %w", info, err)
	}
	return out, nil
}

func (e *Encrypted) storedKey(key string) string {
	mac := hmac.New(sha256.New, e.keyMAC)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *Encrypted) seal(key, value string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(value)+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", &StorageError{Op: "put", Key: key, Err: fmt.Errorf("generate nonce: %w", err)}
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encrypted) Put(ctx context.Context, key, value string) error {
	sealed, err := e.seal(key, value)
	if err != nil {
		return err
	}
	return e.inner.Put(ctx, e.storedKey(key), sealed)
}

func (e *Encrypted) PutAll(ctx context.Context, values map[string]string) error {
	out := make(map[string]string, len(values))
	for k, v := range values {
		sealed, err := e.seal(k, v)
		if err != nil {
			return err
		}
		out[e.storedKey(k)] = sealed
	}
	return e.inner.PutAll(ctx, out)
}

func (e *Encrypted) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := e.inner.Get(ctx, e.storedKey(key))
	if err != nil || !ok {
		return "", ok, err
	}
	blob, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", false, &StorageError{Op: "get", Key: key, Err: fmt.Errorf("%w: %w", errCiphertext, err)}
	}
	ns := e.aead.NonceSize()
	if len(blob) < ns+e.aead.Overhead() {
		return "", false, &StorageError{Op: "get", Key: key, Err: errCiphertext}
	}
	plain, err := e.aead.Open(nil, blob[:ns], blob[ns:], []byte(key))
	if err != nil {
		return "", false, &StorageError{Op: "get", Key: key, Err: fmt.Errorf("decrypt: %w", err)}
	}
	return string(plain), true, nil
}

func (e *Encrypted) Contains(ctx context.Context, key string) (bool, error) {
	return e.inner.Contains(ctx, e.storedKey(key))
}
