package prefs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreateKey reads a hex-encoded master key from path, generating and
// writing a new one (mode 0600) when the file does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return createKey(path)
	}
	if err != nil {
		return nil, &StorageError{Op: "load key", Err: fmt.Errorf("%w: %w", ErrKeyUnavailable, err)}
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, &StorageError{Op: "load key", Err: fmt.Errorf("%w: decode %s: %w", ErrKeyUnavailable, path, err)}
	}
	if len(key) != MasterKeySize {
		return nil, &StorageError{Op: "load key", Err: fmt.Errorf("%w: %s holds %d bytes, want %d", ErrKeyUnavailable, path, len(key), MasterKeySize)}
	}
	return key, nil
}

func createKey(path string) ([]byte, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, &StorageError{Op: "create key", Err: fmt.Errorf("%w: %w", ErrKeyUnavailable, err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &StorageError{Op: "create key", Err: fmt.Errorf("%w: %w", ErrKeyUnavailable, err)}
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, &StorageError{Op: "create key", Err: fmt.Errorf("%w: %w", ErrKeyUnavailable, err)}
	}
	return key, nil
}
