// Package credential keeps a single local user identifier and a digest of
// its password. The plaintext password is never stored or returned.
package credential

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/sadopc/stepr/internal/prefs"
)

// Fixed preference keys of the single credential record.
const (
	KeyUserID       = "userId"
	KeyPasswordHash = "passwordHash"
)

// DigestLen is the length of a hex-encoded SHA-256 digest.
const DigestLen = sha256.Size * 2

// Digest returns the lowercase hex SHA-256 of password, always DigestLen
// characters long.
func Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Store registers and verifies the one credential record kept in a
// preference store.
type Store struct {
	prefs  prefs.Store
	logger *slog.Logger
}

// New returns a Store backed by p. A nil logger discards output.
func New(p prefs.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{prefs: p, logger: logger}
}

// Register stores userID and the digest of password, replacing any
// previous record. Both halves are written together or not at all.
func (s *Store) Register(ctx context.Context, userID, password string) error {
	err := s.prefs.PutAll(ctx, map[string]string{
		KeyUserID:       userID,
		KeyPasswordHash: Digest(password),
	})
	if err != nil {
		return err
	}
	s.logger.Info("registered user", "user", userID)
	return nil
}

// Verify reports whether userID and password match the stored record. It
// returns false without error when nothing is registered.
func (s *Store) Verify(ctx context.Context, userID, password string) (bool, error) {
	storedUser, ok, err := s.prefs.Get(ctx, KeyUserID)
	if err != nil || !ok {
		return false, err
	}
	storedDigest, ok, err := s.prefs.Get(ctx, KeyPasswordHash)
	if err != nil || !ok {
		return false, err
	}

	userMatch := subtle.ConstantTimeCompare([]byte(storedUser), []byte(userID))
	digestMatch := subtle.ConstantTimeCompare([]byte(storedDigest), []byte(Digest(password)))
	match := userMatch&digestMatch == 1

	s.logger.Debug("verified credentials", "user", userID, "match", match)
	return match, nil
}

// IsRegistered reports whether both halves of the record are present.
func (s *Store) IsRegistered(ctx context.Context) (bool, error) {
	for _, k := range []string{KeyUserID, KeyPasswordHash} {
		ok, err := s.prefs.Contains(ctx, k)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// UserID returns the registered identifier, if any.
func (s *Store) UserID(ctx context.Context) (string, bool, error) {
	return s.prefs.Get(ctx, KeyUserID)
}
