package credential

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/stepr/internal/prefs"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newTestStore(t *testing.T) (*Store, *prefs.Memory) {
	t.Helper()
	m := prefs.NewMemory()
	return New(m, nil), m
}

func TestRegisterThenVerify(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Register(ctx, "alice", "pw1"))

	tests := []struct {
		user, pw string
		want     bool
	}{
		{"alice", "pw1", true},
		{"alice", "wrong", false},
		{"bob", "pw1", false},
		{"", "", false},
	}
	for _, tt := range tests {
		ok, err := s.Verify(ctx, tt.user, tt.pw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "verify(%q, %q)", tt.user, tt.pw)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Register(ctx, "alice", "pw1"))
	require.NoError(t, s.Register(ctx, "bob", "pw2"))

	ok, err := s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Verify(ctx, "bob", "pw2")
	require.NoError(t, err)
	assert.True(t, ok)

	id, found, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", id)
}

func TestVerifyWithoutRecord(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)

	ok, err := s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Half a record is still no record.
	require.NoError(t, m.Put(ctx, KeyUserID, "alice"))
	ok, err = s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)

	registered, err := s.IsRegistered(ctx)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestOnlyDigestIsStored(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	require.NoError(t, s.Register(ctx, "alice", "hunter2"))

	raw := m.Raw()
	assert.Equal(t, "alice", raw[KeyUserID])
	assert.Equal(t, Digest("hunter2"), raw[KeyPasswordHash])
	for _, v := range raw {
		assert.NotEqual(t, "hunter2", v)
	}
	assert.Len(t, raw, 2)

	registered, err := s.IsRegistered(ctx)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestDigest(t *testing.T) {
	// Known SHA-256 vectors.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest("abc"))

	// Leading zero nibbles are kept.
	for i := 0; i < 500; i++ {
		d := Digest(fmt.Sprintf("pw-%d", i))
		require.Regexp(t, hexDigest, d)
		require.Len(t, d, DigestLen)
	}
}

func TestDigestDeterministicAndDistinct(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		pw := fmt.Sprintf("password%d", i)
		d := Digest(pw)
		assert.Equal(t, d, Digest(pw))
		if other, dup := seen[d]; dup {
			t.Fatalf("collision between %q and %q", pw, other)
		}
		seen[d] = pw
	}
}

func TestEncryptedBackend(t *testing.T) {
	ctx := context.Background()
	inner := prefs.NewMemory()
	enc, err := prefs.NewEncrypted(inner, make([]byte, prefs.MasterKeySize))
	require.NoError(t, err)
	s := New(enc, nil)

	require.NoError(t, s.Register(ctx, "alice", "pw1"))
	ok, err := s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	for k, v := range inner.Raw() {
		assert.NotEqual(t, KeyUserID, k)
		assert.NotEqual(t, Digest("pw1"), v)
	}
}

type brokenPrefs struct{ err error }

func (b brokenPrefs) Put(context.Context, string, string) error { return b.err }
func (b brokenPrefs) PutAll(context.Context, map[string]string) error {
	return b.err
}
func (b brokenPrefs) Get(context.Context, string) (string, bool, error) {
	return "", false, b.err
}
func (b brokenPrefs) Contains(context.Context, string) (bool, error) { return false, b.err }

func TestStorageErrorsSurface(t *testing.T) {
	ctx := context.Background()
	storageErr := &prefs.StorageError{Op: "get", Key: KeyUserID, Err: prefs.ErrKeyUnavailable}
	s := New(brokenPrefs{err: storageErr}, nil)

	err := s.Register(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, prefs.ErrKeyUnavailable)

	ok, err := s.Verify(ctx, "alice", "pw1")
	assert.False(t, ok)
	var se *prefs.StorageError
	assert.True(t, errors.As(err, &se))

	_, err = s.IsRegistered(ctx)
	assert.Error(t, err)
}

// hashWriteFails refuses any write that touches the password digest.
type hashWriteFails struct {
	*prefs.Memory
	err error
}

func (h hashWriteFails) Put(ctx context.Context, key, value string) error {
	if key == KeyPasswordHash {
		return h.err
	}
	return h.Memory.Put(ctx, key, value)
}

func (h hashWriteFails) PutAll(ctx context.Context, values map[string]string) error {
	if _, ok := values[KeyPasswordHash]; ok {
		return h.err
	}
	return h.Memory.PutAll(ctx, values)
}

func TestFailedRegisterKeepsPreviousRecord(t *testing.T) {
	ctx := context.Background()
	m := prefs.NewMemory()
	require.NoError(t, New(m, nil).Register(ctx, "alice", "pw1"))

	diskFull := errors.New("disk full")
	s := New(hashWriteFails{Memory: m, err: diskFull}, nil)
	assert.ErrorIs(t, s.Register(ctx, "bob", "pw2"), diskFull)

	ok, err := s.Verify(ctx, "bob", "pw1")
	require.NoError(t, err)
	assert.False(t, ok, "new user must not pair with the old digest")

	ok, err = s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	id, _, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestFailedRegisterKeepsPreviousRecordEncrypted(t *testing.T) {
	ctx := context.Background()
	m := prefs.NewMemory()
	key := make([]byte, prefs.MasterKeySize)

	enc, err := prefs.NewEncrypted(m, key)
	require.NoError(t, err)
	require.NoError(t, New(enc, nil).Register(ctx, "alice", "pw1"))
	before := m.Raw()

	// Stored key names are hashed, so fail every write to the backing map.
	diskFull := errors.New("disk full")
	enc, err = prefs.NewEncrypted(brokenWrites{Memory: m, err: diskFull}, key)
	require.NoError(t, err)
	s := New(enc, nil)
	assert.ErrorIs(t, s.Register(ctx, "bob", "pw2"), diskFull)

	assert.Equal(t, before, m.Raw())
	ok, err := s.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenWrites struct {
	*prefs.Memory
	err error
}

func (b brokenWrites) Put(context.Context, string, string) error { return b.err }
func (b brokenWrites) PutAll(context.Context, map[string]string) error { return b.err }
