package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapHasher() *Hasher {
	return NewHasher(WithTime(1), WithMemory(64), WithThreads(1))
}

func TestHashAndVerify(t *testing.T) {
	h := cheapHasher()

	for _, pw := range []string{"Secret123", "", "pässwörd ✓", strings.Repeat("x", 200)} {
		encoded, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, encoded), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"!", encoded), "password %q+! should not verify", pw)
	}
}

func TestHash_Format(t *testing.T) {
	encoded, err := cheapHasher().Hash("Secret123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"), encoded)
	assert.NotContains(t, encoded, "Secret123")
}

func TestHash_SaltIsFreshPerCall(t *testing.T) {
	h := cheapHasher()
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		encoded, err := h.Hash("same-password")
		require.NoError(t, err)
		_, dup := seen[encoded]
		require.False(t, dup, "hash repeated: %s", encoded)
		seen[encoded] = struct{}{}
	}
}

func TestVerify_UsesStoredParameters(t *testing.T) {
	old := NewHasher(WithTime(2), WithMemory(128), WithThreads(2))
	encoded, err := old.Hash("Secret123")
	require.NoError(t, err)

	current := cheapHasher()
	assert.True(t, current.Verify("Secret123", encoded))
}

func TestVerify_FailsClosed(t *testing.T) {
	h := cheapHasher()
	valid, err := h.Hash("Secret123")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	cases := map[string]string{
		"empty":          "",
		"plaintext":      "Secret123",
		"bcrypt":         "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		"argon2i":        strings.Replace(valid, "argon2id", "argon2i", 1),
		"wrong version":  strings.Replace(valid, "v=19", "v=16", 1),
		"bad params":     strings.Join([]string{"", parts[1], parts[2], "m=x,t=1,p=1", parts[4], parts[5]}, "$"),
		"zero threads":   strings.Join([]string{"", parts[1], parts[2], "m=64,t=1,p=0", parts[4], parts[5]}, "$"),
		"huge memory":    strings.Join([]string{"", parts[1], parts[2], "m=4294967295,t=1,p=1", parts[4], parts[5]}, "$"),
		"over 1 GiB":     strings.Join([]string{"", parts[1], parts[2], "m=1048577,t=1,p=1", parts[4], parts[5]}, "$"),
		"4 GiB":          strings.Join([]string{"", parts[1], parts[2], "m=4194304,t=1,p=1", parts[4], parts[5]}, "$"),
		"bad salt":       strings.Join([]string{"", parts[1], parts[2], parts[3], "!!!", parts[5]}, "$"),
		"empty digest":   strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], ""}, "$"),
		"truncated":      strings.Join(parts[:5], "$"),
		"extra segments": valid + "$extra",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Verify("Secret123", encoded))
		})
	}
}

func TestNewHasher_IgnoresInvalidOptions(t *testing.T) {
	h := NewHasher(WithTime(0), WithMemory(1), WithThreads(0))
	assert.Equal(t, uint32(1), h.time)
	assert.Equal(t, uint32(64*1024), h.memory)
	assert.Equal(t, uint8(4), h.threads)
}
