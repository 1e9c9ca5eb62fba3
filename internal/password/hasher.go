// Package password derives and verifies argon2id password hashes encoded in
// the PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<digest>
//
// Verify always reads the cost parameters from the stored string, so the
// configured cost can change without rehashing existing users.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrHashingFailed = errors.New("password hashing failed")

const (
	algorithm = "argon2id"
	saltLen   = 16
	keyLen    = 32
)

type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

type Option func(*Hasher)

// WithTime sets the number of passes (default 1).
func WithTime(t uint32) Option {
	return func(h *Hasher) {
		if t > 0 {
			h.time = t
		}
	}
}

// WithMemory sets memory in KiB (default 64 MiB).
func WithMemory(kib uint32) Option {
	return func(h *Hasher) {
		if kib >= 8 {
			h.memory = kib
		}
	}
}

// WithThreads sets the parallelism (default 4).
func WithThreads(p uint8) Option {
	return func(h *Hasher) {
		if p > 0 {
			h.threads = p
		}
	}
}

func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{
		time:    1,
		memory:  64 * 1024,
		threads: 4,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash derives a hash under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashingFailed, err)
	}

	digest := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, keyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm,
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify reports whether password matches encoded. Any malformed input
// yields false.
func (h *Hasher) Verify(password, encoded string) bool {
	p, err := decode(encoded)
	if err != nil {
		return false
	}

	digest := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.digest)))
	return subtle.ConstantTimeCompare(digest, p.digest) == 1
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	digest  []byte
}

// upper bounds on stored parameters; verify allocates m KiB
const (
	maxMemoryKiB = 1 << 20
	maxTime      = 64
	maxDigestLen = 128
)

func decode(encoded string) (*params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithm {
		return nil, errors.New("password: not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("password: unsupported argon2 version")
	}

	var p params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("password: parse params: %w", err)
	}
	if p.memory == 0 || p.memory > maxMemoryKiB || p.time == 0 || p.time > maxTime || p.threads == 0 {
		return nil, errors.New("password: params out of range")
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return nil, errors.New("password: bad salt")
	}
	if p.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.digest) == 0 || len(p.digest) > maxDigestLen {
		return nil, errors.New("password: bad digest")
	}
	return &p, nil
}
