package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeharbor/auth-go/internal/api/user"
	"github.com/forgeharbor/auth-go/internal/db"
	"github.com/forgeharbor/auth-go/internal/keys/keystest"
	"github.com/forgeharbor/auth-go/internal/password"
	"github.com/forgeharbor/auth-go/internal/token"
)

var testSettings = token.Settings{Issuer: "forgeharbor", Audience: "forgeharbor-users", TTL: time.Hour}

// memStore mimics the unique email index of the MySQL store.
type memStore struct {
	mu      sync.Mutex
	byEmail map[string]db.User
	nextID  int64
	err     error
}

func newMemStore() *memStore {
	return &memStore{byEmail: make(map[string]db.User)}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) Insert(_ context.Context, u *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return user.ErrDuplicateEmail
	}
	s.nextID++
	u.ID = s.nextID
	s.byEmail[u.Email] = *u
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

// countingHasher records how many verifications were performed.
type countingHasher struct {
	*password.Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(pw, encoded string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(pw, encoded)
}

func fastHasher() *password.Hasher {
	return password.NewHasher(password.WithTime(1), password.WithMemory(8), password.WithThreads(1))
}

func newService(t *testing.T, store UserStore) (*AuthService, *token.Verifier) {
	t.Helper()
	kp := keystest.KeyPair(t)
	svc, err := NewAuthService(store, fastHasher(), token.NewIssuer(testSettings, kp))
	require.NoError(t, err)
	return svc, token.NewVerifier(testSettings, kp)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestSignup_StoresHashNotPassword(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)

	u, err := svc.Signup(context.Background(), "A@x.com", "Secret123")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", u.Email)
	assert.NotEqual(t, "Secret123", u.PasswordHash)
	assert.Contains(t, u.PasswordHash, "$argon2id$")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, 1, store.count())
}

func TestSignup_DuplicateLeavesRecordUnchanged(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)
	ctx := context.Background()

	first, err := svc.Signup(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, " A@X.COM", "Different456")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	stored, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, stored.UserID)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash)

	_, _, err = svc.Login(ctx, "a@x.com", "Secret123")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "a@x.com", "Different456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignup_ConcurrentSameEmail(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)

	const n = 16
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Signup(context.Background(), "race@x.com", "Secret123")
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, user.ErrDuplicateEmail):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	assert.Equal(t, 1, store.count())
}

func TestService_Signup_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.err = user.ErrStoreUnavailable
	svc, _ := newService(t, store)

	_, err := svc.Signup(context.Background(), "a@x.com", "Secret123")
	assert.ErrorIs(t, err, user.ErrStoreUnavailable)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	store := newMemStore()
	svc, verifier := newService(t, store)
	ctx := context.Background()

	u, err := svc.Signup(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	raw, ttl, err := svc.Login(ctx, "A@x.com ", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	p, err := verifier.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, u.UserID.String(), p.UserID)
	assert.Equal(t, "a@x.com", p.Email)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	store := newMemStore()
	kp := keystest.KeyPair(t)
	hasher := &countingHasher{Hasher: fastHasher()}
	svc, err := NewAuthService(store, hasher, token.NewIssuer(testSettings, kp))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Signup(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	_, _, wrongPw := svc.Login(ctx, "a@x.com", "wrong-password")
	afterWrong := hasher.verifies.Load()

	_, _, unknown := svc.Login(ctx, "nobody@x.com", "Secret123")
	afterUnknown := hasher.verifies.Load()

	assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, wrongPw, unknown)
	assert.Equal(t, int32(1), afterWrong)
	assert.Equal(t, int32(2), afterUnknown, "unknown email still runs one verification")
}

func TestService_Login_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.err = user.ErrStoreUnavailable
	svc, _ := newService(t, store)

	_, _, err := svc.Login(context.Background(), "a@x.com", "Secret123")
	assert.ErrorIs(t, err, user.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

type failingIssuer struct{}

func (failingIssuer) Issue(token.Subject) (string, time.Duration, error) {
	return "", 0, token.ErrSigningFailed
}

func TestLogin_SigningFailure(t *testing.T) {
	store := newMemStore()
	svc, err := NewAuthService(store, fastHasher(), failingIssuer{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Signup(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@x.com", "Secret123")
	assert.ErrorIs(t, err, token.ErrSigningFailed)
}
