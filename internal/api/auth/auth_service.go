package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgeharbor/auth-go/internal/api/user"
	"github.com/forgeharbor/auth-go/internal/db"
	"github.com/forgeharbor/auth-go/internal/password"
	"github.com/forgeharbor/auth-go/internal/token"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*db.User, error)
	Insert(ctx context.Context, u *db.User) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

type TokenIssuer interface {
	Issue(s token.Subject) (string, time.Duration, error)
}

var (
	_ PasswordHasher = (*password.Hasher)(nil)
	_ TokenIssuer    = (*token.Issuer)(nil)
)

type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	issuer TokenIssuer
	now    func() time.Time

	// verified against when the email is unknown so both login failures
	// cost one hash derivation
	decoyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, issuer TokenIssuer) (*AuthService, error) {
	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		issuer:    issuer,
		now:       time.Now,
		decoyHash: decoy,
	}, nil
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user. The pre-check only gives a fast answer; the store's
// unique index decides races and surfaces as user.ErrDuplicateEmail.
func (s *AuthService) Signup(ctx context.Context, email, pw string) (*db.User, error) {
	email = NormalizeEmail(email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, user.ErrDuplicateEmail
	case !errors.Is(err, user.ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	u := &db.User{
		UserID:       id,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the credentials and issues a token. The returned duration is
// the token's validity.
func (s *AuthService) Login(ctx context.Context, email, pw string) (string, time.Duration, error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, user.ErrNotFound) {
		s.hasher.Verify(pw, s.decoyHash)
		return "", 0, ErrInvalidCredentials
	}
	if err != nil {
		return "", 0, err
	}

	if !s.hasher.Verify(pw, u.PasswordHash) {
		return "", 0, ErrInvalidCredentials
	}

	return s.issuer.Issue(token.Subject{UserID: u.UserID.String(), Email: u.Email})
}
