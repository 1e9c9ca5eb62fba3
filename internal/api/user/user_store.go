package user

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/forgeharbor/auth-go/internal/db"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrStoreUnavailable = errors.New("user store unavailable")
)

const mysqlDuplicateEntry = 1062

// Store persists users in MySQL. Email uniqueness is enforced by the
// uq_users_email index; Insert reports a violation as ErrDuplicateEmail.
// Every call runs under the configured timeout.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func NewStore(conn *sql.DB, timeout time.Duration) *Store {
	return &Store{db: conn, timeout: timeout}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var u db.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, email, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.UserID, &u.Email, &u.PasswordHash, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(ctx, err)
	}
	return &u, nil
}

// Insert writes u in a single statement and sets u.ID when the driver
// reports it.
func (s *Store) Insert(ctx context.Context, u *db.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (user_id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.UserID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry && !strings.Contains(me.Message, "uq_users_user_id") {
			return ErrDuplicateEmail
		}
		return classify(ctx, err)
	}

	// the row is committed; a missing id only leaves u.ID at zero
	if id, err := res.LastInsertId(); err == nil {
		u.ID = id
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// classify separates "could not reach the store in time" from other
// database errors.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}
