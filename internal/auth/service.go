package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"qbank/internal/db"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	db         *sql.DB
	sessionTTL time.Duration
	bcryptCost int
}

type ServiceConfig struct {
	SessionTTL time.Duration
	BcryptCost int
}

// NewUser is the input for CreateUserTx. An empty Password is replaced by a
// generated one, returned to the caller through CreatedUser.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Roles    []Role
}

type CreatedUser struct {
	User     *User
	Password string
}

func NewService(conn *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{db: conn, sessionTTL: cfg.SessionTTL, bcryptCost: cfg.BcryptCost}
}

func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

func (s *Service) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var u User
	var passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at, password_hash
		FROM users
		WHERE email = $1
		LIMIT 1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := loadAccess(ctx, s.db, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (
			user_id, session_token_hash, expires_at, ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, now()
		)
	`, userID, HashToken(token), expiresAt, nullableString(ipAddress), nullableString(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

// GetSessionUser resolves an opaque session token to its user, with roles and
// event memberships loaded.
func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		LIMIT 1
	`, HashToken(token)).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	if err := loadAccess(ctx, s.db, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE session_token_hash = $1 AND revoked_at IS NULL
	`, HashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return GetUserTx(ctx, s.db, userID)
}

// GetUserTx loads a user with roles and memberships using q.
func GetUserTx(ctx context.Context, q db.DBTX, userID int64) (*User, error) {
	var u User
	err := q.QueryRowContext(ctx, `
		SELECT id, name, email, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := loadAccess(ctx, q, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a user outside of any event. Used by the admin CLI.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*CreatedUser, error) {
	var out *CreatedUser
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		created, err := CreateUserTx(ctx, tx, in, s.bcryptCost)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUserTx inserts the user and its roles inside tx.
func CreateUserTx(ctx context.Context, tx *sql.Tx, in NewUser, cost int) (*CreatedUser, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	password := in.Password
	if password == "" {
		generated, err := GeneratePassword(12)
		if err != nil {
			return nil, err
		}
		password = generated
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	u := &User{Name: name, Email: email}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at
	`, name, email, hash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	for _, role := range in.Roles {
		if err := AssignRoleTx(ctx, tx, u.ID, role); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, role)
	}
	return &CreatedUser{User: u, Password: password}, nil
}

func AssignRoleTx(ctx context.Context, q db.DBTX, userID int64, role Role) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, string(role))
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func loadAccess(ctx context.Context, q db.DBTX, u *User) error {
	rows, err := q.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, u.ID)
	if err != nil {
		return fmt.Errorf("query user roles: %w", err)
	}
	u.Roles = u.Roles[:0]
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			rows.Close()
			return fmt.Errorf("scan user role: %w", err)
		}
		u.Roles = append(u.Roles, Role(role))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate user roles: %w", err)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `SELECT event_id FROM user_events WHERE user_id = $1 ORDER BY event_id`, u.ID)
	if err != nil {
		return fmt.Errorf("query user events: %w", err)
	}
	defer rows.Close()
	u.EventIDs = u.EventIDs[:0]
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan user event: %w", err)
		}
		u.EventIDs = append(u.EventIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate user events: %w", err)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the at-rest form of a session token. It is also the key used
// for per-session state outside the database.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
