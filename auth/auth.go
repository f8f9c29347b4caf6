// Package auth issues and verifies the access tokens that guard writes
// and protected reads.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"weather-server/entities"
	"weather-server/repositories"
)

const issuer = "weather-server"

// Claims are the JWT claims of an access token. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Identity is the caller a verified token belongs to.
type Identity struct {
	UserID   uint64
	Username string
}

type Service struct {
	users  repositories.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(users repositories.UserRepository, secret string, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Authenticate checks the credentials and returns a signed access token.
// Unknown users, wrong passwords and disabled accounts all yield
// ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return "", entities.ErrUnauthorized
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !user.Enabled || !CheckPassword(user.PasswordHash, password) {
		return "", entities.ErrUnauthorized
	}

	token, err := s.issue(user)
	if err != nil {
		return "", err
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return "", fmt.Errorf("record login: %w", err)
	}
	return token, nil
}

func (s *Service) issue(user *entities.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: user.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, issuer and expiry. Every failure is
// reported as ErrUnauthorized wrapping the cause.
func (s *Service) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", entities.ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, entities.ErrUnauthorized
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject %q", entities.ErrUnauthorized, claims.Subject)
	}
	return Identity{UserID: id, Username: claims.Username}, nil
}

// EnsureUser creates an enabled user with the given password, or resets
// the password of an existing one and re-enables it.
func (s *Service) EnsureUser(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := s.users.SetPassword(ctx, existing.ID, hash); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		if !existing.Enabled {
			return s.users.SetEnabled(ctx, existing.ID, true)
		}
		return nil
	case errors.Is(err, entities.ErrNotFound):
		return s.users.Create(ctx, &entities.User{Username: username, PasswordHash: hash, Enabled: true})
	default:
		return fmt.Errorf("lookup user: %w", err)
	}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
