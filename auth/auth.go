// Package auth registers users, checks their passwords and issues the signed
// session tokens the API carries in the "token" cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/inkpost/model"
	"github.com/eringen/inkpost/store"
)

var (
	// ErrInvalidInput is returned when a username or password is empty.
	ErrInvalidInput = errors.New("username and password are required")
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("wrong credentials")
	// ErrUnauthorized is returned by Verify for a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Users is the part of store.Store the auth service needs.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

// Service implements registration, login and token verification.
type Service struct {
	users  Users
	secret []byte
	cost   int
	now    func() time.Time
}

// NewService returns a Service signing tokens with secret and hashing
// passwords at the given bcrypt cost. Out of range costs fall back to
// bcrypt.DefaultCost.
func NewService(users Users, secret string, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, secret: []byte(secret), cost: cost, now: time.Now}
}

// Register creates a user with a salted hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		return model.User{}, fmt.Errorf("register %q: %w", username, err)
	}
	return u, nil
}

// Login checks the credentials and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, string, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("lookup %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}
	token, err := s.Sign(model.Identity{ID: u.ID, Username: u.Username})
	if err != nil {
		return model.User{}, "", err
	}
	return u, token, nil
}

// Sign issues an HS256 token for id. Tokens carry no expiry.
func (s *Service) Sign(id model.Identity) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.MapClaims{
		"username": id.Username,
		"id":       id.ID,
		"iat":      s.now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and returns the identity it carries.
func (s *Service) Verify(tokenStr string) (model.Identity, error) {
	if tokenStr == "" || len(s.secret) == 0 {
		return model.Identity{}, ErrUnauthorized
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, ErrUnauthorized
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return model.Identity{}, ErrUnauthorized
	}
	identity := model.Identity{ID: id, Username: username}
	if iat, ok := claims["iat"].(float64); ok {
		identity.IssuedAt = int64(iat)
	}
	return identity, nil
}
