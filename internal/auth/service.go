// Package auth issues and validates credentials. Access tokens are
// short-lived HS256 JWTs; refresh tokens are opaque random strings held
// server-side with a TTL and rotated on every use.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// Tokens is what a successful sign-in hands back to the client.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
}

type Service struct {
	users         UserStore
	jwtSecret     []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	refreshTokens *gocache.Cache // refresh token -> user id
	logger        *slog.Logger
}

func NewService(users UserStore, jwtSecret string, accessExpiry, refreshExpiry time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:         users,
		jwtSecret:     []byte(jwtSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		refreshTokens: gocache.New(refreshExpiry, 10*time.Minute),
		logger:        logger,
	}
}

// SignUp registers a local account and signs the user in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Tokens{}, fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}
	if len(password) < 8 {
		return Tokens{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidCredentials)
	}

	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return Tokens{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return Tokens{}, fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Tokens{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		AuthProvider: ProviderLocal,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return Tokens{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", u.ID)
	return s.issueTokens(u.ID)
}

// SignInWithPassword checks a local account's credentials.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("look up user: %w", err)
	}
	if u.AuthProvider != ProviderLocal || u.PasswordHash == "" {
		return Tokens{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Tokens{}, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User signed in", "user_id", u.ID)
	return s.issueTokens(u.ID)
}

// signInExisting issues tokens for an already-verified identity, used
// by the OAuth flow.
func (s *Service) signInExisting(userID string) (Tokens, error) {
	return s.issueTokens(userID)
}

// Refresh rotates a refresh token. The old token is invalidated even
// though its replacement carries a fresh TTL.
func (s *Service) Refresh(_ context.Context, refreshToken string) (Tokens, error) {
	v, ok := s.refreshTokens.Get(refreshToken)
	if !ok {
		return Tokens{}, ErrInvalidRefreshToken
	}
	s.refreshTokens.Delete(refreshToken)
	return s.issueTokens(v.(string))
}

// SignOut invalidates a refresh token. Unknown tokens are ignored.
func (s *Service) SignOut(_ context.Context, refreshToken string) {
	s.refreshTokens.Delete(refreshToken)
}

// ValidateAccessToken returns the user id carried by a valid JWT.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (s *Service) issueTokens(userID string) (Tokens, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(s.accessExpiry).Unix(),
		"iat": now.Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return Tokens{}, fmt.Errorf("generate refresh token: %w", err)
	}
	s.refreshTokens.Set(refresh, userID, s.refreshExpiry)

	return Tokens{AccessToken: access, RefreshToken: refresh, UserID: userID}, nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
