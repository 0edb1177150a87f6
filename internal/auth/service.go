package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carbook/internal/domain"
	"carbook/internal/metrics"
	"carbook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidPIN  = errors.New("invalid pin")
	ErrRateLimited = errors.New("too many login attempts")
)

type RateLimit struct {
	Attempts int
	Window   time.Duration
}

// Service authenticates users by PIN and manages their sessions.
type Service struct {
	users   domain.UserRepository
	limiter domain.RateLimiter
	tokens  *TokenManager
	limit   RateLimit
	logger  *zerolog.Logger
}

func NewService(users domain.UserRepository, limiter domain.RateLimiter, tokens *TokenManager, limit RateLimit, logger *zerolog.Logger) *Service {
	return &Service{users: users, limiter: limiter, tokens: tokens, limit: limit, logger: logger}
}

type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Login finds the user owning pin. clientKey identifies the caller for rate limiting.
func (s *Service) Login(ctx context.Context, pin, clientKey string) (*Session, error) {
	if s.limiter != nil && s.limit.Attempts > 0 {
		allowed, err := s.limiter.CheckRateLimit(ctx, "login:"+clientKey, s.limit.Attempts, s.limit.Window)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Login rate limit check failed")
		} else if !allowed {
			metrics.IncLogin("rate_limited")
			return nil, ErrRateLimited
		}
	}

	pin = strings.TrimSpace(pin)
	if pin == "" {
		metrics.IncLogin("invalid")
		return nil, ErrInvalidPIN
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for _, u := range users {
		if !CheckPIN(u.PINHash, pin) {
			continue
		}
		token, expires, err := s.tokens.Issue(u.ID)
		if err != nil {
			return nil, err
		}
		metrics.IncLogin("success")
		s.logger.Info().Int64("user_id", u.ID).Msg("User logged in")
		return &Session{User: u, Token: token, ExpiresAt: expires}, nil
	}

	metrics.IncLogin("invalid")
	return nil, ErrInvalidPIN
}

// Authenticate verifies a session token and returns a refreshed one, giving
// sessions a sliding expiry.
func (s *Service) Authenticate(tokenString string) (*Claims, string, time.Time, error) {
	if tokenString == "" {
		return nil, "", time.Time{}, ErrInvalidToken
	}
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	refreshed, expires, err := s.tokens.Issue(claims.UserID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return claims, refreshed, expires, nil
}

// CreateUser hashes pin and stores a new user. Used by the admin CLI.
func (s *Service) CreateUser(ctx context.Context, firstName, lastName, pin string, cost int) (*models.User, error) {
	hash, err := HashPIN(pin, cost)
	if err != nil {
		return nil, err
	}
	user := &models.User{FirstName: strings.TrimSpace(firstName), LastName: strings.TrimSpace(lastName), PINHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

type ctxKey struct{}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id != 0
}
