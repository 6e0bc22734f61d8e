package service

import (
	"context"
	"strings"

	"github.com/tieubaoca/ragchat-be/config"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/utils"
	"go.uber.org/zap"
)

const (
	providerJWT  = "jwt"
	providerTest = "test"

	testTokenPrefix = "test:"
)

// AuthService resolves a bearer token to a local user record, creating the
// record on first sight.
type AuthService struct {
	users repository.UserRepo
	cfg   config.AuthConfig
}

func NewAuthService(users repository.UserRepo, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
	}
}

// Resolve verifies token and upserts the matching user. Profile fields are
// refreshed on every call; the role is only set on first creation, so a
// promotion done through the admin API survives subsequent logins.
func (s *AuthService) Resolve(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, types.ErrUnauthorized
	}

	if s.cfg.TestMode && strings.HasPrefix(token, testTokenPrefix) {
		return s.resolveTestToken(ctx, token)
	}

	claims, err := utils.ParseIdentityToken(s.cfg.JWTSecret, token)
	if err != nil {
		logger.Warn("token verification failed", zap.Error(err))
		return nil, types.ErrUnauthorized
	}
	return s.users.Upsert(ctx, *claims, providerJWT, types.RoleUser)
}

// resolveTestToken handles the pre-shared "test:<email>" format. It is only
// reachable when test mode is enabled in configuration. The subject keeps the
// prefix so test identities can never collide with provider subjects.
func (s *AuthService) resolveTestToken(ctx context.Context, token string) (*types.User, error) {
	email := strings.TrimPrefix(token, testTokenPrefix)
	if email == "" {
		return nil, types.ErrUnauthorized
	}

	initialRole := types.RoleUser
	for _, admin := range s.cfg.AdminEmails {
		if strings.EqualFold(admin, email) {
			initialRole = types.RoleAdmin
			break
		}
	}

	claims := types.IdentityClaims{
		Subject: testTokenPrefix + email,
		Name:    email,
		Email:   email,
	}
	return s.users.Upsert(ctx, claims, providerTest, initialRole)
}
