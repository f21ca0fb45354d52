package service

import (
	"context"
	"fmt"
	"time"

	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	adminRepo ports.AdminRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	adminRepo ports.AdminRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		adminRepo: adminRepo,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
	}
}

// Login validates credentials and returns a JWT token. Unknown usernames and
// wrong passwords produce the same error so accounts cannot be enumerated.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find admin: %w", err))
	}
	if admin == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, admin.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(admin.ID, admin.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
