package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/rmarroquin/casedesk-backend/pkg/auth"
	"github.com/rmarroquin/casedesk-backend/pkg/config"
	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	"github.com/rmarroquin/casedesk-backend/pkg/security"
)

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ServiceParams configure the login service.
type ServiceParams struct {
	Users  userFinder
	JWT    config.JWTConfig
	Logger *logger.Logger
}

// Service authenticates portal users and issues access tokens.
type Service struct {
	users userFinder
	jwt   config.JWTConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		users: params.Users,
		jwt:   params.JWT,
		logg:  params.Logger,
		now:   time.Now,
	}, nil
}

// LoginResult carries the signed token plus the principal snapshot.
type LoginResult struct {
	Token     string         `json:"token"`
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	ExpiresIn int            `json:"expires_in"`
}

// Login verifies the email/password pair and mints an access token. Unknown
// emails and bad passwords both surface as UNAUTHORIZED so the response does
// not leak which one failed.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// login already succeeded; the stale timestamp is not worth failing over
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to record last login")
	}

	return &LoginResult{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresIn: s.jwt.ExpirationMinutes * 60,
	}, nil
}
