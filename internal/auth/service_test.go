package auth

import (
	"context"
	"io"
	"testing"
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

type fakeUserFinder struct {
	user       *models.User
	lastLogins []uuid.UUID
}

func (f *fakeUserFinder) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeUserFinder) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogins = append(f.lastLogins, id)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-at-least-32-characters!!",
		Issuer:            "casedesk-test",
		ExpirationMinutes: 30,
	}
}

func newAuthService(t *testing.T, finder *fakeUserFinder) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Users:  finder,
		JWT:    testJWTConfig(),
		Logger: logger.New(logger.Options{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building auth service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        "agent@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleAgent,
		IsActive:     true,
	}
}

func TestLoginMintsParsableToken(t *testing.T) {
	user := seedUser(t, "hunter2hunter2")
	finder := &fakeUserFinder{user: user}
	svc := newAuthService(t, finder)

	result, err := svc.Login(context.Background(), "  AGENT@example.com ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.UserID != user.ID || result.Role != enums.UserRoleAgent {
		t.Fatalf("unexpected principal snapshot: %+v", result)
	}
	if result.ExpiresIn != 30*60 {
		t.Fatalf("expected 1800s expiry, got %d", result.ExpiresIn)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	if err != nil {
		t.Fatalf("parsing minted token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleAgent {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if len(finder.lastLogins) != 1 || finder.lastLogins[0] != user.ID {
		t.Fatalf("expected last login stamp, got %v", finder.lastLogins)
	}
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	svc := newAuthService(t, &fakeUserFinder{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever password")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if typed.Message() != "invalid credentials" {
		t.Fatalf("unknown email must not leak, got %q", typed.Message())
	}
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	user := seedUser(t, "hunter2hunter2")
	svc := newAuthService(t, &fakeUserFinder{user: user})

	_, err := svc.Login(context.Background(), user.Email, "not the password")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if typed.Message() != "invalid credentials" {
		t.Fatalf("bad password must not leak, got %q", typed.Message())
	}
}

func TestLoginInactiveUserIsUnauthorized(t *testing.T) {
	user := seedUser(t, "hunter2hunter2")
	user.IsActive = false
	finder := &fakeUserFinder{user: user}
	svc := newAuthService(t, finder)

	_, err := svc.Login(context.Background(), user.Email, "hunter2hunter2")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if len(finder.lastLogins) != 0 {
		t.Fatal("failed login must not stamp last login")
	}
}

func TestLoginMissingFieldsIsValidation(t *testing.T) {
	svc := newAuthService(t, &fakeUserFinder{})

	_, err := svc.Login(context.Background(), "", "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
