package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/config"
	"github.com/rmarroquin/casedesk-backend/pkg/db"
	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/security"
)

type repository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// ServiceParams configure the admin user service.
type ServiceParams struct {
	Repo     repository
	Password config.PasswordConfig
}

// Service manages portal principals on behalf of admins.
type Service struct {
	repo     repository
	password config.PasswordConfig
}

// NewService builds the user service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &Service{repo: params.Repo, password: params.Password}, nil
}

// CreateInput carries the admin-provided fields for a new user.
type CreateInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Role              enums.UserRole
	AutoAssignEnabled *bool
}

// Create hashes the password and persists the user. Duplicate emails surface
// as CONFLICT.
func (s *Service) Create(ctx context.Context, input CreateInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password required")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
			WithDetails(map[string]any{"role": input.Role})
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Role:              input.Role,
		AutoAssignEnabled: input.AutoAssignEnabled,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}
	return FromModel(user), nil
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, limit, offset int) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Get loads one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return FromModel(user), nil
}

// Update applies partial changes to the user's role and flags.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateUserDTO) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
			WithDetails(map[string]any{"role": *input.Role})
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.AutoAssignEnabled != nil {
		updates["auto_assign_enabled"] = *input.AutoAssignEnabled
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updates provided")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating user")
	}
	return s.Get(ctx, id)
}
