package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                uuid.UUID      `json:"id"`
	Email             string         `json:"email"`
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	Role              enums.UserRole `json:"role"`
	IsActive          bool           `json:"is_active"`
	AutoAssignEnabled bool           `json:"auto_assign_enabled"`
	LastAssignedAt    *time.Time     `json:"last_assigned_at,omitempty"`
	LastLoginAt       *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              enums.UserRole
	IsActive          *bool
	AutoAssignEnabled *bool
}

// UpdateUserDTO carries the mutable admin-managed fields. Nil means leave
// the field unchanged.
type UpdateUserDTO struct {
	FirstName         *string
	LastName          *string
	Role              *enums.UserRole
	IsActive          *bool
	AutoAssignEnabled *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Role:              u.Role,
		IsActive:          u.IsActive,
		AutoAssignEnabled: u.AutoAssignEnabled,
		LastAssignedAt:    u.LastAssignedAt,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	autoAssign := true
	if c.AutoAssignEnabled != nil {
		autoAssign = *c.AutoAssignEnabled
	}
	role := c.Role
	if role == "" {
		role = enums.UserRoleAgent
	}
	return &models.User{
		ID:                uuid.New(),
		Email:             c.Email,
		PasswordHash:      c.PasswordHash,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Role:              role,
		IsActive:          isActive,
		AutoAssignEnabled: autoAssign,
	}
}
