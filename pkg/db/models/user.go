package models

import (
	"time"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents a portal principal. Agents are users with role "agent";
// auto-assignment only considers active users with AutoAssignEnabled set.
type User struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash      string         `gorm:"column:password_hash;not null"`
	FirstName         string         `gorm:"column:first_name;not null"`
	LastName          string         `gorm:"column:last_name;not null"`
	Role              enums.UserRole `gorm:"column:role;type:text;not null;default:'agent'"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true"`
	AutoAssignEnabled bool           `gorm:"column:auto_assign_enabled;not null;default:true"`
	LastAssignedAt    *time.Time     `gorm:"column:last_assigned_at"`
	LastLoginAt       *time.Time     `gorm:"column:last_login_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
