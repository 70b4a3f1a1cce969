package assignment

import (
	"context"

	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// PickerRepository answers the agent load index query.
type PickerRepository struct {
	db *gorm.DB
}

// NewPickerRepository constructs the picker bound to the provided GORM DB.
func NewPickerRepository(db *gorm.DB) *PickerRepository {
	return &PickerRepository{db: db}
}

// PickLeastLoaded returns the single eligible agent with the fewest open
// cases. Ties go to the agent assigned longest ago; never-assigned agents
// sort first via NULLS FIRST. Returns gorm.ErrRecordNotFound when no agent
// is eligible. Runs inside the batch transaction when tx is set so counts
// reflect claims made earlier in the same batch.
func (r *PickerRepository) PickLeastLoaded(ctx context.Context, tx *gorm.DB) (*models.User, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	var agent models.User
	err := conn.WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("LEFT JOIN cases ON cases.assigned_agent_id = users.id AND cases.status <> ?", enums.CaseStatusClosed).
		Where("users.role = ? AND users.is_active AND users.auto_assign_enabled", enums.UserRoleAgent).
		Group("users.id").
		Order("COUNT(cases.id) ASC").
		Order("users.last_assigned_at ASC NULLS FIRST").
		Order("users.id ASC").
		Limit(1).
		Take(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
