package cases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

// Repository defines persistence operations for the cases table and the
// status catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CaseRecord, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*CaseList, error)
	FindPendingNew(ctx context.Context, newStatus enums.CaseStatus, limit int) ([]models.CaseRecord, error)
	Claim(ctx context.Context, caseID, agentID uuid.UUID, assignedStatus enums.CaseStatus, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, caseID uuid.UUID, next enums.CaseStatus, responded bool, at time.Time) error
	ResolveStatus(ctx context.Context, code enums.CaseStatus) (*models.CaseStatusRef, error)
}
