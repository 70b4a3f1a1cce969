package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

func setupAssignmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'agent',
  is_active INTEGER NOT NULL DEFAULT 1,
  auto_assign_enabled INTEGER NOT NULL DEFAULT 1,
  last_assigned_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	cases := `
CREATE TABLE IF NOT EXISTS cases (
  id TEXT PRIMARY KEY,
  case_number TEXT NOT NULL UNIQUE,
  subject TEXT NOT NULL,
  requester_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'new',
  assigned_agent_id TEXT,
  received_at DATETIME NOT NULL,
  assigned_at DATETIME,
  last_activity_at DATETIME NOT NULL,
  responded INTEGER NOT NULL DEFAULT 0,
  sla_bucket TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(cases).Error)
	return db
}

func newAgent(t *testing.T, db *gorm.DB, email string, lastAssigned *time.Time) *models.User {
	t.Helper()

	agent := &models.User{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      "x",
		FirstName:         "Test",
		LastName:          "Agent",
		Role:              enums.UserRoleAgent,
		IsActive:          true,
		AutoAssignEnabled: true,
		LastAssignedAt:    lastAssigned,
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func newOpenCase(t *testing.T, db *gorm.DB, number string, agentID *uuid.UUID, status enums.CaseStatus) *models.CaseRecord {
	t.Helper()

	now := time.Now().UTC()
	record := &models.CaseRecord{
		ID:              uuid.New(),
		CaseNumber:      number,
		Subject:         "subject",
		RequesterEmail:  "requester@example.com",
		Status:          status,
		AssignedAgentID: agentID,
		ReceivedAt:      now.Add(-time.Hour),
		LastActivityAt:  now,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestPickLeastLoadedPrefersFewestOpenCases(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewPickerRepository(db)

	busy := newAgent(t, db, "busy@example.com", nil)
	idle := newAgent(t, db, "idle@example.com", nil)
	newOpenCase(t, db, "CASE-1", &busy.ID, enums.CaseStatusAssigned)
	newOpenCase(t, db, "CASE-2", &busy.ID, enums.CaseStatusInProgress)

	picked, err := repo.PickLeastLoaded(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, idle.ID, picked.ID)
}

func TestPickLeastLoadedIgnoresClosedCases(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewPickerRepository(db)

	finished := newAgent(t, db, "finished@example.com", nil)
	working := newAgent(t, db, "working@example.com", ptrTime(time.Now().Add(-48*time.Hour)))
	newOpenCase(t, db, "CASE-1", &finished.ID, enums.CaseStatusClosed)
	newOpenCase(t, db, "CASE-2", &finished.ID, enums.CaseStatusClosed)
	newOpenCase(t, db, "CASE-3", &working.ID, enums.CaseStatusInProgress)

	// closed rows do not count toward load, so finished is the lighter agent
	picked, err := repo.PickLeastLoaded(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, finished.ID, picked.ID)
}

func TestPickLeastLoadedBreaksTiesByRotation(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewPickerRepository(db)

	newAgent(t, db, "recent@example.com", ptrTime(time.Now().Add(-time.Hour)))
	stale := newAgent(t, db, "stale@example.com", ptrTime(time.Now().Add(-72*time.Hour)))
	fresh := newAgent(t, db, "fresh@example.com", nil)

	// never-assigned sorts before any timestamp
	picked, err := repo.PickLeastLoaded(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, picked.ID)

	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", fresh.ID).
		UpdateColumn("last_assigned_at", time.Now()).Error)

	picked, err = repo.PickLeastLoaded(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, stale.ID, picked.ID)
}

func TestPickLeastLoadedExcludesIneligibleUsers(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewPickerRepository(db)

	inactive := newAgent(t, db, "inactive@example.com", nil)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", inactive.ID).
		UpdateColumn("is_active", false).Error)

	optedOut := newAgent(t, db, "optedout@example.com", nil)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", optedOut.ID).
		UpdateColumn("auto_assign_enabled", false).Error)

	supervisor := newAgent(t, db, "supervisor@example.com", nil)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", supervisor.ID).
		UpdateColumn("role", enums.UserRoleSupervisor).Error)

	_, err := repo.PickLeastLoaded(context.Background(), db)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func ptrTime(t time.Time) *time.Time { return &t }
