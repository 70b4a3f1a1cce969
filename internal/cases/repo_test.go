package cases

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
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

func setupCasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

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
	statuses := `
CREATE TABLE IF NOT EXISTS case_statuses (
  code TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0
);`
	require.NoError(t, db.Exec(cases).Error)
	require.NoError(t, db.Exec(statuses).Error)
	return db
}

func seedCase(t *testing.T, db *gorm.DB, number string, status enums.CaseStatus, agentID *uuid.UUID, receivedAt time.Time) *models.CaseRecord {
	t.Helper()

	record := &models.CaseRecord{
		ID:              uuid.New(),
		CaseNumber:      number,
		Subject:         "subject " + number,
		RequesterEmail:  "requester@example.com",
		Status:          status,
		AssignedAgentID: agentID,
		ReceivedAt:      receivedAt,
		LastActivityAt:  receivedAt,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestClaimIsConditionalOnUnassigned(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	record := seedCase(t, db, "CASE-001", enums.CaseStatusNew, nil, time.Now().UTC().Add(-time.Hour))
	first := uuid.New()
	second := uuid.New()
	now := time.Now().UTC()

	claimed, err := repo.Claim(context.Background(), record.ID, first, enums.CaseStatusAssigned, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// a concurrent assigner loses the same conditional write
	claimed, err = repo.Claim(context.Background(), record.ID, second, enums.CaseStatusAssigned, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, first, *got.AssignedAgentID)
	assert.Equal(t, enums.CaseStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedAt)
}

func TestFindPendingNewOldestFirst(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-24 * time.Hour)
	oldest := seedCase(t, db, "CASE-001", enums.CaseStatusNew, nil, base)
	middle := seedCase(t, db, "CASE-002", enums.CaseStatusNew, nil, base.Add(time.Hour))
	newest := seedCase(t, db, "CASE-003", enums.CaseStatusNew, nil, base.Add(2*time.Hour))

	agentID := uuid.New()
	seedCase(t, db, "CASE-004", enums.CaseStatusAssigned, &agentID, base)

	pending, err := repo.FindPendingNew(context.Background(), enums.CaseStatusNew, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, oldest.ID, pending[0].ID)
	assert.Equal(t, middle.ID, pending[1].ID)

	pending, err = repo.FindPendingNew(context.Background(), enums.CaseStatusNew, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, newest.ID, pending[2].ID)
}

func TestListPagesNewestFirstWithCursor(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-24 * time.Hour)
	var seeded []*models.CaseRecord
	for i := 0; i < 5; i++ {
		number := fmt.Sprintf("CASE-%03d", i+1)
		seeded = append(seeded, seedCase(t, db, number, enums.CaseStatusNew, nil, base.Add(time.Duration(i)*time.Hour)))
	}

	page, err := repo.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, seeded[4].ID, page.Items[0].ID)
	assert.Equal(t, seeded[3].ID, page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, seeded[2].ID, page.Items[0].ID)
	assert.Equal(t, seeded[1].ID, page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, seeded[0].ID, page.Items[0].ID)
	assert.Empty(t, page.NextCursor)
}

func TestListFilters(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-24 * time.Hour)
	agentID := uuid.New()
	otherID := uuid.New()
	mine := seedCase(t, db, "CASE-001", enums.CaseStatusAssigned, &agentID, base)
	seedCase(t, db, "CASE-002", enums.CaseStatusInProgress, &otherID, base.Add(time.Hour))
	unassigned := seedCase(t, db, "CASE-003", enums.CaseStatusNew, nil, base.Add(2*time.Hour))

	page, err := repo.List(context.Background(), pagination.Params{}, ListFilters{AssignedAgentID: &agentID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	page, err = repo.List(context.Background(), pagination.Params{}, ListFilters{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, unassigned.ID, page.Items[0].ID)

	status := enums.CaseStatusInProgress
	page, err = repo.List(context.Background(), pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "CASE-002", page.Items[0].CaseNumber)
}

func TestUpdateStatusSetsRespondedOnce(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	agentID := uuid.New()
	record := seedCase(t, db, "CASE-001", enums.CaseStatusInProgress, &agentID, time.Now().UTC().Add(-time.Hour))
	now := time.Now().UTC()

	require.NoError(t, repo.UpdateStatus(context.Background(), record.ID, enums.CaseStatusResponded, true, now))

	got, err := repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CaseStatusResponded, got.Status)
	assert.True(t, got.Responded)

	// moving on to closed must not clear the responded flag
	require.NoError(t, repo.UpdateStatus(context.Background(), record.ID, enums.CaseStatusClosed, false, now.Add(time.Minute)))
	got, err = repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CaseStatusClosed, got.Status)
	assert.True(t, got.Responded)
}

func TestResolveStatus(t *testing.T) {
	db := setupCasesTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, db.Create(&models.CaseStatusRef{Code: enums.CaseStatusNew, Label: "New"}).Error)

	ref, err := repo.ResolveStatus(context.Background(), enums.CaseStatusNew)
	require.NoError(t, err)
	assert.Equal(t, enums.CaseStatusNew, ref.Code)

	_, err = repo.ResolveStatus(context.Background(), enums.CaseStatusClosed)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
