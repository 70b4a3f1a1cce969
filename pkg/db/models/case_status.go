package models

import "github.com/rmarroquin/casedesk-backend/pkg/enums"

// CaseStatusRef is the reference catalog row for case statuses. The
// assignment engine resolves the "new" and "assigned" rows before mutating
// anything; a missing row is a configuration error.
type CaseStatusRef struct {
	Code      enums.CaseStatus `gorm:"column:code;type:text;primaryKey"`
	Label     string           `gorm:"column:label;not null"`
	SortOrder int              `gorm:"column:sort_order;not null;default:0"`
}

// TableName keeps the catalog table name explicit.
func (CaseStatusRef) TableName() string { return "case_statuses" }
