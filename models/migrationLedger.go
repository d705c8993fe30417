package models

import (
	"time"
)

// MigrationLedger records one applied migration. Rows are written once after
// the migration's transaction commits and are never updated; removing one is
// an operator decision, not application behavior.
type MigrationLedger struct {
	Name      string    `gorm:"column:name;primaryKey;size:191" json:"name"`
	AppliedAt time.Time `gorm:"not null" json:"applied_at"`
	Checksum  string    `gorm:"size:64" json:"checksum"`
	AppliedBy string    `gorm:"size:100" json:"applied_by"`
}
