// Package models contains domain entities for the awareness tracking pipeline
package models

import "time"

// Target is an operator-registered recipient of a simulated lure
// Rows are append-only; the tracking pipeline never mutates them
type Target struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	URL       string    `gorm:"column:url;type:text;not null" json:"url"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_targets_created_at" json:"created_at"`
}

// TableName returns the table name for Target
func (Target) TableName() string { return "targets" }

// TargetFilter provides filter fields for repository queries
type TargetFilter struct {
	ID    *uint
	Email *string
}
