package models

import "time"

// Result is the outcome of one outbound probe against a target URL
type Result struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TargetID  uint      `gorm:"index:idx_results_target_id" json:"target_id"`
	Data      string    `gorm:"type:text" json:"data"`
	Success   bool      `gorm:"not null;default:false;index:idx_results_success" json:"success"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName returns the table name for Result
func (Result) TableName() string { return "results" }

// ResultFilter provides filter fields for repository queries
type ResultFilter struct {
	TargetID *uint
	Success  *bool
}
