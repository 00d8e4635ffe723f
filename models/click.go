package models

import (
	"time"

	"gorm.io/datatypes"
)

// Click is a recorded visit to the lure page
// Token is issued fresh per visit and is the only key linking it to a later Credential
// TargetID is a weak reference; it may point to a target that no longer exists
type Click struct {
	ID          uint                             `gorm:"primaryKey" json:"id"`
	TargetID    *uint                            `gorm:"index:idx_clicks_target_id" json:"target_id,omitempty"`
	IP          string                           `gorm:"column:ip;size:64" json:"ip"`
	UserAgent   string                           `gorm:"type:text" json:"user_agent"`
	Token       string                           `gorm:"size:64;not null;uniqueIndex:uk_clicks_token" json:"token"`
	Geolocation datatypes.JSONType[LocationInfo] `gorm:"type:jsonb" json:"geolocation"`
	CreatedAt   time.Time                        `gorm:"default:CURRENT_TIMESTAMP;index:idx_clicks_created_at" json:"created_at"`
}

// TableName returns the table name for Click
func (Click) TableName() string { return "clicks" }

// Location returns the decoded geolocation record
func (c *Click) Location() LocationInfo { return c.Geolocation.Data() }

// ClickFilter provides filter fields for repository queries
type ClickFilter struct {
	TargetID *uint
	Token    *string
}
