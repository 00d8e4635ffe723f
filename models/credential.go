package models

import (
	"time"

	"gorm.io/datatypes"
)

// Credential is a recorded form submission on the lure page
// Only the submitted identifier is kept; the secret field is reduced to PasswordSubmitted
// Token is nil when the browser did not carry a tracking cookie
type Credential struct {
	ID                uint                             `gorm:"primaryKey" json:"id"`
	TargetID          *uint                            `gorm:"index:idx_credentials_target_id" json:"target_id,omitempty"`
	Email             string                           `gorm:"type:text" json:"email"`
	PasswordSubmitted bool                             `gorm:"not null;default:false" json:"password_submitted"`
	IP                string                           `gorm:"column:ip;size:64" json:"ip"`
	UserAgent         string                           `gorm:"type:text" json:"user_agent"`
	Token             *string                          `gorm:"size:64;index:idx_credentials_token" json:"token,omitempty"`
	Geolocation       datatypes.JSONType[LocationInfo] `gorm:"type:jsonb" json:"geolocation"`
	CreatedAt         time.Time                        `gorm:"default:CURRENT_TIMESTAMP;index:idx_credentials_created_at" json:"created_at"`
}

// TableName returns the table name for Credential
func (Credential) TableName() string { return "credentials" }

// Location returns the decoded geolocation record
func (c *Credential) Location() LocationInfo { return c.Geolocation.Data() }

// TokenValue returns the correlation token or an empty string
func (c *Credential) TokenValue() string {
	if c.Token == nil {
		return ""
	}
	return *c.Token
}

// CredentialFilter provides filter fields for repository queries
type CredentialFilter struct {
	TargetID *uint
	Token    *string
}
