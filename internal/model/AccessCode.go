package model

import "time"

// AccessCode gates self-service issuance for one template: a short secret
// code plus a public link slug, with optional expiry and usage cap.
type AccessCode struct {
	BaseModel
	TemplateID string `gorm:"type:text;not null;index" json:"templateId" form:"templateId"`
	// The secret the recipient types in; compared case-insensitively
	Code       string `gorm:"type:varchar(8);not null" json:"-" form:"-"`
	UniqueLink string `gorm:"type:varchar(12);not null;uniqueIndex" json:"uniqueLink" form:"uniqueLink"`

	ExpiresAt *time.Time `gorm:"type:timestamptz" json:"expiresAt" form:"expiresAt"`
	// nil means unlimited uses
	MaxUses *int `gorm:"type:int" json:"maxUses" form:"maxUses"`
	// Only ever incremented, and only through the conditional update in the
	// access code repository
	CurrentUses int  `gorm:"type:int;not null;default:0" json:"currentUses" form:"currentUses"`
	IsActive    bool `gorm:"type:boolean;default:true" json:"isActive" form:"isActive"`

	CreatedBy string `gorm:"type:text;not null" json:"createdBy" form:"createdBy"`

	Template Template `gorm:"constraint:OnDelete:CASCADE;" json:"template,omitempty" form:"template"`
}

func (ac AccessCode) TableName() string {
	return "access_codes"
}
