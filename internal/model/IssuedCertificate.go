package model

import (
	"time"

	"github.com/SeakMengs/CertGate/internal/constant"
)

// IssuedCertificate is created exactly once per successful redemption and is
// immutable afterwards.
type IssuedCertificate struct {
	BaseModel
	TemplateID string `gorm:"type:text;not null;index" json:"templateId" form:"templateId"`
	// nil for manual issuance by the instructor
	AccessCodeID      *string              `gorm:"type:text;index" json:"accessCodeId" form:"accessCodeId"`
	RecipientName     string               `gorm:"type:varchar(100);not null" json:"recipientName" form:"recipientName"`
	CertificateFileId string               `gorm:"type:text;not null" json:"certificateFileId" form:"certificateFileId"`
	CertificateNumber string               `gorm:"type:varchar(16);not null;uniqueIndex" json:"certificateNumber" form:"certificateNumber"`
	IssuedAt          time.Time            `gorm:"type:timestamptz;not null" json:"issuedAt" form:"issuedAt"`
	IssueMethod       constant.IssueMethod `gorm:"type:varchar(16);not null" json:"issueMethod" form:"issueMethod"`

	CertificateFile File     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"certificateFile,omitempty" form:"certificateFile"`
	Template        Template `gorm:"constraint:OnDelete:SET NULL;" json:"template,omitempty" form:"template"`
}

func (ic IssuedCertificate) TableName() string {
	return "issued_certificates"
}
