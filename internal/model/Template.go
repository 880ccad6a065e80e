package model

import (
	"github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/pkg/certgate"
)

type Template struct {
	BaseModel
	CourseName       string                  `gorm:"type:varchar(100);not null" json:"courseName" form:"courseName" binding:"required"`
	BackgroundFileId string                  `gorm:"type:text;not null" json:"backgroundFileId" form:"backgroundFileId"`
	Width            int                     `gorm:"type:int;not null" json:"width" form:"width"`
	Height           int                     `gorm:"type:int;not null" json:"height" form:"height"`
	Status           constant.TemplateStatus `gorm:"type:integer;default:0" json:"status" form:"status"`
	TotalIssued      int                     `gorm:"type:int;not null;default:0" json:"totalIssued" form:"totalIssued"`
	UserID           string                  `gorm:"type:text;not null;index" json:"userId" form:"userId"`

	BackgroundFile File            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"backgroundFile,omitempty" form:"backgroundFile"`
	Fields         []TemplateField `gorm:"constraint:OnDelete:CASCADE;" json:"fields,omitempty" form:"fields"`
}

func (t Template) TableName() string {
	return "templates"
}

// A template can only be rendered when it carries at least one required
// recipient name field.
func (t Template) IsRenderable() bool {
	if t.Status != constant.TemplateStatusActive {
		return false
	}

	for _, f := range t.Fields {
		if f.Type == certgate.FieldTypeRecipientName && f.IsRequired {
			return true
		}
	}

	return false
}
