package model

import (
	"github.com/SeakMengs/CertGate/pkg/certgate"
)

type TemplateField struct {
	BaseModel
	TemplateID      string             `gorm:"type:text;not null;index" json:"templateId" form:"templateId"`
	Type            certgate.FieldType `gorm:"type:varchar(32);not null" json:"type" form:"type" binding:"required"`
	XPercent        float64            `gorm:"type:double precision;not null" json:"xPercent" form:"xPercent" binding:"gte=0,lte=100"`
	YPercent        float64            `gorm:"type:double precision;not null" json:"yPercent" form:"yPercent" binding:"gte=0,lte=100"`
	FontName        string             `gorm:"type:varchar(100)" json:"fontName" form:"fontName"`
	FontSize        float64            `gorm:"type:double precision;default:16" json:"fontSize" form:"fontSize"`
	FontWeight      string             `gorm:"type:varchar(10);default:regular" json:"fontWeight" form:"fontWeight"`
	FontColor       string             `gorm:"type:varchar(9);default:#000000" json:"fontColor" form:"fontColor"`
	TextAlign       string             `gorm:"type:varchar(10);default:center" json:"textAlign" form:"textAlign"`
	MaxWidthPercent *float64           `gorm:"type:double precision" json:"maxWidthPercent" form:"maxWidthPercent"`
	DisplayOrder    int                `gorm:"type:int;not null;default:0" json:"displayOrder" form:"displayOrder"`
	IsRequired      bool               `gorm:"type:boolean;default:false" json:"isRequired" form:"isRequired"`
	// Lookup key into the caller supplied value map, only for custom fields
	CustomKey string `gorm:"type:varchar(100)" json:"customKey" form:"customKey"`
}

func (tf TemplateField) TableName() string {
	return "template_fields"
}

// ToRenderField converts the persisted row into the render engine's field type.
func (tf TemplateField) ToRenderField() certgate.Field {
	return certgate.Field{
		Type:     tf.Type,
		XPercent: tf.XPercent,
		YPercent: tf.YPercent,
		Font: certgate.Font{
			Name:   tf.FontName,
			Size:   tf.FontSize,
			Color:  tf.FontColor,
			Weight: certgate.FontWeight(tf.FontWeight),
		},
		TextAlign:       certgate.TextAlign(tf.TextAlign),
		MaxWidthPercent: tf.MaxWidthPercent,
		DisplayOrder:    tf.DisplayOrder,
		IsRequired:      tf.IsRequired,
		CustomKey:       tf.CustomKey,
	}
}
