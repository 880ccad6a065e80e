package repository

import (
	"context"

	constant "github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

type TemplateFieldRepository struct {
	*baseRepository
}

// Replace swaps a template's whole field set in one transaction so a template
// is never observed with a partially written layout.
func (tfr TemplateFieldRepository) Replace(ctx context.Context, tx *gorm.DB, templateId string, fields []model.TemplateField) ([]model.TemplateField, error) {
	tfr.logger.Debugf("Replace %d fields of template: %s", len(fields), templateId)

	db := tfr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	err := tfr.withTx(db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where(map[string]any{"template_id": templateId}).Delete(&model.TemplateField{}).Error; err != nil {
			return err
		}

		if len(fields) == 0 {
			return nil
		}

		for i := range fields {
			fields[i].TemplateID = templateId
		}

		return tx.Model(&model.TemplateField{}).Create(&fields).Error
	})

	return fields, err
}

func (tfr TemplateFieldRepository) GetByTemplateId(ctx context.Context, tx *gorm.DB, templateId string) (*[]model.TemplateField, error) {
	tfr.logger.Debugf("Get fields by template id: %s", templateId)

	db := tfr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var fields []model.TemplateField
	if err := db.WithContext(ctx).Model(&model.TemplateField{}).Where(map[string]any{
		"template_id": templateId,
	}).Order("display_order asc, id asc").Find(&fields).Error; err != nil {
		return &fields, err
	}

	return &fields, nil
}
