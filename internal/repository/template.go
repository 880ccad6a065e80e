package repository

import (
	"context"

	constant "github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	*baseRepository
}

func (tr TemplateRepository) Create(ctx context.Context, tx *gorm.DB, template *model.Template) (*model.Template, error) {
	tr.logger.Debugf("Create template: %s", template.CourseName)

	db := tr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	if err := db.WithContext(ctx).Model(&model.Template{}).Create(template).Error; err != nil {
		return template, err
	}

	return template, nil
}

func (tr TemplateRepository) GetById(ctx context.Context, tx *gorm.DB, templateId string) (*model.Template, error) {
	tr.logger.Debugf("Get template by id: %s", templateId)

	db := tr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var template model.Template
	if err := db.WithContext(ctx).Model(&model.Template{}).Where(model.Template{
		BaseModel: model.BaseModel{
			ID: templateId,
		},
	}).Where("status <> ?", constant.TemplateStatusDeleted).
		Preload("BackgroundFile").
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order asc, id asc")
		}).
		First(&template).Error; err != nil {
		return &template, err
	}

	return &template, nil
}

// Return templates and total count for the owning user.
func (tr TemplateRepository) GetByUserId(ctx context.Context, tx *gorm.DB, userId string, page, pageSize uint) (*[]model.Template, int64, error) {
	tr.logger.Debugf("Get templates by user id: %s", userId)

	db := tr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var templates []model.Template
	total := int64(0)

	query := db.WithContext(ctx).Model(&model.Template{}).
		Where(map[string]any{"user_id": userId}).
		Where("status <> ?", constant.TemplateStatusDeleted)

	if err := query.Count(&total).Error; err != nil {
		return &templates, total, err
	}

	if err := query.Preload("BackgroundFile").Order("created_at desc").
		Offset(int((page - 1) * pageSize)).Limit(int(pageSize)).
		Find(&templates).Error; err != nil {
		return &templates, total, err
	}

	return &templates, total, nil
}

func (tr TemplateRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, templateId string, status constant.TemplateStatus) error {
	tr.logger.Debugf("Update template %s status to %d", templateId, status)

	db := tr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	return db.WithContext(ctx).Model(&model.Template{}).Where(model.Template{
		BaseModel: model.BaseModel{
			ID: templateId,
		},
	}).Update("status", status).Error
}

// IncrementTotalIssued bumps the presentational issue counter. The counter is
// not the enforcement point for usage caps, that is AccessCodeRepository.Redeem.
func (tr TemplateRepository) IncrementTotalIssued(ctx context.Context, tx *gorm.DB, templateId string) error {
	db := tr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	return db.WithContext(ctx).Model(&model.Template{}).Where(model.Template{
		BaseModel: model.BaseModel{
			ID: templateId,
		},
	}).UpdateColumn("total_issued", gorm.Expr("total_issued + 1")).Error
}
