package repository

import (
	"context"
	"errors"

	constant "github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

type AccessCodeRepository struct {
	*baseRepository
}

func (acr AccessCodeRepository) Create(ctx context.Context, tx *gorm.DB, accessCode *model.AccessCode) (*model.AccessCode, error) {
	acr.logger.Debugf("Create access code for template: %s", accessCode.TemplateID)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	if err := db.WithContext(ctx).Model(&model.AccessCode{}).Create(accessCode).Error; err != nil {
		return accessCode, err
	}

	return accessCode, nil
}

// GetByUniqueLink loads a code with its template, layout and background so
// the caller can evaluate and render without further round trips.
func (acr AccessCodeRepository) GetByUniqueLink(ctx context.Context, tx *gorm.DB, uniqueLink string) (*model.AccessCode, error) {
	acr.logger.Debugf("Get access code by unique link: %s", uniqueLink)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var accessCode model.AccessCode
	if err := db.WithContext(ctx).Model(&model.AccessCode{}).Where(map[string]any{
		"unique_link": uniqueLink,
	}).Preload("Template.BackgroundFile").
		Preload("Template.Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order asc, id asc")
		}).
		First(&accessCode).Error; err != nil {
		return &accessCode, err
	}

	return &accessCode, nil
}

func (acr AccessCodeRepository) GetById(ctx context.Context, tx *gorm.DB, accessCodeId string) (*model.AccessCode, error) {
	acr.logger.Debugf("Get access code by id: %s", accessCodeId)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var accessCode model.AccessCode
	if err := db.WithContext(ctx).Model(&model.AccessCode{}).Where(model.AccessCode{
		BaseModel: model.BaseModel{
			ID: accessCodeId,
		},
	}).Preload("Template").First(&accessCode).Error; err != nil {
		return &accessCode, err
	}

	return &accessCode, nil
}

func (acr AccessCodeRepository) GetByTemplateId(ctx context.Context, tx *gorm.DB, templateId string, page, pageSize uint) (*[]model.AccessCode, int64, error) {
	acr.logger.Debugf("Get access codes by template id: %s", templateId)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var accessCodes []model.AccessCode
	total := int64(0)

	query := db.WithContext(ctx).Model(&model.AccessCode{}).Where(map[string]any{
		"template_id": templateId,
	})

	if err := query.Count(&total).Error; err != nil {
		return &accessCodes, total, err
	}

	if err := query.Order("created_at desc").
		Offset(int((page - 1) * pageSize)).Limit(int(pageSize)).
		Find(&accessCodes).Error; err != nil {
		return &accessCodes, total, err
	}

	return &accessCodes, total, nil
}

// Redeem consumes one use with a single conditional update. The eligibility
// check and the increment are one statement, which is the only thing keeping
// a capped code from being over-redeemed under concurrent requests:
//
//	UPDATE access_codes SET current_uses = current_uses + 1
//	WHERE id = ? AND is_active AND (max_uses IS NULL OR current_uses < max_uses)
//
// Returns false without error when zero rows matched, i.e. the code was
// concurrently exhausted or deactivated between evaluation and redemption.
func (acr AccessCodeRepository) Redeem(ctx context.Context, tx *gorm.DB, accessCodeId string) (bool, error) {
	acr.logger.Debugf("Redeem access code: %s", accessCodeId)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	result := db.WithContext(ctx).Model(&model.AccessCode{}).
		Where("id = ? AND is_active = ? AND (max_uses IS NULL OR current_uses < max_uses)", accessCodeId, true).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (acr AccessCodeRepository) Deactivate(ctx context.Context, tx *gorm.DB, accessCodeId string) error {
	acr.logger.Debugf("Deactivate access code: %s", accessCodeId)

	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	result := db.WithContext(ctx).Model(&model.AccessCode{}).Where(model.AccessCode{
		BaseModel: model.BaseModel{
			ID: accessCodeId,
		},
	}).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SecretExistsForTemplate backs collision-checked secret generation. The
// generator only emits the uppercase alphabet, so an exact match suffices.
func (acr AccessCodeRepository) SecretExistsForTemplate(ctx context.Context, tx *gorm.DB, templateId, secret string) (bool, error) {
	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var accessCode model.AccessCode
	err := db.WithContext(ctx).Model(&model.AccessCode{}).Select("id").Where(map[string]any{
		"template_id": templateId,
		"code":        secret,
	}).First(&accessCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// UniqueLinkExists backs collision-checked slug generation.
func (acr AccessCodeRepository) UniqueLinkExists(ctx context.Context, tx *gorm.DB, uniqueLink string) (bool, error) {
	db := acr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var accessCode model.AccessCode
	err := db.WithContext(ctx).Model(&model.AccessCode{}).Select("id").Where(map[string]any{
		"unique_link": uniqueLink,
	}).First(&accessCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
