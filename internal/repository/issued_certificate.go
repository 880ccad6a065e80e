package repository

import (
	"context"
	"errors"

	constant "github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

type IssuedCertificateRepository struct {
	*baseRepository
}

func (icr IssuedCertificateRepository) Create(ctx context.Context, tx *gorm.DB, certificate *model.IssuedCertificate) (*model.IssuedCertificate, error) {
	icr.logger.Debugf("Create issued certificate: %s", certificate.CertificateNumber)

	db := icr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	if err := db.WithContext(ctx).Model(&model.IssuedCertificate{}).Create(certificate).Error; err != nil {
		return certificate, err
	}

	return certificate, nil
}

func (icr IssuedCertificateRepository) GetByNumber(ctx context.Context, tx *gorm.DB, certificateNumber string) (*model.IssuedCertificate, error) {
	icr.logger.Debugf("Get issued certificate by number: %s", certificateNumber)

	db := icr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var certificate model.IssuedCertificate
	if err := db.WithContext(ctx).Model(&model.IssuedCertificate{}).Where(map[string]any{
		"certificate_number": certificateNumber,
	}).Preload("CertificateFile").Preload("Template").First(&certificate).Error; err != nil {
		return &certificate, err
	}

	return &certificate, nil
}

func (icr IssuedCertificateRepository) GetByTemplateId(ctx context.Context, tx *gorm.DB, templateId string, page, pageSize uint) (*[]model.IssuedCertificate, int64, error) {
	icr.logger.Debugf("Get issued certificates by template id: %s", templateId)

	db := icr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var certificates []model.IssuedCertificate
	total := int64(0)

	query := db.WithContext(ctx).Model(&model.IssuedCertificate{}).Where(map[string]any{
		"template_id": templateId,
	})

	if err := query.Count(&total).Error; err != nil {
		return &certificates, total, err
	}

	if err := query.Preload("CertificateFile").Order("issued_at desc").
		Offset(int((page - 1) * pageSize)).Limit(int(pageSize)).
		Find(&certificates).Error; err != nil {
		return &certificates, total, err
	}

	return &certificates, total, nil
}

// NumberExists backs collision-checked certificate number generation.
func (icr IssuedCertificateRepository) NumberExists(ctx context.Context, tx *gorm.DB, certificateNumber string) (bool, error) {
	db := icr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var certificate model.IssuedCertificate
	err := db.WithContext(ctx).Model(&model.IssuedCertificate{}).Select("id").Where(map[string]any{
		"certificate_number": certificateNumber,
	}).First(&certificate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
