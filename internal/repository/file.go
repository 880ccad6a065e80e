package repository

import (
	"context"

	constant "github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

type FileRepository struct {
	*baseRepository
}

func (fr FileRepository) Create(ctx context.Context, tx *gorm.DB, file *model.File) (*model.File, error) {
	fr.logger.Debugf("Create file: %s", file.UniqueFileName)

	db := fr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	if err := db.WithContext(ctx).Model(&model.File{}).Create(file).Error; err != nil {
		return file, err
	}

	return file, nil
}

func (fr FileRepository) GetById(ctx context.Context, tx *gorm.DB, fileId string) (*model.File, error) {
	fr.logger.Debugf("Get file by id: %s", fileId)

	db := fr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var file model.File
	if err := db.WithContext(ctx).Model(&model.File{}).Where(model.File{
		BaseModel: model.BaseModel{
			ID: fileId,
		},
	}).First(&file).Error; err != nil {
		return &file, err
	}

	return &file, nil
}
