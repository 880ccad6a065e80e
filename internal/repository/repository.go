package repository

import (
	"github.com/SeakMengs/CertGate/internal/auth"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type baseRepository struct {
	db         *gorm.DB
	logger     *zap.SugaredLogger
	jwtService auth.JWTInterface
	s3         *minio.Client
}

type Repository struct {
	// DB can be used for transaction. Example usage:
	// tx := r.DB.Begin()
	// defer tx.Commit()
	// Then pass tx to the repository function. and use tx.Rollback() if error occurred
	DB                *gorm.DB
	Template          *TemplateRepository
	TemplateField     *TemplateFieldRepository
	AccessCode        *AccessCodeRepository
	IssuedCertificate *IssuedCertificateRepository
	File              *FileRepository
}

func newBaseRepository(db *gorm.DB, logger *zap.SugaredLogger, jwtService auth.JWTInterface, s3 *minio.Client) *baseRepository {
	return &baseRepository{db: db, logger: logger, jwtService: jwtService, s3: s3}
}

func NewRepository(db *gorm.DB, logger *zap.SugaredLogger, jwtService auth.JWTInterface, s3 *minio.Client) *Repository {
	br := newBaseRepository(db, logger, jwtService, s3)

	return &Repository{
		DB:                db,
		Template:          &TemplateRepository{baseRepository: br},
		TemplateField:     &TemplateFieldRepository{baseRepository: br},
		AccessCode:        &AccessCodeRepository{baseRepository: br},
		IssuedCertificate: &IssuedCertificateRepository{baseRepository: br},
		File:              &FileRepository{baseRepository: br},
	}
}

// GORM runs write operations inside a transaction by default; this helper is
// for multi-statement units such as replacing a template's field set.
// Docs: https://gorm.io/docs/transactions.html
func (b baseRepository) withTx(db *gorm.DB, fn func(*gorm.DB) error) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})

	if err != nil {
		b.logger.Errorf("withTx Transaction error: %v", err)
	}

	return err
}

func (b baseRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}

	return b.db
}
