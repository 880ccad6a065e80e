package repository

import (
	"context"
	"errors"

	"github.com/SeakMengs/CertGate/internal/model"
	"gorm.io/gorm"
)

// IssuanceStore adapts the gorm repositories to the narrow persistence
// surface the issuance coordinator works against.
type IssuanceStore struct {
	repo *Repository
}

func NewIssuanceStore(repo *Repository) *IssuanceStore {
	return &IssuanceStore{repo: repo}
}

func (s *IssuanceStore) AccessCodeByLink(ctx context.Context, uniqueLink string) (*model.AccessCode, error) {
	accessCode, err := s.repo.AccessCode.GetByUniqueLink(ctx, nil, uniqueLink)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return accessCode, nil
}

func (s *IssuanceStore) TemplateByID(ctx context.Context, templateId string) (*model.Template, error) {
	template, err := s.repo.Template.GetById(ctx, nil, templateId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return template, nil
}

func (s *IssuanceStore) RedeemAccessCode(ctx context.Context, accessCodeId string) (bool, error) {
	return s.repo.AccessCode.Redeem(ctx, nil, accessCodeId)
}

func (s *IssuanceStore) CertificateNumberTaken(ctx context.Context, number string) (bool, error) {
	return s.repo.IssuedCertificate.NumberExists(ctx, nil, number)
}

func (s *IssuanceStore) CreateIssuedCertificate(ctx context.Context, cert *model.IssuedCertificate) error {
	_, err := s.repo.IssuedCertificate.Create(ctx, nil, cert)
	return err
}

func (s *IssuanceStore) IncrementTotalIssued(ctx context.Context, templateId string) error {
	return s.repo.Template.IncrementTotalIssued(ctx, nil, templateId)
}
