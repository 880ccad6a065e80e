package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/SeakMengs/CertGate/pkg/certgate"
	"go.uber.org/zap"
)

// Store is the persistence surface the coordinator needs. The implementation
// must make RedeemAccessCode a single atomic conditional update: the
// eligibility check and the increment may not be separate statements.
type Store interface {
	// AccessCodeByLink loads the latest persisted state of a code with its
	// template, fields and background file. Returns (nil, nil) when the link
	// is unknown.
	AccessCodeByLink(ctx context.Context, uniqueLink string) (*model.AccessCode, error)
	// TemplateByID loads a template with fields and background file.
	// Returns (nil, nil) when unknown.
	TemplateByID(ctx context.Context, templateId string) (*model.Template, error)
	// RedeemAccessCode consumes one use. Returns false without error when the
	// conditional update matched zero rows, i.e. the code was concurrently
	// exhausted or deactivated.
	RedeemAccessCode(ctx context.Context, accessCodeId string) (bool, error)
	CertificateNumberTaken(ctx context.Context, number string) (bool, error)
	CreateIssuedCertificate(ctx context.Context, cert *model.IssuedCertificate) error
	IncrementTotalIssued(ctx context.Context, templateId string) error
}

// Renderer is satisfied by *certgate.Compositor.
type Renderer interface {
	Render(ctx context.Context, req certgate.RenderRequest) ([]byte, error)
}

// ArtifactStore moves rendered bytes and template backgrounds in and out of
// object storage.
type ArtifactStore interface {
	FetchBackground(ctx context.Context, file model.File) ([]byte, error)
	UploadCertificate(ctx context.Context, templateId, fileName string, data []byte) (*model.File, error)
}

type CoordinatorConfig struct {
	// Wall-clock budget for one render; exceeding it is a RenderFailure,
	// never a retry.
	RenderTimeout time.Duration
	// Diagonal watermark text for non-production renders, empty in production
	Watermark string
	// Secret mixed into QR verification hashes
	VerifySecret string
}

// Coordinator owns the issuance pipeline: validate, atomically redeem,
// render, persist. Redemption happens exactly once per accepted request; a
// capped code is never over-redeemed under concurrency because the only
// enforcement point is the store's conditional update.
type Coordinator struct {
	cfg       CoordinatorConfig
	store     Store
	renderer  Renderer
	artifacts ArtifactStore
	logger    *zap.SugaredLogger

	// Overridable clock for tests
	now func() time.Time
}

func NewCoordinator(cfg CoordinatorConfig, store Store, renderer Renderer, artifacts ArtifactStore, logger *zap.SugaredLogger) *Coordinator {
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 10 * time.Second
	}

	return &Coordinator{
		cfg:       cfg,
		store:     store,
		renderer:  renderer,
		artifacts: artifacts,
		logger:    logger,
		now:       time.Now,
	}
}

type RedeemRequest struct {
	UniqueLink     string
	SecretCode     string
	RecipientName  string
	CustomValues   map[string]string
	EmbedQR        bool
	EmbedSignature bool
}

type IssueResult struct {
	Certificate *model.IssuedCertificate
	File        *model.File
}

// ValidateCode re-evaluates an access code against its latest persisted
// state. Returns the code with template and fields on success.
func (c *Coordinator) ValidateCode(ctx context.Context, uniqueLink, secretCode string) (*model.AccessCode, error) {
	code, err := c.store.AccessCodeByLink(ctx, uniqueLink)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if code == nil {
		return nil, ErrNotFound
	}

	if stateErr := Evaluate(code, secretCode, c.now()).Err(); stateErr != nil {
		return nil, stateErr
	}

	return code, nil
}

// Redeem runs the full self-service pipeline. On any failure after the
// atomic increment the consumed use is not rolled back; reconciliation is
// manual.
func (c *Coordinator) Redeem(ctx context.Context, req RedeemRequest) (*IssueResult, error) {
	code, err := c.ValidateCode(ctx, req.UniqueLink, req.SecretCode)
	if err != nil {
		return nil, err
	}

	if !code.Template.IsRenderable() {
		return nil, fmt.Errorf("%w: template %s has no required recipient name field", ErrValidation, code.TemplateID)
	}

	// The check and increment are one statement; zero affected rows means a
	// concurrent request won the last use.
	redeemed, err := c.store.RedeemAccessCode(ctx, code.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if !redeemed {
		return nil, ErrExhausted
	}

	result, err := c.issue(ctx, &code.Template, &code.ID, req.RecipientName, req.CustomValues, req.EmbedQR, req.EmbedSignature, constant.IssueMethodSelfService)
	if err != nil {
		c.logger.Errorw("issuance failed after access code increment, use is consumed",
			"accessCodeId", code.ID, "templateId", code.TemplateID, "error", err)
		return nil, err
	}

	return result, nil
}

// IssueManual renders and records a certificate without an access code, used
// by instructors issuing directly.
func (c *Coordinator) IssueManual(ctx context.Context, templateId, recipientName string, customValues map[string]string, embedQR bool) (*IssueResult, error) {
	template, err := c.store.TemplateByID(ctx, templateId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if template == nil {
		return nil, ErrNotFound
	}
	if !template.IsRenderable() {
		return nil, fmt.Errorf("%w: template %s has no required recipient name field", ErrValidation, templateId)
	}

	return c.issue(ctx, template, nil, recipientName, customValues, embedQR, false, constant.IssueMethodManual)
}

func (c *Coordinator) issue(ctx context.Context, template *model.Template, accessCodeId *string, recipientName string, customValues map[string]string, embedQR, embedSignature bool, method constant.IssueMethod) (*IssueResult, error) {
	// UTC keeps the persisted timestamp and every later hash recomputation in
	// the same frame of reference as the render.
	issuedAt := c.now().UTC()

	number, err := GenerateCertificateNumber(ctx, issuedAt, c.store.CertificateNumberTaken)
	if err != nil {
		return nil, err
	}

	background, err := c.artifacts.FetchBackground(ctx, template.BackgroundFile)
	if err != nil {
		return nil, fmt.Errorf("%w: background fetch: %v", ErrRenderFailure, err)
	}

	renderReq := certgate.RenderRequest{
		Background: background,
		Fields:     make([]certgate.Field, 0, len(template.Fields)),
		Values: certgate.FieldValues{
			RecipientName:     recipientName,
			CertificateNumber: number,
			IssuedAt:          issuedAt,
			Custom:            customValues,
		},
		EmbedQR:   embedQR,
		Watermark: c.cfg.Watermark,
	}
	for _, f := range template.Fields {
		renderReq.Fields = append(renderReq.Fields, f.ToRenderField())
	}

	if embedSignature {
		renderReq.Signature = &certgate.SignaturePanel{
			Algorithm:   "SHA3-256",
			SignatureID: certgate.VerificationHash(number, recipientName, issuedAt, c.cfg.VerifySecret),
			Valid:       true,
		}
	}

	renderCtx, cancel := context.WithTimeout(ctx, c.cfg.RenderTimeout)
	defer cancel()

	rendered, err := c.renderer.Render(renderCtx, renderReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}

	fileName := fmt.Sprintf("%s.png", number)
	file, err := c.artifacts.UploadCertificate(ctx, template.ID, fileName, rendered)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact upload: %v", ErrPersistenceFailure, err)
	}

	cert := &model.IssuedCertificate{
		TemplateID:        template.ID,
		AccessCodeID:      accessCodeId,
		RecipientName:     recipientName,
		CertificateFileId: file.ID,
		CertificateNumber: number,
		IssuedAt:          issuedAt,
		IssueMethod:       method,
	}
	if err := c.store.CreateIssuedCertificate(ctx, cert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	cert.CertificateFile = *file

	// The counter is presentational; it catches up eventually and must not
	// hold the response hostage.
	go func() {
		bgCtx, bgCancel := context.WithTimeout(context.Background(), constant.QUERY_TIMEOUT_DURATION)
		defer bgCancel()

		if err := c.store.IncrementTotalIssued(bgCtx, template.ID); err != nil {
			c.logger.Errorw("failed to bump template issue counter", "templateId", template.ID, "error", err)
		}
	}()

	return &IssueResult{Certificate: cert, File: file}, nil
}
