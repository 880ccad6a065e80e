package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/SeakMengs/CertGate/pkg/certgate"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	svg "github.com/wamuir/svg-qr-code"
	"gorm.io/gorm"
)

type VerifyController struct {
	*baseController
}

// Verify returns the public facts of an issued certificate so anyone holding
// a certificate number can confirm it is genuine. No auth, no secrets.
func (vc VerifyController) Verify(ctx *gin.Context) {
	certificateNumber := ctx.Param("number")

	certificate, err := vc.app.Repository.IssuedCertificate.GetByNumber(ctx, nil, certificateNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.ResponseFailed(ctx, http.StatusNotFound, "Certificate not found", util.GenerateErrorMessages(errors.New("certificate not found"), "number"), nil)
			return
		}
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to verify certificate", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"certificateNumber": certificate.CertificateNumber,
		"recipientName":     certificate.RecipientName,
		"courseName":        certificate.Template.CourseName,
		"issuedAt":          certificate.IssuedAt,
		"issueMethod":       certificate.IssueMethod,
		"verificationHash": certgate.VerificationHash(
			certificate.CertificateNumber,
			certificate.RecipientName,
			certificate.IssuedAt,
			vc.app.Config.App.VerifySecret,
		),
	})
}

// VerifyQrSvg renders the verification URL as a standalone SVG QR code,
// handy for embedding in course pages.
func (vc VerifyController) VerifyQrSvg(ctx *gin.Context) {
	certificateNumber := ctx.Param("number")

	// Only mint QR codes for certificates that exist
	_, err := vc.app.Repository.IssuedCertificate.GetByNumber(ctx, nil, certificateNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.ResponseFailed(ctx, http.StatusNotFound, "Certificate not found", util.GenerateErrorMessages(errors.New("certificate not found"), "number"), nil)
			return
		}
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to generate QR", util.GenerateErrorMessages(err), nil)
		return
	}

	verifyUrl := fmt.Sprintf("%s/api/v1/verify/%s", vc.app.Config.App.BaseURL, certificateNumber)

	qr, err := svg.New(verifyUrl)
	if err != nil {
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to generate QR", util.GenerateErrorMessages(err), nil)
		return
	}

	ctx.Header("Content-Type", "image/svg+xml")
	ctx.String(http.StatusOK, qr.String())
}

// DownloadPdf wraps the stored certificate image into a single-page PDF.
func (vc VerifyController) DownloadPdf(ctx *gin.Context) {
	certificateNumber := ctx.Param("number")

	certificate, err := vc.app.Repository.IssuedCertificate.GetByNumber(ctx, nil, certificateNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.ResponseFailed(ctx, http.StatusNotFound, "Certificate not found", util.GenerateErrorMessages(errors.New("certificate not found"), "number"), nil)
			return
		}
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get certificate", util.GenerateErrorMessages(err), nil)
		return
	}

	object, err := vc.app.S3.GetObject(ctx, certificate.CertificateFile.BucketName, certificate.CertificateFile.UniqueFileName, minio.GetObjectOptions{})
	if err != nil {
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get certificate file", util.GenerateErrorMessages(err), nil)
		return
	}
	defer object.Close()

	imageData, err := io.ReadAll(object)
	if err != nil {
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to read certificate file", util.GenerateErrorMessages(err), nil)
		return
	}

	pdfData, err := certgate.ImageBytesToPdf(imageData, "")
	if err != nil {
		vc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to convert certificate to pdf", util.GenerateErrorMessages(err), nil)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", certificateNumber))
	ctx.Data(http.StatusOK, "application/pdf", pdfData)
}
