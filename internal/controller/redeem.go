package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SeakMengs/CertGate/internal/issuance"
	"github.com/SeakMengs/CertGate/internal/mailer"
	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/gin-gonic/gin"
)

type RedeemController struct {
	*baseController
}

// Validate checks an access code without consuming a use, so the frontend can
// show the template preview and field form before the recipient commits.
func (rc RedeemController) Validate(ctx *gin.Context) {
	type Request struct {
		UniqueLink string `json:"uniqueLink" form:"uniqueLink" binding:"required,strNotEmpty"`
		SecretCode string `json:"secretCode" form:"secretCode" binding:"required,strNotEmpty"`
	}
	var body Request

	if err := ctx.ShouldBind(&body); err != nil {
		rc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	accessCode, err := rc.app.Coordinator.ValidateCode(ctx, body.UniqueLink, body.SecretCode)
	if err != nil {
		rc.respondIssuanceError(ctx, err)
		return
	}

	backgroundUrl, err := accessCode.Template.BackgroundFile.ToPresignedUrl(ctx, rc.app.S3)
	if err != nil {
		rc.app.Logger.Errorf("Failed to presign background url: %v", err)
		backgroundUrl = ""
	}

	util.ResponseSuccess(ctx, gin.H{
		"accessCodeId":          accessCode.ID,
		"templateId":            accessCode.TemplateID,
		"courseName":            accessCode.Template.CourseName,
		"templateBackgroundUrl": backgroundUrl,
		"fields":                accessCode.Template.Fields,
	})
}

// Generate consumes one use of the access code and renders the certificate
// server side. The whole pipeline runs in the coordinator; this handler only
// shapes the request and response.
func (rc RedeemController) Generate(ctx *gin.Context) {
	type Request struct {
		UniqueLink     string            `json:"uniqueLink" form:"uniqueLink" binding:"required,strNotEmpty"`
		SecretCode     string            `json:"secretCode" form:"secretCode" binding:"required,strNotEmpty"`
		RecipientName  string            `json:"recipientName" form:"recipientName" binding:"required,strNotEmpty,min=1,max=100"`
		RecipientEmail string            `json:"recipientEmail" form:"recipientEmail" binding:"omitempty,email"`
		CustomValues   map[string]string `json:"customValues" form:"customValues"`
		EmbedQr        bool              `json:"embedQr" form:"embedQr"`
		EmbedSignature bool              `json:"embedSignature" form:"embedSignature"`
	}
	var body Request

	if err := ctx.ShouldBind(&body); err != nil {
		rc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	result, err := rc.app.Coordinator.Redeem(ctx, issuance.RedeemRequest{
		UniqueLink:     body.UniqueLink,
		SecretCode:     body.SecretCode,
		RecipientName:  body.RecipientName,
		CustomValues:   body.CustomValues,
		EmbedQR:        body.EmbedQr,
		EmbedSignature: body.EmbedSignature,
	})
	if err != nil {
		rc.respondIssuanceError(ctx, err)
		return
	}

	certificateUrl, err := result.File.ToPresignedUrl(ctx, rc.app.S3)
	if err != nil {
		rc.app.Logger.Errorf("Failed to presign certificate url: %v", err)
		certificateUrl = ""
	}

	if body.RecipientEmail != "" {
		go rc.sendCertificateReadyMail(result.Certificate.TemplateID, body.RecipientName, body.RecipientEmail, result.Certificate.CertificateNumber, certificateUrl)
	}

	util.ResponseSuccess(ctx, gin.H{
		"certificateId":     result.Certificate.ID,
		"certificateUrl":    certificateUrl,
		"certificateNumber": result.Certificate.CertificateNumber,
		"issuedAt":          result.Certificate.IssuedAt,
	})
}

func (rc RedeemController) respondIssuanceError(ctx *gin.Context, err error) {
	status := issuance.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rc.app.Logger.Errorf("Issuance failed: %v", err)
	} else {
		rc.app.Logger.Debugf("Issuance rejected: %v", err)
	}

	util.ResponseFailed(ctx, status, issuance.UserMessage(err), util.GenerateErrorMessages(err, "accessCode"), nil)
}

func (rc RedeemController) sendCertificateReadyMail(templateId, recipientName, recipientEmail, certificateNumber, certificateUrl string) {
	template, err := rc.app.Repository.Template.GetById(context.Background(), nil, templateId)
	if err != nil {
		rc.app.Logger.Errorf("Failed to load template for certificate mail: %v", err)
		return
	}

	vars := struct {
		RecipientName     string
		CourseName        string
		CertificateNumber string
		CertificateURL    string
		VerifyURL         string
	}{
		RecipientName:     recipientName,
		CourseName:        template.CourseName,
		CertificateNumber: certificateNumber,
		CertificateURL:    certificateUrl,
		VerifyURL:         fmt.Sprintf("%s/api/v1/verify/%s", rc.app.Config.App.BaseURL, certificateNumber),
	}

	if _, err := rc.app.Mailer.Send(mailer.CERTIFICATE_READY_TEMPLATE, recipientName, recipientEmail, vars); err != nil {
		rc.app.Logger.Errorf("Failed to send certificate ready mail: %v", err)
	}
}
