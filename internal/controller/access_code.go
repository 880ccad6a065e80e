package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SeakMengs/CertGate/internal/issuance"
	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AccessCodeController struct {
	*baseController
}

// CreateAccessCode mints a new code for a template. The full secret is
// returned in this response only; the model excludes it from json everywhere
// else.
func (acc AccessCodeController) CreateAccessCode(ctx *gin.Context) {
	type Request struct {
		ExpiresAt *time.Time `json:"expiresAt" form:"expiresAt"`
		MaxUses   *int       `json:"maxUses" form:"maxUses" binding:"omitempty,gte=1"`
	}
	var body Request

	templateId := ctx.Param("templateId")

	user, template, err := acc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	if err := ctx.ShouldBind(&body); err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	if body.ExpiresAt != nil && body.ExpiresAt.Before(time.Now()) {
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(errors.New("expiresAt must be in the future"), "expiresAt"), nil)
		return
	}

	// Both identifiers are collision-checked with the same attempt budget: the
	// link against every code, the secret against codes of the same template.
	uniqueLink, err := issuance.GenerateUniqueString(ctx, util.GenerateUniqueLink, func(c context.Context, link string) (bool, error) {
		return acc.app.Repository.AccessCode.UniqueLinkExists(c, nil, link)
	})
	if err != nil {
		acc.app.Logger.Errorf("Failed to generate unique link: %v", err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create access code", util.GenerateErrorMessages(err), nil)
		return
	}

	secret, err := issuance.GenerateUniqueString(ctx, util.GenerateAccessCodeSecret, func(c context.Context, code string) (bool, error) {
		return acc.app.Repository.AccessCode.SecretExistsForTemplate(c, nil, templateId, code)
	})
	if err != nil {
		acc.app.Logger.Errorf("Failed to generate access code secret: %v", err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create access code", util.GenerateErrorMessages(err), nil)
		return
	}

	accessCode, err := acc.app.Repository.AccessCode.Create(ctx, nil, &model.AccessCode{
		TemplateID: templateId,
		Code:       secret,
		UniqueLink: uniqueLink,
		ExpiresAt:  body.ExpiresAt,
		MaxUses:    body.MaxUses,
		IsActive:   true,
		CreatedBy:  user.ID,
	})
	if err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create access code", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"accessCode": accessCode,
		// Only time the secret is ever returned
		"secretCode": secret,
	})
}

func (acc AccessCodeController) GetAccessCodes(ctx *gin.Context) {
	templateId := ctx.Param("templateId")

	_, template, err := acc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	page, pageSize := parsePagination(ctx)

	accessCodes, total, err := acc.app.Repository.AccessCode.GetByTemplateId(ctx, nil, templateId, page, pageSize)
	if err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get access codes", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"accessCodes": accessCodes,
		"total":       total,
		"totalPage":   util.CalculateTotalPage(total, pageSize),
		"page":        page,
		"pageSize":    pageSize,
	})
}

// DeactivateAccessCode permanently disables a code. Deactivation wins over
// every other state and is not reversible through the api.
func (acc AccessCodeController) DeactivateAccessCode(ctx *gin.Context) {
	accessCodeId := ctx.Param("accessCodeId")

	user, err := acc.getAuthUser(ctx)
	if err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusUnauthorized, "Unauthorized", util.GenerateErrorMessages(err), nil)
		return
	}

	accessCode, err := acc.app.Repository.AccessCode.GetById(ctx, nil, accessCodeId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.ResponseFailed(ctx, http.StatusNotFound, "Access code not found", util.GenerateErrorMessages(errors.New("access code not found"), "accessCodeId"), nil)
			return
		}
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get access code", util.GenerateErrorMessages(err), nil)
		return
	}

	if accessCode.Template.UserID != user.ID {
		util.ResponseFailed(ctx, http.StatusNotFound, "Access code not found", util.GenerateErrorMessages(errors.New("access code not found"), "accessCodeId"), nil)
		return
	}

	if err := acc.app.Repository.AccessCode.Deactivate(ctx, nil, accessCodeId); err != nil {
		acc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to deactivate access code", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"accessCodeId": accessCodeId,
		"isActive":     false,
	})
}
