package controller

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/issuance"
	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/SeakMengs/CertGate/pkg/certgate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TemplateController struct {
	*baseController
}

const (
	ErrBackgroundFileRequired                = "background file is required"
	ErrBackgroundFileIsInvalidOrNotSupported = "background file is invalid or not supported, expect png or jpeg"
)

func (tc TemplateController) CreateTemplate(ctx *gin.Context) {
	type Request struct {
		CourseName string `json:"courseName" form:"courseName" binding:"required,strNotEmpty,min=1,max=100"`
	}
	var body Request

	user, err := tc.getAuthUser(ctx)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusUnauthorized, "Unauthorized", util.GenerateErrorMessages(err), nil)
		return
	}

	if err := ctx.ShouldBind(&body); err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	fileHeader, err := ctx.FormFile("backgroundFile")
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "No background file uploaded", util.GenerateErrorMessages(errors.New(ErrBackgroundFileRequired), "backgroundFile"), nil)
		return
	}

	// The background's native resolution becomes the template's render
	// resolution, so the dimensions must be known up front.
	src, err := fileHeader.Open()
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to open background file", util.GenerateErrorMessages(err), nil)
		return
	}
	imgConfig, _, err := image.DecodeConfig(src)
	src.Close()
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid background file", util.GenerateErrorMessages(errors.New(ErrBackgroundFileIsInvalidOrNotSupported), "backgroundFile"), nil)
		return
	}

	newTemplateId := uuid.NewString()

	info, err := util.UploadFileToS3ByFileHeader(fileHeader, &util.FileUploadOptions{
		DirectoryPath: util.GetTemplateDirectoryPath(newTemplateId),
		UniquePrefix:  true,
		Bucket:        tc.app.Config.Minio.BUCKET,
		S3:            tc.app.S3,
	})
	if err != nil {
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to upload file", util.GenerateErrorMessages(err), nil)
		return
	}

	tx := tc.app.Repository.DB.Begin()
	defer tx.Commit()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create template", util.GenerateErrorMessages(errors.New("failed to create template")), nil)
			return
		}
	}()

	file, err := tc.app.Repository.File.Create(ctx, tx, &model.File{
		FileName:       fileHeader.Filename,
		UniqueFileName: info.Key,
		BucketName:     info.Bucket,
		Size:           info.Size,
	})
	if err != nil {
		tx.Rollback()
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create template", util.GenerateErrorMessages(err), nil)
		return
	}

	template, err := tc.app.Repository.Template.Create(ctx, tx, &model.Template{
		BaseModel: model.BaseModel{
			ID: newTemplateId,
		},
		CourseName:       body.CourseName,
		BackgroundFileId: file.ID,
		Width:            imgConfig.Width,
		Height:           imgConfig.Height,
		Status:           constant.TemplateStatusActive,
		UserID:           user.ID,
	})
	if err != nil {
		tx.Rollback()
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to create template", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"template": template,
	})
}

// ReplaceFields swaps the template's whole field layout. A renderable layout
// needs at least one required recipient name field; that is checked at
// issuance time, not here, so instructors can save drafts.
func (tc TemplateController) ReplaceFields(ctx *gin.Context) {
	type FieldRequest struct {
		Type            certgate.FieldType `json:"type" binding:"required"`
		XPercent        float64            `json:"xPercent" binding:"gte=0,lte=100"`
		YPercent        float64            `json:"yPercent" binding:"gte=0,lte=100"`
		FontName        string             `json:"fontName"`
		FontSize        float64            `json:"fontSize" binding:"omitempty,gt=0"`
		FontWeight      string             `json:"fontWeight"`
		FontColor       string             `json:"fontColor"`
		TextAlign       string             `json:"textAlign" binding:"omitempty,oneof=left center right"`
		MaxWidthPercent *float64           `json:"maxWidthPercent" binding:"omitempty,gt=0,lte=100"`
		DisplayOrder    int                `json:"displayOrder"`
		IsRequired      bool               `json:"isRequired"`
		CustomKey       string             `json:"customKey"`
	}
	type Request struct {
		Fields []FieldRequest `json:"fields" binding:"required"`
	}
	var body Request

	templateId := ctx.Param("templateId")

	_, template, err := tc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	if err := ctx.ShouldBindJSON(&body); err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	fields := make([]model.TemplateField, 0, len(body.Fields))
	for i, f := range body.Fields {
		if !f.Type.Valid() {
			util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid field type", util.GenerateErrorMessages(fmt.Errorf("field %d has unknown type %q", i, f.Type), "fields"), nil)
			return
		}
		if f.Type == certgate.FieldTypeCustom && f.CustomKey == "" {
			util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid field", util.GenerateErrorMessages(fmt.Errorf("custom field %d requires a customKey", i), "fields"), nil)
			return
		}

		fields = append(fields, model.TemplateField{
			Type:            f.Type,
			XPercent:        f.XPercent,
			YPercent:        f.YPercent,
			FontName:        f.FontName,
			FontSize:        f.FontSize,
			FontWeight:      f.FontWeight,
			FontColor:       f.FontColor,
			TextAlign:       f.TextAlign,
			MaxWidthPercent: f.MaxWidthPercent,
			DisplayOrder:    f.DisplayOrder,
			IsRequired:      f.IsRequired,
			CustomKey:       f.CustomKey,
		})
	}

	saved, err := tc.app.Repository.TemplateField.Replace(ctx, nil, templateId, fields)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to save fields", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"fields": saved,
	})
}

func (tc TemplateController) GetTemplates(ctx *gin.Context) {
	user, err := tc.getAuthUser(ctx)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusUnauthorized, "Unauthorized", util.GenerateErrorMessages(err), nil)
		return
	}

	page, pageSize := parsePagination(ctx)

	templates, total, err := tc.app.Repository.Template.GetByUserId(ctx, nil, user.ID, page, pageSize)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get templates", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"templates": templates,
		"total":     total,
		"totalPage": util.CalculateTotalPage(total, pageSize),
		"page":      page,
		"pageSize":  pageSize,
	})
}

func (tc TemplateController) GetTemplateById(ctx *gin.Context) {
	templateId := ctx.Param("templateId")

	_, template, err := tc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"template": template,
	})
}

// DeleteTemplate soft-deletes a template: it disappears from every read path,
// so its access codes stop validating, while already issued certificates stay
// verifiable.
func (tc TemplateController) DeleteTemplate(ctx *gin.Context) {
	templateId := ctx.Param("templateId")

	_, template, err := tc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	if err := tc.app.Repository.Template.UpdateStatus(ctx, nil, templateId, constant.TemplateStatusDeleted); err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to delete template", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"templateId": templateId,
	})
}

// IssueManual renders a certificate directly for a named recipient, skipping
// the access code redemption but sharing the rest of the pipeline.
func (tc TemplateController) IssueManual(ctx *gin.Context) {
	type Request struct {
		RecipientName string            `json:"recipientName" form:"recipientName" binding:"required,strNotEmpty,min=1,max=100"`
		CustomValues  map[string]string `json:"customValues" form:"customValues"`
		EmbedQr       bool              `json:"embedQr" form:"embedQr"`
	}
	var body Request

	templateId := ctx.Param("templateId")

	_, template, err := tc.getOwnedTemplate(ctx, templateId)
	if err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to get template", util.GenerateErrorMessages(err), nil)
		return
	}
	if template == nil {
		util.ResponseFailed(ctx, http.StatusNotFound, "Template not found", util.GenerateErrorMessages(errors.New("template not found"), "templateId"), nil)
		return
	}

	if err := ctx.ShouldBind(&body); err != nil {
		tc.app.Logger.Error(err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	result, err := tc.app.Coordinator.IssueManual(ctx, templateId, body.RecipientName, body.CustomValues, body.EmbedQr)
	if err != nil {
		status := issuance.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			tc.app.Logger.Errorf("Manual issuance failed: %v", err)
		}
		util.ResponseFailed(ctx, status, issuance.UserMessage(err), util.GenerateErrorMessages(err), nil)
		return
	}

	certificateUrl, err := result.File.ToPresignedUrl(ctx, tc.app.S3)
	if err != nil {
		tc.app.Logger.Errorf("Failed to presign certificate url: %v", err)
		certificateUrl = ""
	}

	util.ResponseSuccess(ctx, gin.H{
		"certificate":    result.Certificate,
		"certificateUrl": certificateUrl,
	})
}

func parsePagination(ctx *gin.Context) (uint, uint) {
	page, err := strconv.ParseUint(ctx.DefaultQuery("page", "1"), 10, 32)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseUint(ctx.DefaultQuery("pageSize", strconv.Itoa(int(constant.DefaultPageSize))), 10, 32)
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = uint64(constant.DefaultPageSize)
	}

	return uint(page), uint(pageSize)
}
