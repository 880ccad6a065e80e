package controller

import (
	"encoding/json"
	"errors"
	"fmt"

	appcontext "github.com/SeakMengs/CertGate/internal/app_context"
	"github.com/SeakMengs/CertGate/internal/auth"
	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type baseController struct {
	app *appcontext.Application
}

type Controller struct {
	Index      *IndexController
	Redeem     *RedeemController
	Template   *TemplateController
	AccessCode *AccessCodeController
	Verify     *VerifyController
}

func newBaseController(app *appcontext.Application) *baseController {
	return &baseController{app: app}
}

func NewController(app *appcontext.Application) *Controller {
	bc := newBaseController(app)

	return &Controller{
		Index:      &IndexController{baseController: bc},
		Redeem:     &RedeemController{baseController: bc},
		Template:   &TemplateController{baseController: bc},
		AccessCode: &AccessCodeController{baseController: bc},
		Verify:     &VerifyController{baseController: bc},
	}
}

func (b *baseController) getAuthUser(ctx *gin.Context) (*auth.JWTPayload, error) {
	user, exists := ctx.Get("user")
	if !exists {
		return nil, errors.New("user not found in context")
	}

	jsonUser, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	var authUser *auth.JWTPayload
	err = json.Unmarshal(jsonUser, &authUser)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return authUser, nil
}

// getOwnedTemplate loads a template and checks that the authenticated user
// owns it. Returns (user, nil, nil) with a nil template when not found or not
// owned; the caller decides the response.
func (b *baseController) getOwnedTemplate(ctx *gin.Context, templateId string) (*auth.JWTPayload, *model.Template, error) {
	user, err := b.getAuthUser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get auth user: %w", err)
	}

	template, err := b.app.Repository.Template.GetById(ctx, nil, templateId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, nil, nil
		}
		return user, nil, err
	}

	if template.UserID != user.ID {
		return user, nil, nil
	}

	return user, template, nil
}
