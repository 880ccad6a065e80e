package route

import (
	"github.com/SeakMengs/CertGate/internal/controller"
	"github.com/SeakMengs/CertGate/internal/middleware"
	"github.com/gin-gonic/gin"
)

func V1_Templates(r *gin.RouterGroup, tc *controller.TemplateController, acc *controller.AccessCodeController, middleware *middleware.Middleware) {
	v1 := r.Group("/v1/templates")
	v1.Use(middleware.AuthMiddleware)
	{
		v1.POST("", tc.CreateTemplate)
		v1.GET("", tc.GetTemplates)
		v1.GET("/:templateId", tc.GetTemplateById)
		v1.DELETE("/:templateId", tc.DeleteTemplate)
		v1.POST("/:templateId/fields", tc.ReplaceFields)
		v1.POST("/:templateId/issue", tc.IssueManual)
		v1.POST("/:templateId/access-codes", acc.CreateAccessCode)
		v1.GET("/:templateId/access-codes", acc.GetAccessCodes)
	}
}
