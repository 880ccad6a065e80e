package route

import (
	"github.com/SeakMengs/CertGate/internal/controller"
	"github.com/SeakMengs/CertGate/internal/middleware"
	"github.com/gin-gonic/gin"
)

func V1_AccessCodes(r *gin.RouterGroup, acc *controller.AccessCodeController, middleware *middleware.Middleware) {
	v1 := r.Group("/v1/access-codes")
	v1.Use(middleware.AuthMiddleware)
	{
		v1.PATCH("/:accessCodeId/deactivate", acc.DeactivateAccessCode)
	}
}
