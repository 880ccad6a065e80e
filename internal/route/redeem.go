package route

import (
	"github.com/SeakMengs/CertGate/internal/controller"
	"github.com/SeakMengs/CertGate/internal/middleware"
	"github.com/gin-gonic/gin"
)

func V1_Redeem(r *gin.RouterGroup, rc *controller.RedeemController, middleware *middleware.Middleware) {
	v1 := r.Group("/v1/redeem")
	v1.Use(middleware.RateLimitMiddleware)
	{
		v1.POST("/validate", rc.Validate)
		v1.POST("/generate", rc.Generate)
	}
}
