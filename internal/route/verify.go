package route

import (
	"github.com/SeakMengs/CertGate/internal/controller"
	"github.com/SeakMengs/CertGate/internal/middleware"
	"github.com/gin-gonic/gin"
)

func V1_Verify(r *gin.RouterGroup, vc *controller.VerifyController, middleware *middleware.Middleware) {
	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware)
	{
		v1.GET("/verify/:number", vc.Verify)
		v1.GET("/verify/:number/qr.svg", vc.VerifyQrSvg)
		v1.GET("/certificates/:number/pdf", vc.DownloadPdf)
	}
}
