package main

import (
	appcontext "github.com/SeakMengs/CertGate/internal/app_context"
	"github.com/SeakMengs/CertGate/internal/auth"
	"github.com/SeakMengs/CertGate/internal/config"
	"github.com/SeakMengs/CertGate/internal/controller"
	"github.com/SeakMengs/CertGate/internal/database"
	"github.com/SeakMengs/CertGate/internal/env"
	filestorage "github.com/SeakMengs/CertGate/internal/file_storage"
	"github.com/SeakMengs/CertGate/internal/issuance"
	"github.com/SeakMengs/CertGate/internal/mailer"
	"github.com/SeakMengs/CertGate/internal/middleware"
	ratelimiter "github.com/SeakMengs/CertGate/internal/rate_limiter"
	"github.com/SeakMengs/CertGate/internal/repository"
	"github.com/SeakMengs/CertGate/internal/route"
	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/SeakMengs/CertGate/pkg/certgate"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// this function run before main
func init() {
	env.LoadEnv(".env")
}

func main() {
	cfg := config.GetConfig()

	logger := util.NewLogger(cfg.ENV)
	logger.Debugf("Configuration: %+v \n", cfg)

	db, err := database.ConnectReturnGormDB(cfg.DB)
	if err != nil {
		logger.Panic(err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		logger.Panic(err)
	}
	defer sqlDb.Close()
	logger.Info("Database connected \n")

	s3, err := filestorage.NewMinioClient(&cfg.Minio)
	if err != nil {
		logger.Error("Error connecting to minio")
		logger.Panic(err)
	}

	// Custom validation
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("strNotEmpty", util.StrNotEmpty); err != nil {
			return
		}
	}

	rateLimiter := ratelimiter.NewRateLimiter(cfg.RateLimiter, logger)
	mail := mailer.NewSendgrid(cfg.Mail.SEND_GRID.API_KEY, cfg.Mail.FROM_EMAIL, cfg.IsProduction(), logger)
	jwtService := auth.NewJwt(cfg.Auth, logger)
	repo := repository.NewRepository(db, logger, jwtService, s3)

	compositor, err := certgate.NewCompositor(certgate.Config{
		FontMetadataPath: cfg.App.FontMetadataPath,
		DefaultFontName:  cfg.App.DefaultFontName,
		VerifySecret:     cfg.App.VerifySecret,
	})
	if err != nil {
		logger.Error("Error loading fonts, run cmd/scan_font first")
		logger.Panic(err)
	}

	// Watermark every render outside production so staging artifacts are
	// never mistaken for real certificates
	watermark := ""
	if !cfg.IsProduction() {
		watermark = "SAMPLE"
	}

	coordinator := issuance.NewCoordinator(issuance.CoordinatorConfig{
		RenderTimeout: cfg.App.RenderTimeout,
		Watermark:     watermark,
		VerifySecret:  cfg.App.VerifySecret,
	}, repository.NewIssuanceStore(repo), compositor,
		filestorage.NewMinioArtifactStore(s3, cfg.Minio.BUCKET, repo, logger), logger)

	app := appcontext.Application{
		Config:      &cfg,
		Repository:  repo,
		Logger:      logger,
		Mailer:      mail,
		JWTService:  jwtService,
		S3:          s3,
		Coordinator: coordinator,
	}

	_middleware := middleware.NewMiddleware(&app, rateLimiter)

	if cfg.IsProduction() {
		logger.Info("Running in production mode")
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// docs: https://github.com/gin-contrib/cors?tab=readme-ov-file#using-defaultconfig-as-start-point
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Accept"}
	r.Use(cors.New(corsConfig))

	_controller := controller.NewController(&app)

	r.GET("/", _controller.Index.Index)

	rApi := r.Group("/api")

	route.V1_Redeem(rApi, _controller.Redeem, _middleware)
	route.V1_Verify(rApi, _controller.Verify, _middleware)
	route.V1_Templates(rApi, _controller.Template, _controller.AccessCode, _middleware)
	route.V1_AccessCodes(rApi, _controller.AccessCode, _middleware)

	if err := r.Run("0.0.0.0:" + app.Config.Port); err != nil {
		logger.Panicf("Error running server: %v \n", err)
	}
}
