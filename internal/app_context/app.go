package appcontext

import (
	"github.com/SeakMengs/CertGate/internal/auth"
	"github.com/SeakMengs/CertGate/internal/config"
	"github.com/SeakMengs/CertGate/internal/issuance"
	"github.com/SeakMengs/CertGate/internal/mailer"
	"github.com/SeakMengs/CertGate/internal/repository"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Application contains core dependencies for the app.
type Application struct {
	// Config holds application settings provided from .env file.
	Config *config.Config

	// Logger lol....
	Logger *zap.SugaredLogger

	// Repository provides access to data storage operations.
	Repository *repository.Repository

	// Mailer handles email-sending functions.
	Mailer mailer.Client

	// JWTService verifies bearer tokens minted by the identity provider.
	JWTService auth.JWTInterface

	S3 *minio.Client

	// Coordinator owns the certificate issuance pipeline.
	Coordinator *issuance.Coordinator
}
