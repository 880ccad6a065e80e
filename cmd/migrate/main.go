package main

import (
	"github.com/SeakMengs/CertGate/internal/config"
	"github.com/SeakMengs/CertGate/internal/database"
	"github.com/SeakMengs/CertGate/internal/env"
	"github.com/SeakMengs/CertGate/internal/model"
	"go.uber.org/zap"
)

func init() {
	env.LoadEnv(".env")
}

func main() {
	logger := zap.Must(zap.NewDevelopment()).Sugar()
	defer logger.Sync()
	cfg := config.GetConfig()

	logger.Infof("Database configuration: %+v", cfg.DB)

	db, err := database.ConnectReturnGormDB(cfg.DB)
	if err != nil {
		logger.Panic(err)
	}

	migrateErr := db.AutoMigrate(
		&model.File{},
		&model.Template{},
		&model.TemplateField{},
		&model.AccessCode{},
		&model.IssuedCertificate{},
	)
	if migrateErr != nil {
		logger.Panic(migrateErr)
	}

	logger.Info("Migration complete")
}
