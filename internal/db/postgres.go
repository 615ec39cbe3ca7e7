package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.GetEnv("POSTGRES_HOST", "localhost", log)
	port := envutil.GetEnv("POSTGRES_PORT", "5432", log)
	user := envutil.GetEnv("POSTGRES_USER", "postgres", log)
	password := envutil.GetEnv("POSTGRES_PASSWORD", "", log)
	name := envutil.GetEnv("POSTGRES_NAME", "graphweave", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	return s.db.AutoMigrate(
		&types.Ontology{},
		&types.Concept{},
		&types.ConceptInstance{},
		&types.Source{},
		&types.Relationship{},
		&types.VocabularyType{},
	)
}
