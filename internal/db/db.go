package db

import (
	"context"
	"time"

	"commentservice/internal/config"
	"commentservice/internal/logger"
	"commentservice/internal/models"
	"commentservice/internal/utils"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to DATABASE_URL, retrying while the server comes up.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	gormCfg := &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(logger.For(ctx), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var db *gorm.DB
	retry := utils.Retry{Base: cfg.DBRetryBase, Cap: 5 * time.Second, Tries: cfg.DBMaxRetries}
	err := utils.RetryFunc(ctx, func(ctx context.Context) error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			logger.For(ctx).WithError(err).Warn("Database not reachable yet")
		}
		return err
	}, func(error) bool { return true }, retry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.For(ctx).Info("Database connection established")
	return db, nil
}

// Migrate creates or updates the comment, reaction and count tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&models.Comment{},
		&models.Reaction{},
		&models.ReactionCount{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}
	logger.For(ctx).Info("Database migration completed")
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
