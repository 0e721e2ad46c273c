package mysql

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"chronos/pkg/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Datastore wraps GORM DB and provides transaction support
type Datastore struct {
	db *gorm.DB
}

// DSN builds the MySQL connection string from configuration.
func DSN(cfg config.MySQLConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database)
}

// NewDatastore creates a new MySQL datastore
func NewDatastore(dsn string) (*Datastore, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                 newLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}

	// audit writes are small and infrequent
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return &Datastore{db: db}, nil
}

// Close closes the database connection
func (ds *Datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the main DB bound to ctx.
func (ds *Datastore) DB(ctx context.Context) *gorm.DB {
	return ds.db.WithContext(ctx)
}
