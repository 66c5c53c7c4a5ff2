package database

import (
	"context"
	"database/sql"
	"time"

	"book_market/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/sirupsen/logrus"
)

var DB *sql.DB

// Connect opens the shared pool and exits the process when PostgreSQL is
// unreachable.
func Connect(log logrus.FieldLogger) {
	db, err := sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping postgres at %s:%s: %v", config.AppConfig.DBHost, config.AppConfig.DBPort, err)
	}

	DB = db
	log.WithField("db", config.AppConfig.DBName).Info("connected to postgres")
}

func Close(log logrus.FieldLogger) {
	if DB == nil {
		return
	}
	if err := DB.Close(); err != nil {
		log.WithError(err).Warn("closing postgres pool")
		return
	}
	log.Info("postgres pool closed")
}
