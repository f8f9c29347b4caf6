package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"weather-server/confs"
	"weather-server/entities"
)

// Connect opens the configured database, sizes the pool and migrates the
// reading tables and the users table.
func Connect(cfg confs.Config, log *slog.Logger) (Database, error) {
	dialector, err := dialectorFor(cfg, log)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      gormLogger(cfg, log),
		PrepareStmt: cfg.DBDriver == "postgres",
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}
	log.Info("database connection established", "driver", cfg.DBDriver)

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database migrations completed")

	return &GormDatabase{DB: db}, nil
}

func dialectorFor(cfg confs.Config, log *slog.Logger) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "sqlite":
		log.Info("using sqlite database", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath), nil
	case "postgres":
		dsn, err := PostgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// PostgresDSN prefers DB_URL (forcing sslmode=require when unset) and
// otherwise builds a key/value DSN from the individual DB_* settings.
func PostgresDSN(cfg confs.Config) (string, error) {
	if cfg.DBURL != "" {
		dsn := cfg.DBURL
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn, nil
	}

	if cfg.DBHost == "" || cfg.DBPort == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return "", fmt.Errorf("missing required database configuration: DB_URL or (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	sslMode := "require"
	if cfg.DBHost == "localhost" || cfg.DBHost == "127.0.0.1" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslMode), nil
}

// Migrate creates one table per kind and tier plus users. Index names are
// table-qualified because the row structs are shared between tables.
func Migrate(db *gorm.DB) error {
	for _, tier := range entities.Tiers() {
		for _, kind := range entities.Kinds() {
			table, err := entities.TableName(kind, tier)
			if err != nil {
				return err
			}
			if err := db.Table(table).AutoMigrate(entities.NewRecord(tier)); err != nil {
				return fmt.Errorf("failed to migrate %s: %w", table, err)
			}
			if err := createIndexes(db, table, tier); err != nil {
				return err
			}
		}
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	return nil
}

func createIndexes(db *gorm.DB, table string, tier entities.Tier) error {
	stmts := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s ("timestamp")`, table, table),
	}
	if tier == entities.Protected {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_location ON %s (country, province, city, "timestamp")`, table, table))
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to index %s: %w", table, err)
		}
	}
	return nil
}

func gormLogger(cfg confs.Config, log *slog.Logger) logger.Interface {
	level := logger.Warn
	switch {
	case cfg.LogLevel <= slog.LevelDebug:
		level = logger.Info
	case cfg.LogLevel >= slog.LevelError:
		level = logger.Error
	}
	return logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}
