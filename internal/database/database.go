package database

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	var dialector gorm.Dialector
	if cfg.IsSQLite() {
		dialector = sqlite.Open(cfg.DSN())
	} else {
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	if cfg.IsSQLite() {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Info("connected to database", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Organization{},
		&models.Role{},
		&models.User{},
		&models.TodoState{},
		&models.Project{},
		&models.Task{},
	}
}

// Partial indexes gorm tags cannot express. Both postgres and sqlite accept
// this syntax.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_todo_states_one_default
		ON todo_states (organization_id) WHERE is_default AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_todo_states_org_name
		ON todo_states (organization_id, name) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_org_name
		ON projects (organization_id, LOWER(name)) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_org_parent
		ON tasks (organization_id, parent_task_id)`,
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "closing database: %v\n", err)
		return
	}
	_ = sqlDB.Close()
}
