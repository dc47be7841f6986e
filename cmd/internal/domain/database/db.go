package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/config"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)
}

// Init opens the configured database and migrates the schema.
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.Path)
	case config.DriverPostgres:
		db, err = OpenPostgres(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database at path (":memory:" works too). The pool
// is kept to a single connection so in-memory databases stay shared and
// writes never contend.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                                   getLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return db, nil
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is required for postgres")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   getLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates the tables and the full-text index for the dialect.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entity.User{},
		&entity.Note{},
		&entity.NoteTag{},
		&entity.NoteLike{},
		&entity.UserUpload{},
		&entity.UserDownload{},
	)
	if err != nil {
		return err
	}

	for _, stmt := range searchIndexDDL(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create search index: %w", err)
		}
	}
	return nil
}

// On SQLite the FTS row shares its rowid with the note id.
func searchIndexDDL(dialect string) []string {
	switch dialect {
	case "postgres":
		return []string{
			`CREATE INDEX IF NOT EXISTS idx_notes_search ON notes USING GIN (` +
				`to_tsvector('english', title || ' ' || description || ' ' || content))`,
			`CREATE INDEX IF NOT EXISTS idx_note_tags_search ON note_tags USING GIN (to_tsvector('english', tag))`,
		}
	default:
		return []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(` +
				`title, description, content, tags, tokenize = 'porter unicode61')`,
		}
	}
}
