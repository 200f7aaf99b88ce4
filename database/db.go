// Package database opens the gorm connection shared by the services and migrates the schema.
package database

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/database/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db       *gorm.DB
	dbConfig *config.DatabaseConfig
)

func initModels() error {
	models := []any{
		&model.User{},
		&model.Post{},
		&model.PostTag{},
		&model.PostLike{},
		&model.Comment{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// InitDB opens (creating if needed) the sqlite database at dbPath and migrates it.
func InitDB(dbPath string) error {
	return InitDBWithConfig(config.NewSQLiteConfig(dbPath))
}

// InitDBWithConfig opens the configured database (sqlite or postgres) and migrates it.
func InitDBWithConfig(cfg *config.DatabaseConfig) error {
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectoryExists(); err != nil {
		return err
	}
	if cfg.IsSQLite() {
		if err := checkSQLiteFile(cfg.SQLite.Path); err != nil {
			return err
		}
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	var dialector gorm.Dialector
	if cfg.IsPostgreSQL() {
		dialector = postgres.Open(cfg.GetDSN())
	} else {
		dialector = sqlite.Open(cfg.GetDSN())
	}

	var err error
	db, err = gorm.Open(dialector, c)
	if err != nil {
		return err
	}
	dbConfig = cfg

	if cfg.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		// One writer keeps sqlite from returning SQLITE_BUSY under concurrent toggles.
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000;",
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA foreign_keys = ON;",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				return err
			}
		}
	}

	return initModels()
}

func CloseDB() error {
	if db != nil {
		if dbConfig != nil && dbConfig.IsSQLite() {
			if err := Checkpoint(); err != nil {
				log.Printf("error executing checkpoint: %v", err)
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err comes from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// checkSQLiteFile refuses to open an existing non-empty file that is not sqlite.
func checkSQLiteFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if st, err := f.Stat(); err != nil || st.Size() == 0 {
		return err
	}
	ok, err := IsSQLiteDB(f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a sqlite database", path)
	}
	return nil
}

func IsSQLiteDB(file io.ReaderAt) (bool, error) {
	signature := []byte("SQLite format 3\x00")
	buf := make([]byte, len(signature))
	_, err := file.ReadAt(buf, 0)
	if err != nil {
		return false, err
	}
	return bytes.Equal(buf, signature), nil
}

func Checkpoint() error {
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
