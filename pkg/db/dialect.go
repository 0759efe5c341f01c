package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialect resolves the gorm dialector for the configured backend. The
// default is the embedded pure-Go sqlite driver pointed at cfg.Path;
// server backends remain available for deployments that load the
// warehouse into a shared database instead of a local file.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = "copper.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// SQLiteDialector opens an sqlite database at an explicit path, used by
// the loader for temporary build targets.
func SQLiteDialector(path string) gorm.Dialector {
	return sqlite.Open(path)
}

// IsFileBacked reports whether the configured backend is a local sqlite
// file that supports build-then-rename replacement.
func (c Config) IsFileBacked() bool {
	switch c.Type {
	case "sqlite", "":
		return c.Path != "" && !IsMemoryDSN(c.Path)
	default:
		return false
	}
}

// IsMemoryDSN reports whether an sqlite DSN targets an in-memory
// database rather than a file.
func IsMemoryDSN(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}
