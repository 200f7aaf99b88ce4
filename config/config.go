// Package config reads the runtime configuration of the postscript server from the
// environment, optionally seeded from a .env file.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// LoadEnv loads variables from the given .env files into the process environment.
// Variables already set are left untouched. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("POSTSCRIPT_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("POSTSCRIPT_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("POSTSCRIPT_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/postscript"
	}
	return dbFolderPath
}

func GetDBPath() string {
	if p := os.Getenv("POSTSCRIPT_DB_PATH"); p != "" {
		return p
	}
	return filepath.Join(GetDBFolderPath(), GetName()+".db")
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("POSTSCRIPT_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetListen() string {
	return os.Getenv("POSTSCRIPT_LISTEN")
}

func GetPort() int {
	return getInt("POSTSCRIPT_PORT", 3000)
}

// GetBaseURL is the public origin used when building links sent by email.
func GetBaseURL() string {
	base := os.Getenv("POSTSCRIPT_BASE_URL")
	if base == "" {
		base = "http://localhost:" + strconv.Itoa(GetPort())
	}
	return strings.TrimRight(base, "/")
}

func GetSessionSecret() string {
	return os.Getenv("POSTSCRIPT_SESSION_SECRET")
}

// GetSessionMaxAge returns the session lifetime in minutes.
func GetSessionMaxAge() int {
	return getInt("POSTSCRIPT_SESSION_MAX_AGE", 1440)
}

// GetRedisAddr returns the external redis address. Empty means the embedded server is used.
func GetRedisAddr() string {
	return os.Getenv("POSTSCRIPT_REDIS_ADDR")
}

// GetAccessLogPath is the file receiving combined-format access logs. Empty disables them.
func GetAccessLogPath() string {
	return os.Getenv("POSTSCRIPT_ACCESS_LOG")
}

func GetUploadDir() string {
	dir := os.Getenv("POSTSCRIPT_UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return dir
}

// SMTPConfig holds outgoing mail settings. An empty Host disables mail delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func GetSMTPConfig() SMTPConfig {
	from := os.Getenv("POSTSCRIPT_SMTP_FROM")
	if from == "" {
		from = "no-reply@postscript.local"
	}
	return SMTPConfig{
		Host:     os.Getenv("POSTSCRIPT_SMTP_HOST"),
		Port:     getInt("POSTSCRIPT_SMTP_PORT", 587),
		Username: os.Getenv("POSTSCRIPT_SMTP_USER"),
		Password: os.Getenv("POSTSCRIPT_SMTP_PASS"),
		From:     from,
	}
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
