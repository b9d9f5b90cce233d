package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	ApplicationName    string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Configured reports whether enough settings are present to open a connection.
func (c DatabaseConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Name != ""
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Configured reports whether the object store can be used.
func (c MinIOConfig) Configured() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// TemplatesConfig locates the three DOCX templates. With Source "storage" the
// names are object keys under Prefix; otherwise they are files under Dir.
type TemplatesConfig struct {
	Source    string
	Dir       string
	Prefix    string
	Quotation string
	Supply    string
	Works     string
}

// CatalogConfig points at an optional spreadsheet price list. When Path and
// StorageKey are both empty the static catalog of the profile is used.
type CatalogConfig struct {
	Path       string
	StorageKey string
	Sheet      string
	TTLSec     int
}

// TTL returns the refresh interval of the cached catalog.
func (c CatalogConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// LedgerConfig is the spreadsheet every generation is appended to. Empty Path disables it.
type LedgerConfig struct {
	Path  string
	Sheet string
}

// TelegramConfig enables document delivery to one chat when both values are set.
type TelegramConfig struct {
	Token      string
	ChatID     int64
	TimeoutSec int
}

// Enabled reports whether credentials are present.
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

// ConverterConfig controls the optional DOCX to PDF conversion.
type ConverterConfig struct {
	Enabled    bool
	Binary     string
	TimeoutSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Timezone    string
	ProfilePath string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Templates   TemplatesConfig
	Catalog     CatalogConfig
	Ledger      LedgerConfig
	Telegram    TelegramConfig
	Converter   ConverterConfig
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"), // default only for non-sensitive value
		Timezone:    getEnv("APP_TIMEZONE", "Europe/Kyiv"),
		ProfilePath: getEnv("PROFILE_PATH", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "quotegen"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Templates: TemplatesConfig{
			Source:    getEnv("TEMPLATES_SOURCE", "fs"),
			Dir:       getEnv("TEMPLATES_DIR", "templates"),
			Prefix:    getEnv("TEMPLATES_PREFIX", "templates/"),
			Quotation: getEnv("TEMPLATE_QUOTATION", "template.docx"),
			Supply:    getEnv("TEMPLATE_SUPPLY", "template_postavka.docx"),
			Works:     getEnv("TEMPLATE_WORKS", "template_roboti.docx"),
		},
		Catalog: CatalogConfig{
			Path:       getEnv("CATALOG_XLSX_PATH", ""),
			StorageKey: getEnv("CATALOG_XLSX_KEY", ""),
			Sheet:      getEnv("CATALOG_SHEET", ""),
			TTLSec:     getEnvInt("CATALOG_TTL_SEC", 300),
		},
		Ledger: LedgerConfig{
			Path:  getEnv("LEDGER_XLSX_PATH", ""),
			Sheet: getEnv("LEDGER_SHEET", "Log"),
		},
		Telegram: TelegramConfig{
			Token:      getEnv("TELEGRAM_TOKEN", ""),
			ChatID:     getEnvInt64("TELEGRAM_CHAT_ID", 0),
			TimeoutSec: getEnvInt("TELEGRAM_TIMEOUT_SEC", 15),
		},
		Converter: ConverterConfig{
			Enabled:    getEnvBool("CONVERTER_ENABLED", false),
			Binary:     getEnv("CONVERTER_BINARY", "soffice"),
			TimeoutSec: getEnvInt("CONVERTER_TIMEOUT_SEC", 60),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
