package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Blob     BlobConfig     `yaml:"blob"`
	Database DatabaseConfig `yaml:"database"`
	OCR      OCRConfig      `yaml:"ocr"`
	Extract  ExtractConfig  `yaml:"extract"`
	Budgets  BudgetsConfig  `yaml:"budgets"`
	Batch    BatchConfig    `yaml:"batch"`
	LLM      LLMConfig      `yaml:"llm"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Name            string        `yaml:"name"`
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"` // health only; empty disables
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BlobConfig selects and parameterizes the blob store backend
type BlobConfig struct {
	Backend    string `yaml:"backend"` // memory, filesystem, s3, postgres, sqlite
	BaseDir    string `yaml:"base_dir"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	Prefix     string `yaml:"prefix"`
	Endpoint   string `yaml:"endpoint"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`
	Pdftoppm    string `yaml:"pdftoppm"`
	Lang        string `yaml:"lang"`
	DPI         int    `yaml:"dpi"`
	TessdataDir string `yaml:"tessdata_dir"`
	PSM         int    `yaml:"psm"`
	OEM         int    `yaml:"oem"`
	TempDir     string `yaml:"temp_dir"`
}

type ExtractConfig struct {
	MaxPages int `yaml:"max_pages"`
	MaxChars int `yaml:"max_chars"`
}

// BudgetsConfig caps each channel before aggregation and the unified text
// after it, in characters. Zero disables a cap.
type BudgetsConfig struct {
	Doctor     int `yaml:"doctor"`
	Document   int `yaml:"document"`
	Transcript int `yaml:"transcript"`
	Unified    int `yaml:"unified"`
}

type BatchConfig struct {
	Workers     int           `yaml:"workers"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	TranscribeModel string        `yaml:"transcribe_model"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "clinical-notes",
			HTTPAddr:        ":8000",
			GRPCAddr:        ":8081",
			MaxUploadBytes:  50 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Blob: BlobConfig{
			Backend: "filesystem",
			BaseDir: "./uploads",
		},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		OCR: OCRConfig{
			Tesseract: "tesseract",
			Pdftoppm:  "pdftoppm",
			Lang:      "spa+eng",
			DPI:       200,
		},
		Extract: ExtractConfig{
			MaxPages: 5,
			MaxChars: 45000,
		},
		Budgets: BudgetsConfig{
			Doctor:     20000,
			Document:   20000,
			Transcript: 30000,
			Unified:    45000,
		},
		Batch: BatchConfig{
			Workers:     4,
			ItemTimeout: 3 * time.Minute,
		},
		LLM: LLMConfig{
			Model:           "gpt-4.1-mini",
			TranscribeModel: "gpt-4o-mini-transcribe",
			Temperature:     0.2,
			Timeout:         60 * time.Second,
			MaxRetries:      2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds configuration from defaults, the YAML file named by
// CONFIG_FILE (if any), then environment variables, in that order.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFile is LoadConfig with an explicit file path; empty skips the file.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "failed to parse config file", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Name = getEnv("SERVICE_NAME", c.Server.Name)
	c.Server.HTTPAddr = normalizeAddr(getEnv("HTTP_ADDR", c.Server.HTTPAddr))
	c.Server.GRPCAddr = normalizeAddr(getEnv("GRPC_ADDR", c.Server.GRPCAddr))
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Blob.Backend = strings.ToLower(getEnv("BLOB_BACKEND", c.Blob.Backend))
	c.Blob.BaseDir = getEnv("BLOB_BASE_DIR", c.Blob.BaseDir)
	c.Blob.Bucket = getEnv("BLOB_S3_BUCKET", c.Blob.Bucket)
	c.Blob.Region = getEnv("BLOB_S3_REGION", c.Blob.Region)
	c.Blob.Prefix = getEnv("BLOB_S3_PREFIX", c.Blob.Prefix)
	c.Blob.Endpoint = getEnv("BLOB_S3_ENDPOINT", c.Blob.Endpoint)
	c.Blob.SQLitePath = getEnv("BLOB_SQLITE_PATH", c.Blob.SQLitePath)

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.TempDir = getEnv("OCR_TEMP_DIR", c.OCR.TempDir)

	c.Extract.MaxPages = getEnvAsInt("PDF_MAX_PAGES", c.Extract.MaxPages)
	c.Extract.MaxChars = getEnvAsInt("PDF_MAX_CHARS", c.Extract.MaxChars)

	c.Budgets.Doctor = getEnvAsInt("BUDGET_DOCTOR_CHARS", c.Budgets.Doctor)
	c.Budgets.Document = getEnvAsInt("BUDGET_DOCUMENT_CHARS", c.Budgets.Document)
	c.Budgets.Transcript = getEnvAsInt("BUDGET_TRANSCRIPT_CHARS", c.Budgets.Transcript)
	c.Budgets.Unified = getEnvAsInt("BUDGET_UNIFIED_CHARS", c.Budgets.Unified)

	c.Batch.Workers = getEnvAsInt("BATCH_WORKERS", c.Batch.Workers)
	c.Batch.ItemTimeout = getEnvAsDuration("BATCH_ITEM_TIMEOUT", c.Batch.ItemTimeout)

	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.TranscribeModel = getEnv("OPENAI_TRANSCRIBE_MODEL", c.LLM.TranscribeModel)
	c.LLM.Temperature = getEnvAsFloat64("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvAsInt("OPENAI_MAX_RETRIES", c.LLM.MaxRetries)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Log.Format))
}

// BlobParams flattens the backend settings into the provider registry's
// parameter map.
func (c *Config) BlobParams() map[string]string {
	switch c.Blob.Backend {
	case "filesystem":
		return map[string]string{"base_dir": c.Blob.BaseDir}
	case "s3":
		return map[string]string{
			"bucket":   c.Blob.Bucket,
			"region":   c.Blob.Region,
			"prefix":   c.Blob.Prefix,
			"endpoint": c.Blob.Endpoint,
		}
	case "sqlite":
		return map[string]string{"path": c.Blob.SQLitePath}
	case "postgres":
		d := c.Database
		return map[string]string{
			"dsn":                d.DSN,
			"max_conns":          strconv.Itoa(int(d.MaxConns)),
			"min_conns":          strconv.Itoa(int(d.MinConns)),
			"max_conn_lifetime":  d.MaxConnLifetime.String(),
			"max_conn_idle_time": d.MaxConnIdleTime.String(),
			"dial_timeout":       d.DialTimeout.String(),
			"statement_timeout":  d.StatementTimeout.String(),
		}
	default:
		return map[string]string{}
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("server.http_addr", c.Server.HTTPAddr, Required)
	v.Field("blob.backend", c.Blob.Backend, Required)
	switch c.Blob.Backend {
	case "filesystem":
		v.Field("blob.base_dir", c.Blob.BaseDir, Required)
	case "s3":
		v.Field("blob.bucket", c.Blob.Bucket, Required)
	case "postgres":
		v.Field("database.dsn", c.Database.DSN, Required)
	}
	v.Field("ocr.lang", c.OCR.Lang, Required)
	v.Field("ocr.dpi", c.OCR.DPI, Positive)
	v.Field("extract.max_pages", c.Extract.MaxPages, Positive)
	v.Field("batch.workers", c.Batch.Workers, Positive)
	for name, n := range map[string]int{
		"budgets.doctor":     c.Budgets.Doctor,
		"budgets.document":   c.Budgets.Document,
		"budgets.transcript": c.Budgets.Transcript,
		"budgets.unified":    c.Budgets.Unified,
		"extract.max_chars":  c.Extract.MaxChars,
	} {
		v.Field(name, n, NonNegative)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		v.Field("llm.temperature", c.LLM.Temperature, func(f string, val interface{}) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "must be between 0 and 2"}
		})
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		v.Field("log.format", c.Log.Format, func(f string, val interface{}) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "must be json or text"}
		})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("http=%s grpc=%s blob=%s ocr_lang=%s dpi=%d max_pages=%d model=%s",
		c.Server.HTTPAddr, c.Server.GRPCAddr, c.Blob.Backend, c.OCR.Lang, c.OCR.DPI,
		c.Extract.MaxPages, c.LLM.Model)
}
