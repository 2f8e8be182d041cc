package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nijaru/skryba/language"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port" yaml:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	Debug        bool          `json:"debug" yaml:"debug"`

	// Logging
	LogDir   string `json:"log_dir" yaml:"log_dir"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	Middleware  MiddlewareConfig  `json:"middleware" yaml:"middleware"`
	CORS        CORSConfig        `json:"cors" yaml:"cors"`
	RateLimit   RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	Workspace   WorkspaceConfig   `json:"workspace" yaml:"workspace"`
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline"`
	Scripts     ScriptsConfig     `json:"scripts" yaml:"scripts"`
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	Summary     SummaryConfig     `json:"summary" yaml:"summary"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Cleanup     CleanupConfig     `json:"cleanup" yaml:"cleanup"`
	Gateway     GatewayConfig     `json:"gateway" yaml:"gateway"`

	Version string `json:"version" yaml:"version"`

	// RequestTimeout of zero disables the timeout middleware; scribe jobs
	// routinely outlive any sensible HTTP deadline.
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover" yaml:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id" yaml:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger" yaml:"enable_logger"`
	EnableTimeout   bool `json:"enable_timeout" yaml:"enable_timeout"`
	EnableCORS      bool `json:"enable_cors" yaml:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int  `json:"burst_size" yaml:"burst_size"`
	// TrustProxy keys clients on X-Forwarded-For instead of the peer address.
	TrustProxy bool `json:"trust_proxy" yaml:"trust_proxy"`
}

type DatabaseConfig struct {
	Path               string        `json:"path" yaml:"path"`
	MaxConnections     int           `json:"max_connections" yaml:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections" yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type WorkspaceConfig struct {
	BaseDir       string `json:"base_dir" yaml:"base_dir"`
	ArchivePrefix string `json:"archive_prefix" yaml:"archive_prefix"`
	MaxUploadSize int64  `json:"max_upload_size" yaml:"max_upload_size"`
	PurgeOnStart  bool   `json:"purge_on_start" yaml:"purge_on_start"`
}

// PipelineConfig holds the tunables of the scribe pipeline. The budgets are
// product decisions rather than derived values, so every one is overridable.
type PipelineConfig struct {
	GroupSize                  int    `json:"group_size" yaml:"group_size"`
	ChunkCharBudget            int    `json:"chunk_char_budget" yaml:"chunk_char_budget"`
	ChunkTokenBudget           int    `json:"chunk_token_budget" yaml:"chunk_token_budget"`
	DetectSampleChars          int    `json:"detect_sample_chars" yaml:"detect_sample_chars"`
	CanonicalLanguage          string `json:"canonical_language" yaml:"canonical_language"`
	TranslationEnabled         bool   `json:"translation_enabled" yaml:"translation_enabled"`
	LineWiseSummaryTranslation bool   `json:"line_wise_summary_translation" yaml:"line_wise_summary_translation"`
	DefaultModel               string `json:"default_model" yaml:"default_model"`
	Detector                   string `json:"detector" yaml:"detector"`
}

type ScriptsConfig struct {
	PythonPath  string   `json:"python_path" yaml:"python_path"`
	ScriptsPath string   `json:"scripts_path" yaml:"scripts_path"`
	Device      string   `json:"device" yaml:"device"`
	BatchSize   int      `json:"batch_size" yaml:"batch_size"`
	Environment []string `json:"environment" yaml:"environment"`
}

type TranslationConfig struct {
	ModelURL string        `json:"model_url" yaml:"model_url"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

type SummaryConfig struct {
	Backend      string `json:"backend" yaml:"backend"`
	ModelName    string `json:"model_name" yaml:"model_name"`
	GeminiAPIKey string `json:"-" yaml:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model" yaml:"gemini_model"`
}

type StorageConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	AccessKey string `json:"-" yaml:"access_key"`
	SecretKey string `json:"-" yaml:"secret_key"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" yaml:"bucket"`
}

type CleanupConfig struct {
	SweepCron string        `json:"sweep_cron" yaml:"sweep_cron"`
	OrphanTTL time.Duration `json:"orphan_ttl" yaml:"orphan_ttl"`
}

type GatewayConfig struct {
	Port             string `json:"port" yaml:"port"`
	ScribeServiceURL string `json:"scribe_service_url" yaml:"scribe_service_url"`
}

const (
	SummaryBackendScript = "script"
	SummaryBackendGemini = "gemini"

	DetectorWhatlang = "whatlang"
	DetectorScript   = "script"
)

func defaultDevConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   false,
		EnableCORS:      true,
		EnableRateLimit: false,
	}
}

func defaultProdConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   false,
		EnableCORS:      true,
		EnableRateLimit: true,
	}
}

func defaults() *Config {
	return &Config{
		ServerPort:   "8000",
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		LogDir:       "/var/log/skryba",
		LogLevel:     "info",
		Version:      "1.0.0",

		ShutdownTimeout: 30 * time.Second,

		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         86400,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Database: DatabaseConfig{
			Path:               "/var/lib/skryba/skryba.db",
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    time.Hour,
		},
		Workspace: WorkspaceConfig{
			BaseDir:       "/skrybafiles",
			ArchivePrefix: "skryba",
			MaxUploadSize: 2 << 30,
			PurgeOnStart:  true,
		},
		Pipeline: PipelineConfig{
			GroupSize:                  20,
			ChunkCharBudget:            3072,
			ChunkTokenBudget:           256,
			DetectSampleChars:          300,
			CanonicalLanguage:          "en_XX",
			TranslationEnabled:         true,
			LineWiseSummaryTranslation: true,
			DefaultModel:               "large-v3",
			Detector:                   DetectorWhatlang,
		},
		Scripts: ScriptsConfig{
			PythonPath:  "uv",
			ScriptsPath: "./scripts",
			Device:      "cuda",
			BatchSize:   16,
		},
		Translation: TranslationConfig{
			ModelURL: "http://localhost:8500",
		},
		Summary: SummaryConfig{
			Backend:     SummaryBackendScript,
			ModelName:   "agentlans/granite-3.3-2b-notetaker",
			GeminiModel: "gemini-2.5-flash",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Cleanup: CleanupConfig{
			SweepCron: "@every 30m",
			OrphanTTL: 6 * time.Hour,
		},
		Gateway: GatewayConfig{
			Port:             "8080",
			ScribeServiceURL: "http://localhost:8000",
		},
		Middleware: defaultDevConfig(),
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file named by CONFIG_FILE and finally environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg := defaults()
	if os.Getenv("ENV") == "production" {
		cfg.Middleware = defaultProdConfig()
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func applyEnv(c *Config) {
	// Server settings
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Version = getEnv("VERSION", c.Version)
	c.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	// CORS Configuration
	c.CORS.Enabled = getEnvAsBool("CORS_ENABLED", c.CORS.Enabled)
	c.CORS.AllowedOrigins = getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnvAsStringSlice("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnvAsStringSlice("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)
	c.CORS.ExposedHeaders = getEnvAsStringSlice("CORS_EXPOSED_HEADERS", c.CORS.ExposedHeaders)
	c.CORS.AllowCredentials = getEnvAsBool("CORS_ALLOW_CREDENTIALS", c.CORS.AllowCredentials)
	c.CORS.MaxAge = getEnvAsInt("CORS_MAX_AGE", c.CORS.MaxAge)

	// Rate Limiting
	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMinute = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)
	c.RateLimit.TrustProxy = getEnvAsBool("RATE_LIMIT_TRUST_PROXY", c.RateLimit.TrustProxy)

	// Database
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)

	// Workspace
	c.Workspace.BaseDir = getEnv("FILES_DIR", c.Workspace.BaseDir)
	c.Workspace.ArchivePrefix = getEnv("ARCHIVE_PREFIX", c.Workspace.ArchivePrefix)
	c.Workspace.MaxUploadSize = getEnvAsInt64("MAX_UPLOAD_SIZE", c.Workspace.MaxUploadSize)
	c.Workspace.PurgeOnStart = getEnvAsBool("PURGE_ON_START", c.Workspace.PurgeOnStart)

	// Pipeline
	c.Pipeline.GroupSize = getEnvAsInt("GROUP_SIZE", c.Pipeline.GroupSize)
	c.Pipeline.ChunkCharBudget = getEnvAsInt("CHUNK_CHAR_BUDGET", c.Pipeline.ChunkCharBudget)
	c.Pipeline.ChunkTokenBudget = getEnvAsInt("CHUNK_TOKEN_BUDGET", c.Pipeline.ChunkTokenBudget)
	c.Pipeline.DetectSampleChars = getEnvAsInt("DETECT_SAMPLE_CHARS", c.Pipeline.DetectSampleChars)
	c.Pipeline.CanonicalLanguage = getEnv("CANONICAL_LANGUAGE", c.Pipeline.CanonicalLanguage)
	c.Pipeline.TranslationEnabled = getEnvAsBool("TRANSLATION_ENABLED", c.Pipeline.TranslationEnabled)
	c.Pipeline.LineWiseSummaryTranslation = getEnvAsBool("LINE_WISE_SUMMARY_TRANSLATION", c.Pipeline.LineWiseSummaryTranslation)
	c.Pipeline.DefaultModel = getEnv("WHISPER_MODEL", c.Pipeline.DefaultModel)
	c.Pipeline.Detector = getEnv("LANGUAGE_DETECTOR", c.Pipeline.Detector)

	// Scripts
	c.Scripts.PythonPath = getEnv("PYTHON_PATH", c.Scripts.PythonPath)
	c.Scripts.ScriptsPath = getEnv("SCRIPTS_PATH", c.Scripts.ScriptsPath)
	c.Scripts.Device = getEnv("DEVICE", c.Scripts.Device)
	c.Scripts.BatchSize = getEnvAsInt("TRANSCRIBE_BATCH_SIZE", c.Scripts.BatchSize)
	c.Scripts.Environment = getEnvAsStringSlice("SCRIPTS_ENV", c.Scripts.Environment)

	// Translation model server
	c.Translation.ModelURL = getEnv("TRANSLATION_MODEL_URL", c.Translation.ModelURL)
	c.Translation.Timeout = getEnvAsDuration("TRANSLATION_TIMEOUT", c.Translation.Timeout)

	// Summary
	c.Summary.Backend = getEnv("SUMMARY_BACKEND", c.Summary.Backend)
	c.Summary.ModelName = getEnv("SUMMARY_MODEL", c.Summary.ModelName)
	c.Summary.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Summary.GeminiAPIKey)
	c.Summary.GeminiModel = getEnv("GEMINI_MODEL", c.Summary.GeminiModel)

	// Storage
	c.Storage.Enabled = getEnvAsBool("SPACES_ENABLED", c.Storage.Enabled)
	c.Storage.AccessKey = getEnv("SPACES_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("SPACES_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Region = getEnv("SPACES_REGION", c.Storage.Region)
	c.Storage.Endpoint = getEnv("SPACES_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Bucket = getEnv("SPACES_BUCKET", c.Storage.Bucket)

	// Cleanup
	c.Cleanup.SweepCron = getEnv("CLEANUP_SWEEP_CRON", c.Cleanup.SweepCron)
	c.Cleanup.OrphanTTL = getEnvAsDuration("CLEANUP_ORPHAN_TTL", c.Cleanup.OrphanTTL)

	// Gateway
	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	c.Gateway.ScribeServiceURL = getEnv("SCRIBE_SERVICE_URL", c.Gateway.ScribeServiceURL)
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validatePipeline(c); err != nil {
		return err
	}

	return validateServices(c)
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.Workspace.BaseDir, "workspace directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if p.path == "" {
			return fmt.Errorf("%s is required", p.name)
		}
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout < 0 {
		return errors.New("write timeout must not be negative")
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout must not be negative")
	}
	return nil
}

func validatePipeline(c *Config) error {
	p := c.Pipeline
	if p.GroupSize <= 0 {
		return errors.New("group size must be positive")
	}
	if p.ChunkCharBudget <= 0 {
		return errors.New("chunk char budget must be positive")
	}
	if p.ChunkTokenBudget <= 0 {
		return errors.New("chunk token budget must be positive")
	}
	if p.DetectSampleChars <= 0 {
		return errors.New("detect sample size must be positive")
	}
	if p.CanonicalLanguage == "" {
		return errors.New("canonical language is required")
	}
	if err := language.ValidateCanonical(p.CanonicalLanguage); err != nil {
		return err
	}
	switch p.Detector {
	case DetectorWhatlang, DetectorScript:
	default:
		return fmt.Errorf("unknown language detector %q", p.Detector)
	}
	return nil
}

func validateServices(c *Config) error {
	switch c.Summary.Backend {
	case SummaryBackendScript:
	case SummaryBackendGemini:
		if c.Summary.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini summary backend")
		}
	default:
		return fmt.Errorf("unknown summary backend %q", c.Summary.Backend)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return errors.New("storage bucket is required when storage export is enabled")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue, "integer")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue, "integer")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		warnInvalid(key, value, defaultValue, "boolean")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "duration")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue interface{}, kind string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warnf("Invalid %s, using default", kind)
}
