// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// EnvPrefix is prepended to every automatically bound environment variable
const EnvPrefix = "SWIRE_ASSISTANT"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Finance   FinanceConfig   `mapstructure:"finance"`
	History   HistoryConfig   `mapstructure:"history"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Search    SearchConfig    `mapstructure:"search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64           `mapstructure:"max_upload_bytes"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig contains allowed cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig contains per-client request rate settings
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// OpenAIConfig contains OpenAI or Azure OpenAI API configuration
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"apikey"`
	Endpoint        string        `mapstructure:"endpoint"`
	AzureEndpoint   string        `mapstructure:"azure_endpoint"`
	AzureDeployment string        `mapstructure:"azure_deployment"`
	APIVersion      string        `mapstructure:"api_version"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// FinanceConfig contains settings for the finance data source
type FinanceConfig struct {
	SourceURL        string        `mapstructure:"source_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// HistoryConfig contains query history storage settings
type HistoryConfig struct {
	StorageType           string `mapstructure:"storage_type"`
	Capacity              int    `mapstructure:"capacity"`
	CollaborationCapacity int    `mapstructure:"collaboration_capacity"`
	RedisAddr             string `mapstructure:"redis_addr"`
	RedisKey              string `mapstructure:"redis_key"`
}

// KnowledgeConfig contains local knowledge base settings
type KnowledgeConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
	DataDir     string `mapstructure:"data_dir"`
	SearchLimit int    `mapstructure:"search_limit"`
}

// SearchConfig contains Azure Cognitive Search settings
type SearchConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"apikey"`
	Index      string        `mapstructure:"index"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains object storage settings
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	LocalPath       string `mapstructure:"local_path"`
}

// UploadConfig contains batch upload settings
type UploadConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	BatchSize   int `mapstructure:"batch_size"`
}

// ScraperConfig contains website scraper settings
type ScraperConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig contains error reporting configuration
type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	DotEnvPath       string
	EnableHotReload  bool
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		DotEnvPath:       ".env",
		EnableHotReload:  false,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// A missing .env file is normal outside local development
	if opts.DotEnvPath != "" {
		_ = godotenv.Load(opts.DotEnvPath)
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set configuration file path
	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)

	// Every value has a default, so running without a config file is fine
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Set explicit environment variable mappings
	setEnvironmentMappings(v)

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.Environment != "" && config.Sentry.Environment == "" {
		config.Sentry.Environment = opts.Environment
	}

	// Validate configuration
	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_second", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)

	// OpenAI defaults
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.api_version", "2024-02-01")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.timeout", "30s")
	v.SetDefault("openai.max_retries", 3)

	// Finance data source defaults
	v.SetDefault("finance.source_url", "https://dummyjson.com/products")
	v.SetDefault("finance.timeout", "10s")
	v.SetDefault("finance.failure_threshold", 3)
	v.SetDefault("finance.open_timeout", "30s")

	// History defaults
	v.SetDefault("history.storage_type", "memory")
	v.SetDefault("history.capacity", 10)
	v.SetDefault("history.collaboration_capacity", 20)
	v.SetDefault("history.redis_key", "swire:assistant:history")

	// Knowledge defaults
	v.SetDefault("knowledge.catalog_path", "./knowledge.db")
	v.SetDefault("knowledge.data_dir", "./kb_data")
	v.SetDefault("knowledge.search_limit", 3)

	// Azure Cognitive Search defaults
	v.SetDefault("search.index", "swire-wind-services")
	v.SetDefault("search.api_version", "2023-11-01")
	v.SetDefault("search.timeout", "30s")

	// Object storage defaults
	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.local_path", "./kb_data/objects")

	// Upload defaults
	v.SetDefault("upload.concurrency", 5)
	v.SetDefault("upload.batch_size", 100)

	// Scraper defaults
	v.SetDefault("scraper.base_url", "https://swire-re.com")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; SwireKnowledgeBot/1.0)")
	v.SetDefault("scraper.timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "./logs/assistant.log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// Sentry defaults
	v.SetDefault("sentry.traces_sample_rate", 0.1)
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	// Check for CONFIG_PATH environment variable
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	// Use provided config path
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations, searched by ReadInConfig
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return nil
}

// envMappings maps conventional environment variable names to config keys
var envMappings = map[string]string{
	"OPENAI_API_KEY":          "openai.apikey",
	"OPENAI_ENDPOINT":         "openai.endpoint",
	"AZURE_OPENAI_ENDPOINT":   "openai.azure_endpoint",
	"AZURE_OPENAI_DEPLOYMENT": "openai.azure_deployment",
	"AZURE_SEARCH_ENDPOINT":   "search.endpoint",
	"AZURE_SEARCH_KEY":        "search.apikey",
	"AZURE_SEARCH_INDEX":      "search.index",
	"AWS_REGION":              "storage.region",
	"AWS_ACCESS_KEY_ID":       "storage.access_key_id",
	"AWS_SECRET_ACCESS_KEY":   "storage.secret_access_key",
	"S3_BUCKET":               "storage.bucket",
	"S3_ENDPOINT":             "storage.endpoint",
	"REDIS_ADDR":              "history.redis_addr",
	"SENTRY_DSN":              "sentry.dsn",
	"KNOWLEDGE_DB_PATH":       "knowledge.catalog_path",
	"LOG_LEVEL":               "logging.level",
	"LOG_FORMAT":              "logging.format",
	"LOG_OUTPUT":              "logging.output",
	"PORT":                    "server.port",
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errs []ValidationError

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	validModes := []string{"debug", "release", "test"}
	if config.Server.Mode != "" && !contains(validModes, config.Server.Mode) {
		errs = append(errs, ValidationError{
			Field:   "server.mode",
			Message: fmt.Sprintf("mode must be one of: %s", strings.Join(validModes, ", ")),
		})
	}

	if config.Finance.FailureThreshold < 0 {
		errs = append(errs, ValidationError{
			Field:   "finance.failure_threshold",
			Message: "failure_threshold must not be negative",
		})
	}

	if config.Server.RateLimit.Enabled {
		if config.Server.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, ValidationError{
				Field:   "server.rate_limit.requests_per_second",
				Message: "requests_per_second must be greater than 0",
			})
		}
		if config.Server.RateLimit.Burst <= 0 {
			errs = append(errs, ValidationError{
				Field:   "server.rate_limit.burst",
				Message: "burst must be greater than 0",
			})
		}
	}

	// Azure OpenAI needs a deployment to route requests to
	if config.OpenAI.AzureEndpoint != "" && config.OpenAI.AzureDeployment == "" {
		errs = append(errs, ValidationError{
			Field:   "openai.azure_deployment",
			Message: "Azure OpenAI deployment is required when azure_endpoint is set. Set via config file or AZURE_OPENAI_DEPLOYMENT environment variable",
		})
	}

	if config.OpenAI.MaxTokens <= 0 {
		errs = append(errs, ValidationError{
			Field:   "openai.max_tokens",
			Message: "max_tokens must be greater than 0",
		})
	}

	if config.OpenAI.Temperature < 0 || config.OpenAI.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if config.Finance.SourceURL == "" {
		errs = append(errs, ValidationError{
			Field:   "finance.source_url",
			Message: "finance source URL is required",
		})
	}

	validHistoryTypes := []string{"memory", "redis"}
	if !contains(validHistoryTypes, config.History.StorageType) {
		errs = append(errs, ValidationError{
			Field:   "history.storage_type",
			Message: fmt.Sprintf("storage type must be one of: %s", strings.Join(validHistoryTypes, ", ")),
		})
	}

	if config.History.StorageType == "redis" && config.History.RedisAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "history.redis_addr",
			Message: "redis address is required for redis history storage. Set via config file or REDIS_ADDR environment variable",
		})
	}

	if config.History.Capacity <= 0 {
		errs = append(errs, ValidationError{
			Field:   "history.capacity",
			Message: "capacity must be greater than 0",
		})
	}

	if config.History.CollaborationCapacity <= 0 {
		errs = append(errs, ValidationError{
			Field:   "history.collaboration_capacity",
			Message: "collaboration_capacity must be greater than 0",
		})
	}

	if config.Search.Endpoint != "" && config.Search.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "search.apikey",
			Message: "search API key is required when search endpoint is set. Set via config file or AZURE_SEARCH_KEY environment variable",
		})
	}

	validBackends := []string{"s3", "minio", "local"}
	if !contains(validBackends, config.Storage.Backend) {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("storage backend must be one of: %s", strings.Join(validBackends, ", ")),
		})
	}

	if config.Storage.Backend == "minio" && config.Storage.Endpoint == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.endpoint",
			Message: "endpoint is required for the minio storage backend",
		})
	}

	if config.Upload.Concurrency <= 0 {
		errs = append(errs, ValidationError{
			Field:   "upload.concurrency",
			Message: "concurrency must be greater than 0",
		})
	}

	if config.Sentry.TracesSampleRate < 0 || config.Sentry.TracesSampleRate > 1 {
		errs = append(errs, ValidationError{
			Field:   "sentry.traces_sample_rate",
			Message: "traces_sample_rate must be between 0 and 1",
		})
	}

	// Validate enum values
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	validLogOutputs := []string{"stdout", "stderr", "file", "both"}
	if !contains(validLogOutputs, config.Logging.Output) {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("log output must be one of: %s", strings.Join(validLogOutputs, ", ")),
		})
	}

	if config.Logging.Output == "file" || config.Logging.Output == "both" {
		if config.Logging.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "log file path is required for file output",
			})
		}
	}

	// Validate directory existence for file paths
	if config.Knowledge.CatalogPath != "" {
		if err := validateDirectoryExists(filepath.Dir(config.Knowledge.CatalogPath)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "knowledge.catalog_path",
				Message: fmt.Sprintf("knowledge catalog directory does not exist: %s", filepath.Dir(config.Knowledge.CatalogPath)),
			})
		}
	}

	// Return all validation errors
	if len(errs) > 0 {
		var errorMessages []string
		for _, err := range errs {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("%w:\n%s", ErrInvalidConfigValue, strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Search.APIKey != "" {
		masked.Search.APIKey = maskValue(masked.Search.APIKey)
	}
	if masked.Storage.AccessKeyID != "" {
		masked.Storage.AccessKeyID = maskValue(masked.Storage.AccessKeyID)
	}
	if masked.Storage.SecretAccessKey != "" {
		masked.Storage.SecretAccessKey = maskValue(masked.Storage.SecretAccessKey)
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = maskValue(masked.Sentry.DSN)
	}

	return &masked
}

// Addr returns the host:port the HTTP server listens on
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading and calls callback with
// every successfully reloaded configuration
func WatchConfig(configPath string, callback func(*Config), onError func(error)) error {
	v := viper.New()

	if err := setConfigFile(v, configPath); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file for watching: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			EnableHotReload:  true,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload config after change to %s: %w", e.Name, err))
			}
			return
		}

		callback(config)
	})
	v.WatchConfig()

	return nil
}
