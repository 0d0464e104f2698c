package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Redis   Redis   `mapstructure:"redis"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Storage Storage `mapstructure:"storage"`
	Groq    Groq    `mapstructure:"groq"`
	Serper  Serper  `mapstructure:"serper"`
	Runware Runware `mapstructure:"runware"`
	Content Content `mapstructure:"content"`
	Retry   Retry   `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Redis holds connection parameters for the job and cancellation store.
type Redis struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	JobTTL    time.Duration `mapstructure:"job_ttl"`    // retention of job records
	CancelTTL time.Duration `mapstructure:"cancel_ttl"` // retention of cancel flags
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Storage holds configuration for scratch and artifact storage.
type Storage struct {
	ScratchDir string `mapstructure:"scratch_dir"` // transient per-slide images
	OutputDir  string `mapstructure:"output_dir"`  // finished deck artifacts
	FontPath   string `mapstructure:"font_path"`   // optional TTF for slide text

	Backend string `mapstructure:"backend"` // "file" (default) or "s3"
	S3      S3     `mapstructure:"s3"`
}

// S3 holds MinIO connection parameters for the artifact backend.
type S3 struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Groq holds configuration for the slide structuring model.
type Groq struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Serper holds configuration for the image search source.
type Serper struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Runware holds configuration for the image generation source.
type Runware struct {
	APIKey  string        `mapstructure:"api_key"`
	ModelID string        `mapstructure:"model_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Content holds content processing limits.
type Content struct {
	MaxLength        int `mapstructure:"max_length"`         // character budget before structuring
	DefaultMaxSlides int `mapstructure:"default_max_slides"` // used when the caller omits a hint
	MaxSlidesCap     int `mapstructure:"max_slides_cap"`     // hard cap on the numbered-point override
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASSWORD",
		"groq.api_key":          "GROQ_API_KEY",
		"serper.api_key":        "SERPER_API_KEY",
		"runware.api_key":       "RUNWARE_API_KEY",
		"storage.s3.access_key": "S3_ACCESS_KEY",
		"storage.s3.secret_key": "S3_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// setDefaults seeds defaults for settings most deployments never override.
func setDefaults() {
	viper.SetDefault("groq.model", "llama-3.1-8b-instant")
	viper.SetDefault("groq.temperature", 0.3)
	viper.SetDefault("groq.max_tokens", 8000)
	viper.SetDefault("groq.timeout", 30*time.Second)
	viper.SetDefault("serper.timeout", 15*time.Second)
	viper.SetDefault("runware.model_id", "civitai:133005@471120")
	viper.SetDefault("runware.timeout", 60*time.Second)
	viper.SetDefault("content.max_length", 20000)
	viper.SetDefault("content.default_max_slides", 50)
	viper.SetDefault("content.max_slides_cap", 100)
	viper.SetDefault("redis.job_ttl", 24*time.Hour)
	viper.SetDefault("redis.cancel_ttl", time.Hour)
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.scratch_dir", "./data/scratch")
	viper.SetDefault("storage.output_dir", "./data/output")
}

// MustLoad loads the configuration from the specified directory.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
