package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string
	HttpPort    string
	LogLevel    string // debug|info|warn|error
	LogJSON     bool
	AWSRegion   string
	S3Endpoint  string // empty -> AWS default endpoint resolution
	S3Provider  string // aws|minio|mcg|generic
	S3UseSSL    bool   // used only when S3Endpoint has no scheme
	S3AccessKey string // empty -> SDK default credential chain
	S3SecretKey string
	DBDsn       string // postgres DSN for trace persistence; empty keeps traces in memory only
	TraceBuffer int
}

// Load reads configuration from defaults, the environment and, when path is
// not empty, a YAML file whose keys are the lower-cased env names
// (http_port, s3_endpoint, ...). Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("app_env", "dev")
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)
	v.SetDefault("aws_region", "") // empty -> SDK chain (AWS_PROFILE, ~/.aws/config)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_provider", "aws")
	v.SetDefault("s3_use_ssl", true)
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("database_url", "")
	v.SetDefault("trace_buffer", 1000)

	v.AutomaticEnv()
	_ = v.BindEnv("database_url", "DATABASE_URL", "DB_DSN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:         v.GetString("app_env"),
		HttpPort:    v.GetString("http_port"),
		LogLevel:    v.GetString("log_level"),
		LogJSON:     v.GetBool("log_json"),
		AWSRegion:   v.GetString("aws_region"),
		S3Endpoint:  v.GetString("s3_endpoint"),
		S3Provider:  v.GetString("s3_provider"),
		S3UseSSL:    v.GetBool("s3_use_ssl"),
		S3AccessKey: v.GetString("s3_access_key"),
		S3SecretKey: v.GetString("s3_secret_key"),
		DBDsn:       v.GetString("database_url"),
		TraceBuffer: v.GetInt("trace_buffer"),
	}
	if cfg.TraceBuffer <= 0 {
		cfg.TraceBuffer = 1000
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("S3_SECRET_KEY is required when S3_ACCESS_KEY is set")
	}
	return cfg, nil
}
