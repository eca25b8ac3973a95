package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"APP_ENV", "HTTP_PORT", "LOG_LEVEL", "LOG_JSON", "AWS_REGION", "AWS_DEFAULT_REGION",
		"S3_ENDPOINT", "S3_PROVIDER", "S3_USE_SSL", "S3_ACCESS_KEY", "S3_SECRET_KEY", "DATABASE_URL", "DB_DSN", "TRACE_BUFFER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Env != "dev" { t.Fatalf("expected dev, got %s", cfg.Env) }
	if cfg.HttpPort != "8080" { t.Fatalf("expected 8080, got %s", cfg.HttpPort) }
	if cfg.AWSRegion != "" { t.Fatalf("expected region left to the SDK chain, got %q", cfg.AWSRegion) }
	if cfg.S3Provider != "aws" { t.Fatalf("expected aws, got %s", cfg.S3Provider) }
	if !cfg.S3UseSSL || !cfg.LogJSON { t.Fatalf("expected ssl and json logs on by default") }
	if cfg.DBDsn != "" { t.Fatalf("expected no DSN, got %q", cfg.DBDsn) }
	if cfg.TraceBuffer != 1000 { t.Fatalf("expected 1000, got %d", cfg.TraceBuffer) }
}

func TestLoadEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("S3_ENDPOINT", "http://minio.local:9000")
	t.Setenv("S3_PROVIDER", "minio")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("DB_DSN", "postgres://u:p@h/db")
	cfg, err := Load("")
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Env != "prod" { t.Fatalf("env override failed") }
	if cfg.HttpPort != "9999" { t.Fatalf("port override failed") }
	if cfg.AWSRegion != "eu-west-1" { t.Fatalf("region override failed") }
	if cfg.S3Endpoint != "http://minio.local:9000" || cfg.S3Provider != "minio" { t.Fatalf("s3 override failed: %+v", cfg) }
	if cfg.S3AccessKey != "ak" || cfg.S3SecretKey != "sk" { t.Fatalf("credentials override failed") }
	if cfg.DBDsn == "" { t.Fatalf("DB_DSN should be picked up") }
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "s3lister.yaml")
	body := "http_port: \"7000\"\ns3_provider: mcg\ntrace_buffer: 50\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil { t.Fatal(err) }
	t.Setenv("HTTP_PORT", "7100")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.HttpPort != "7100" { t.Fatalf("env should win over file, got %s", cfg.HttpPort) }
	if cfg.S3Provider != "mcg" { t.Fatalf("file value not applied, got %s", cfg.S3Provider) }
	if cfg.TraceBuffer != 50 { t.Fatalf("expected 50, got %d", cfg.TraceBuffer) }
}

func TestLoadRejectsHalfCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_ACCESS_KEY", "ak")
	if _, err := Load(""); err == nil { t.Fatalf("expected error for access key without secret") }
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil { t.Fatalf("expected error for missing file") }
}
