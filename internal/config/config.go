package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file, relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	DatabasePath string       `yaml:"databasePath"`
	DatabaseURL  string       `yaml:"databaseURL"`
	LogLevel     string       `yaml:"logLevel"`
	Backup       BackupConfig `yaml:"backup"`
	Loans        LoanConfig   `yaml:"loans"`
}

// BackupConfig controls where backups go and how many are kept.
type BackupConfig struct {
	Dir    string       `yaml:"dir"`
	Prefix string       `yaml:"prefix"`
	Keep   int          `yaml:"keep"`
	Mirror MirrorConfig `yaml:"mirror"`
}

// MirrorConfig points at an optional S3 compatible bucket receiving a copy
// of every backup.
type MirrorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
	Prefix    string `yaml:"prefix"`
}

// LoanConfig sets loan periods in days.
type LoanConfig struct {
	DefaultDays int `yaml:"defaultDays"`
	RenewDays   int `yaml:"renewDays"`
}

// Default returns the configuration used when no file is present.
func Default() FileConfig {
	return FileConfig{
		DatabasePath: "database/library.db",
		LogLevel:     "warn",
		Backup: BackupConfig{
			Dir:    "database/backups",
			Prefix: "library_backup",
			Keep:   5,
		},
		Loans: LoanConfig{
			DefaultDays: 14,
			RenewDays:   7,
		},
	}
}

// Load reads config from path (defaults to config.yaml). A missing file is
// not an error; defaults and environment overrides still apply.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LIBRARY_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LIBRARY_BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
	if v := os.Getenv("LIBRARY_BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: LIBRARY_BACKUP_KEEP: %w", err)
		}
		cfg.Backup.Keep = n
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.Backup.Mirror.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Backup.Mirror.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Backup.Mirror.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.Backup.Mirror.Bucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.Backup.Mirror.UseSSL = true
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" && strings.TrimSpace(cfg.DatabasePath) == "" {
		return errors.New("config: databasePath is required when databaseURL is not set")
	}
	if strings.TrimSpace(cfg.Backup.Dir) == "" {
		return errors.New("config: backup.dir is required")
	}
	if cfg.Backup.Keep < 0 {
		return errors.New("config: backup.keep must not be negative")
	}
	if cfg.Loans.DefaultDays < 0 || cfg.Loans.RenewDays < 0 {
		return errors.New("config: loan day counts must not be negative")
	}
	m := cfg.Backup.Mirror
	if m.Endpoint != "" {
		if m.Bucket == "" {
			return errors.New("config: backup.mirror.bucket is required when an endpoint is set")
		}
		if m.AccessKey == "" || m.SecretKey == "" {
			return errors.New("config: backup.mirror credentials are required when an endpoint is set (or MINIO_ACCESS_KEY/MINIO_SECRET_KEY)")
		}
	}
	return nil
}
