// ABOUTME: Configuration loading for the report service.
// ABOUTME: Reads an optional YAML file, then applies environment overrides and defaults.

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the report service.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Cluster struct {
		// Name appears in the Cluster column of every report row.
		Name string `yaml:"name"`
	} `yaml:"cluster"`

	Storage struct {
		RawDir    string `yaml:"rawDir"`
		ReportDir string `yaml:"reportDir"`
	} `yaml:"storage"`

	Inventory struct {
		// Provider selects the inventory source: kubernetes, local, or mock.
		Provider string `yaml:"provider"`
		// File is the raw inventory CSV read by the local provider.
		File string `yaml:"file"`
	} `yaml:"inventory"`

	Scan struct {
		// Source selects where findings come from: file, ecr, or mock.
		Source       string `yaml:"source"`
		ECRAccountID string `yaml:"ecrAccountID"`
		ECRRegion    string `yaml:"ecrRegion"`
	} `yaml:"scan"`

	Report struct {
		// StrictDigest keys report groups by image digest as well, so the
		// same image under two digests is never merged.
		StrictDigest bool `yaml:"strictDigest"`
		// SkipExisting returns early when the day's report already exists.
		SkipExisting bool `yaml:"skipExisting"`
	} `yaml:"report"`

	Schedule struct {
		// Cron is a cron expression for automatic daily runs. Empty disables
		// the scheduler.
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`

	Publish struct {
		// Dir is a local directory reports get copied into after each run.
		// Empty disables local publishing.
		Dir string `yaml:"dir"`

		Minio struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"accessKey"`
			SecretKey string `yaml:"secretKey"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"publish"`
}

// Load reads the YAML file at path when it exists, applies environment
// overrides, and fills in defaults. A missing file is not an error; the
// service can run on environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Cluster.Name, "CLUSTER_NAME")
	overrideString(&c.Storage.RawDir, "RAW_DIR")
	overrideString(&c.Storage.ReportDir, "REPORT_DIR")
	overrideString(&c.Inventory.Provider, "INVENTORY_PROVIDER")
	overrideString(&c.Inventory.File, "INVENTORY_FILE")
	overrideString(&c.Scan.Source, "SCAN_SOURCE")
	overrideString(&c.Scan.ECRAccountID, "ECR_ACCOUNT_ID")
	overrideString(&c.Scan.ECRRegion, "AWS_REGION")
	overrideString(&c.Schedule.Cron, "SCHEDULE_CRON")
	overrideString(&c.Publish.Dir, "PUBLISH_DIR")
	overrideString(&c.Publish.Minio.Endpoint, "MINIO_ENDPOINT")
	overrideString(&c.Publish.Minio.AccessKey, "MINIO_ACCESS_KEY")
	overrideString(&c.Publish.Minio.SecretKey, "MINIO_SECRET_KEY")
	overrideString(&c.Publish.Minio.Bucket, "MINIO_BUCKET")
	overrideBool(&c.Publish.Minio.UseSSL, "MINIO_USE_SSL")
	overrideBool(&c.Report.StrictDigest, "STRICT_DIGEST")
	overrideBool(&c.Report.SkipExisting, "SKIP_EXISTING")
	overrideInt(&c.Server.Port, "PORT")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Cluster.Name == "" {
		c.Cluster.Name = "unknown"
	}
	if c.Storage.RawDir == "" {
		c.Storage.RawDir = "data/raw"
	}
	if c.Storage.ReportDir == "" {
		c.Storage.ReportDir = "data/reports"
	}
	if c.Inventory.Provider == "" {
		c.Inventory.Provider = "kubernetes"
	}
	if c.Scan.Source == "" {
		c.Scan.Source = "file"
	}
}

func (c *Config) validate() error {
	switch c.Inventory.Provider {
	case "kubernetes", "local", "mock":
	default:
		return fmt.Errorf("unknown inventory provider: %s", c.Inventory.Provider)
	}
	if c.Inventory.Provider == "local" && c.Inventory.File == "" {
		return fmt.Errorf("inventory file is required for the local provider")
	}

	switch c.Scan.Source {
	case "file", "ecr", "mock":
	default:
		return fmt.Errorf("unknown scan source: %s", c.Scan.Source)
	}
	if c.Scan.Source == "ecr" {
		if c.Scan.ECRAccountID == "" {
			return fmt.Errorf("ECR account ID is required for the ecr scan source")
		}
		if c.Scan.ECRRegion == "" {
			return fmt.Errorf("AWS region is required for the ecr scan source")
		}
	}
	return nil
}

func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func overrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}
