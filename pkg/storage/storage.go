package storage

import "strings"

// Config holds S3-compatible storage configuration.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string `yaml:"bucket" envconfig:"BUCKET"`

	// AccessKey is the AWS access key ID (required).
	AccessKey string `yaml:"access_key" envconfig:"ACCESS_KEY"`

	// SecretKey is the AWS secret access key (required).
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`

	// Endpoint is a custom endpoint URL for MinIO and other S3-compatible services.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`

	// Region is the AWS region (default: us-east-1).
	Region string `yaml:"region" envconfig:"REGION"`

	// Prefix is prepended to every key (optional).
	Prefix string `yaml:"prefix" envconfig:"PREFIX"`

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool `yaml:"path_style" envconfig:"PATH_STYLE"`
}

// Object describes a stored object.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Enabled reports whether the config names a bucket.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
