// Package config resolves the settings of a filesystem provider from
// defaults, an optional YAML file, the environment and explicit options,
// in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFragmentSize    = 5 * 1024 * 1024
	DefaultMaxFragments    = 50
	DefaultCopyConcurrency = 8

	EndpointClientMinio = "minio"
	EndpointClientAWS   = "aws"
)

// Configuration holds every setting used by the provider.
type Configuration struct {
	// Read-ahead cache
	FragmentSize int64 `yaml:"fragment_size"`
	MaxFragments int   `yaml:"max_fragments"`

	// Timeout bounds every object store call, zero waits indefinitely
	Timeout time.Duration `yaml:"timeout"`

	Region           string `yaml:"region,omitempty"`
	Endpoint         string `yaml:"endpoint,omitempty"`
	EndpointProtocol string `yaml:"endpoint_protocol,omitempty"`
	EndpointClient   string `yaml:"endpoint_client,omitempty"`
	PathStyle        bool   `yaml:"path_style"`

	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`

	// Checksum attached to uploads, empty disables integrity checks
	IntegrityAlgorithm string `yaml:"integrity_algorithm,omitempty"`

	// Directory holding write-back buffers, empty uses the system default
	TempDir string `yaml:"temp_dir,omitempty"`

	CopyConcurrency int `yaml:"copy_concurrency"`

	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`
}

type Option func(*Configuration) error

// Default returns the configuration used when nothing else is set.
func Default() *Configuration {
	return &Configuration{
		FragmentSize:     DefaultFragmentSize,
		MaxFragments:     DefaultMaxFragments,
		EndpointProtocol: "https",
		EndpointClient:   EndpointClientMinio,
		CopyConcurrency:  DefaultCopyConcurrency,
		LogLevel:         "info",
	}
}

// Load resolves the configuration. The YAML file at path is read when path
// is set, otherwise the file named by S3_SPI_CONFIG if any.
func Load(path string, opts ...Option) (*Configuration, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = os.Getenv("S3_SPI_CONFIG")
	}

	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Configuration) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return nil
}

func (c *Configuration) loadEnv() error {
	strs := map[string]*string{
		"S3_SPI_ENDPOINT":                  &c.Endpoint,
		"S3_SPI_ENDPOINT_PROTOCOL":         &c.EndpointProtocol,
		"S3_SPI_ENDPOINT_CLIENT":           &c.EndpointClient,
		"S3_SPI_INTEGRITY_CHECK_ALGORITHM": &c.IntegrityAlgorithm,
		"S3_SPI_TEMP_DIR":                  &c.TempDir,
		"S3_SPI_LOG_LEVEL":                 &c.LogLevel,
		"S3_SPI_LOG_FILE":                  &c.LogFile,
		"AWS_REGION":                       &c.Region,
		"AWS_ACCESS_KEY_ID":                &c.AccessKey,
		"AWS_SECRET_ACCESS_KEY":            &c.SecretKey,
	}
	for name, target := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("S3_SPI_READ_MAX_FRAGMENT_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid S3_SPI_READ_MAX_FRAGMENT_SIZE '%s': %w", v, err)
		}
		c.FragmentSize = n
	}

	if v, ok := os.LookupEnv("S3_SPI_READ_MAX_FRAGMENT_NUMBER"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid S3_SPI_READ_MAX_FRAGMENT_NUMBER '%s': %w", v, err)
		}
		c.MaxFragments = n
	}

	if v, ok := os.LookupEnv("S3_SPI_TIMEOUT"); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid S3_SPI_TIMEOUT '%s': %w", v, err)
		}
		c.Timeout = d
	}

	if v, ok := os.LookupEnv("S3_SPI_FORCE_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid S3_SPI_FORCE_PATH_STYLE '%s': %w", v, err)
		}
		c.PathStyle = b
	}

	return nil
}

// parseTimeout accepts Go durations and plain seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects settings no component could work with.
func (c *Configuration) Validate() error {
	if c.FragmentSize <= 0 {
		return fmt.Errorf("fragment size must be positive, got %d", c.FragmentSize)
	}
	if c.MaxFragments <= 0 {
		return fmt.Errorf("max fragments must be positive, got %d", c.MaxFragments)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.CopyConcurrency <= 0 {
		return fmt.Errorf("copy concurrency must be positive, got %d", c.CopyConcurrency)
	}

	switch c.EndpointProtocol {
	case "", "http", "https":
	default:
		return fmt.Errorf("unsupported endpoint protocol '%s'", c.EndpointProtocol)
	}

	switch strings.ToLower(c.EndpointClient) {
	case "", EndpointClientMinio, EndpointClientAWS:
	default:
		return fmt.Errorf("unsupported endpoint client '%s'", c.EndpointClient)
	}

	if _, err := c.Checksum(); err != nil {
		return err
	}

	if _, err := log.Parse(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Checksum returns the configured integrity algorithm or "" when disabled.
func (c *Configuration) Checksum() (backend.ChecksumAlgorithm, error) {
	switch strings.ToLower(c.IntegrityAlgorithm) {
	case "", "none", "disabled":
		return "", nil
	}
	return backend.ParseChecksumAlgorithm(c.IntegrityAlgorithm)
}

// Logger creates the root logger described by the configuration.
func (c *Configuration) Logger(name string) *log.Logger {
	level, err := log.Parse(c.LogLevel)
	if err != nil {
		level = log.Info
	}
	return log.NewLogger(name, level, c.LogFile, false)
}

// Clone returns a copy that can be modified independently.
func (c *Configuration) Clone() *Configuration {
	clone := *c
	return &clone
}
