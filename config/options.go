package config

import (
	"fmt"
	"time"
)

func WithRegion(region string) Option {
	return func(c *Configuration) error {
		c.Region = region
		return nil
	}
}

// WithEndpoint addresses a custom store, protocol is http or https.
func WithEndpoint(endpoint, protocol string) Option {
	return func(c *Configuration) error {
		c.Endpoint = endpoint
		if protocol != "" {
			c.EndpointProtocol = protocol
		}
		return nil
	}
}

func WithEndpointClient(client string) Option {
	return func(c *Configuration) error {
		c.EndpointClient = client
		return nil
	}
}

func WithPathStyle(enabled bool) Option {
	return func(c *Configuration) error {
		c.PathStyle = enabled
		return nil
	}
}

func WithCredentials(accessKey, secretKey string) Option {
	return func(c *Configuration) error {
		if (accessKey == "") != (secretKey == "") {
			return fmt.Errorf("access key and secret key must be set together")
		}
		c.AccessKey = accessKey
		c.SecretKey = secretKey
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Configuration) error {
		c.Timeout = timeout
		return nil
	}
}

// WithFragments sizes the read-ahead cache of read channels.
func WithFragments(size int64, max int) Option {
	return func(c *Configuration) error {
		c.FragmentSize = size
		c.MaxFragments = max
		return nil
	}
}

func WithIntegrityAlgorithm(algorithm string) Option {
	return func(c *Configuration) error {
		c.IntegrityAlgorithm = algorithm
		return nil
	}
}

func WithTempDir(dir string) Option {
	return func(c *Configuration) error {
		c.TempDir = dir
		return nil
	}
}

func WithCopyConcurrency(n int) Option {
	return func(c *Configuration) error {
		c.CopyConcurrency = n
		return nil
	}
}

func WithLogLevel(level string) Option {
	return func(c *Configuration) error {
		c.LogLevel = level
		return nil
	}
}
