package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp-forge/peopledoc/pkg/archive"
	"github.com/hashicorp-forge/peopledoc/pkg/events"
	"github.com/hashicorp-forge/peopledoc/pkg/transport"
)

const (
	// EnvBaseURI overrides peopledoc.base_uri.
	EnvBaseURI = "PEOPLEDOC_BASE_URI"

	// EnvAPIKey overrides peopledoc.api_key.
	EnvAPIKey = "PEOPLEDOC_API_KEY"

	// EnvBrokers overrides events.brokers with a comma-separated list.
	EnvBrokers = "PEOPLEDOC_EVENT_BROKERS"
)

// Config is the CLI configuration file.
//
// Example configuration (HCL):
//
//	log_level = "info"
//
//	peopledoc {
//	  base_uri      = "https://api.people-doc.com/api/v1/"
//	  api_key       = "..."
//	  timeout       = "30s"
//	  max_redirects = 10
//	  tls_verify    = true
//	  trace         = false
//	}
//
//	archive {
//	  endpoint   = "http://localhost:9000"
//	  region     = "us-east-1"
//	  bucket     = "hr-documents"
//	  prefix     = "peopledoc"
//	}
//
//	events {
//	  brokers = ["localhost:19092"]
//	  topic   = "peopledoc.signatures"
//	}
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `hcl:"log_level,optional"`

	PeopleDoc *PeopleDoc `hcl:"peopledoc,block"`

	// Archive is where "document archive" copies documents.
	Archive *Archive `hcl:"archive,block"`

	// Events enables signature status events.
	Events *Events `hcl:"events,block"`
}

// PeopleDoc configures the API client.
type PeopleDoc struct {
	BaseURI      string `hcl:"base_uri,optional"`
	APIKey       string `hcl:"api_key,optional"`
	Timeout      string `hcl:"timeout,optional"`
	MaxRedirects *int   `hcl:"max_redirects,optional"`
	TLSVerify    *bool  `hcl:"tls_verify,optional"`
	Trace        bool   `hcl:"trace,optional"`
}

// Archive configures the S3-compatible document archive.
type Archive struct {
	Endpoint  string `hcl:"endpoint,optional"`
	Region    string `hcl:"region"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Timeout   string `hcl:"timeout,optional"`
}

// Events configures the Kafka/Redpanda publisher.
type Events struct {
	Brokers []string `hcl:"brokers,optional"`
	Topic   string   `hcl:"topic,optional"`
}

// NewConfig returns a configuration with no file loaded.
func NewConfig() *Config {
	return &Config{
		LogLevel:  "info",
		PeopleDoc: &PeopleDoc{},
	}
}

// NewFromFile parses an HCL configuration file.
func NewFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration file path is required")
	}

	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	cfg := NewConfig()
	if err := hclsimple.DecodeFile(filename, nil, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}
	if cfg.PeopleDoc == nil {
		cfg.PeopleDoc = &PeopleDoc{}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// ApplyEnv overrides file values with PEOPLEDOC_* environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvBaseURI); ok && v != "" {
		c.PeopleDoc.BaseURI = v
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok && v != "" {
		c.PeopleDoc.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvBrokers); ok && v != "" {
		if c.Events == nil {
			c.Events = &Events{}
		}
		c.Events.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Events.Brokers = append(c.Events.Brokers, b)
			}
		}
	}
}

// Transport converts the peopledoc block into a validated transport config.
func (c *Config) Transport() (*transport.Config, error) {
	p := c.PeopleDoc
	if p == nil {
		p = &PeopleDoc{}
	}

	cfg := &transport.Config{
		BaseURL:      p.BaseURI,
		APIKey:       p.APIKey,
		MaxRedirects: p.MaxRedirects,
		TLSVerify:    p.TLSVerify,
		Trace:        p.Trace,
	}

	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
		}
		cfg.Timeout = d
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ArchiveConfig converts the archive block. It returns nil when the block
// is absent.
func (c *Config) ArchiveConfig() (*archive.Config, error) {
	a := c.Archive
	if a == nil {
		return nil, nil
	}

	cfg := &archive.Config{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		Bucket:    a.Bucket,
		Prefix:    a.Prefix,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
	}
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid archive timeout %q: %w", a.Timeout, err)
		}
		cfg.Timeout = d
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive configuration: %w", err)
	}
	return cfg, nil
}

// EventsConfig converts the events block. It returns nil when events are
// not configured.
func (c *Config) EventsConfig() *events.Config {
	if c.Events == nil || len(c.Events.Brokers) == 0 {
		return nil
	}
	return &events.Config{
		Brokers: c.Events.Brokers,
		Topic:   c.Events.Topic,
	}
}
