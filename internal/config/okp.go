package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/okp/internal/domain"
)

// MaxRows is the upper bound for rows, both configured and per call.
const MaxRows = 100

// Config holds the retrieval settings (immutable once validated).
type Config struct {
	BaseURL                 string    `yaml:"base_url"`
	SolrHandler             string    `yaml:"solr_handler"`
	Rows                    int       `yaml:"rows"`
	TimeoutConnectSec       float64   `yaml:"timeout_connect"`
	TimeoutReadSec          float64   `yaml:"timeout_read"`
	TimeoutPoolSec          float64   `yaml:"timeout_pool"`
	Retries                 int       `yaml:"retries"`
	VerifySSL               TLSVerify `yaml:"verify_ssl"`
	MaxQueryLength          int       `yaml:"max_query_length"`
	MaxContextChars         int       `yaml:"max_context_chars"`
	CircuitFailureThreshold int       `yaml:"circuit_failure_threshold"`
	CircuitResetTimeoutSec  float64   `yaml:"circuit_reset_timeout"`
	RetryMaxAttempts        int       `yaml:"retry_max_attempts"`
	RetryBackoffBaseSec     float64   `yaml:"retry_backoff_base"`
	RetryBackoffMaxSec      float64   `yaml:"retry_backoff_max"`
	CacheTTLSec             float64   `yaml:"cache_ttl"`
	CacheMaxEntries         int       `yaml:"cache_max_entries"`
	ExpandSynonyms          bool      `yaml:"expand_synonyms"`
}

// Override mutates a Config after environment variables were applied.
type Override func(*Config)

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		BaseURL:                "http://127.0.0.1:8080",
		SolrHandler:            "/solr/portal/select",
		Rows:                   5,
		TimeoutConnectSec:      5,
		TimeoutReadSec:         25,
		TimeoutPoolSec:         10,
		Retries:                2,
		VerifySSL:              TLSVerify{Enabled: true},
		MaxQueryLength:         10000,
		CircuitResetTimeoutSec: 30,
		RetryBackoffBaseSec:    0.5,
		RetryBackoffMaxSec:     8,
		CacheMaxEntries:        256,
	}
}

// FromEnv builds a Config: defaults, then RHOKP_* environment variables,
// then overrides. The result is validated once.
func FromEnv(overrides ...Override) (Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize strips trailing slashes from BaseURL.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// ApplyEnv overwrites fields whose RHOKP_* variable is set.
// Unparseable numbers fail with the variable name and raw value.
func (c *Config) ApplyEnv() error {
	var err error
	envString("RHOKP_BASE_URL", &c.BaseURL)
	envString("RHOKP_SOLR_HANDLER", &c.SolrHandler)
	err = multierr.Append(err, envInt("RHOKP_RAG_ROWS", &c.Rows))
	err = multierr.Append(err, envFloat("RHOKP_TIMEOUT_CONNECT", &c.TimeoutConnectSec))
	err = multierr.Append(err, envFloat("RHOKP_TIMEOUT_READ", &c.TimeoutReadSec))
	err = multierr.Append(err, envFloat("RHOKP_TIMEOUT_POOL", &c.TimeoutPoolSec))
	err = multierr.Append(err, envInt("RHOKP_RETRIES", &c.Retries))
	if raw, ok := os.LookupEnv("RHOKP_VERIFY_SSL"); ok {
		c.VerifySSL = ParseTLSVerify(raw)
	}
	err = multierr.Append(err, envInt("RHOKP_MAX_QUERY_LENGTH", &c.MaxQueryLength))
	err = multierr.Append(err, envInt("RHOKP_MAX_CONTEXT_CHARS", &c.MaxContextChars))
	err = multierr.Append(err, envInt("RHOKP_CIRCUIT_FAILURE_THRESHOLD", &c.CircuitFailureThreshold))
	err = multierr.Append(err, envFloat("RHOKP_CIRCUIT_RESET_TIMEOUT", &c.CircuitResetTimeoutSec))
	err = multierr.Append(err, envInt("RHOKP_RETRY_MAX_ATTEMPTS", &c.RetryMaxAttempts))
	err = multierr.Append(err, envFloat("RHOKP_RETRY_BACKOFF_BASE", &c.RetryBackoffBaseSec))
	err = multierr.Append(err, envFloat("RHOKP_RETRY_BACKOFF_MAX", &c.RetryBackoffMaxSec))
	err = multierr.Append(err, envFloat("RHOKP_CACHE_TTL", &c.CacheTTLSec))
	err = multierr.Append(err, envInt("RHOKP_CACHE_MAX_ENTRIES", &c.CacheMaxEntries))
	if raw, ok := os.LookupEnv("RHOKP_EXPAND_SYNONYMS"); ok {
		c.ExpandSynonyms = ParseTLSVerify(raw).Enabled
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks every constraint and reports all violations at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.BaseURL != "", "base_url must be a non-empty string")
	check(c.SolrHandler != "", "solr_handler must be a non-empty string")
	check(c.Rows >= 1 && c.Rows <= MaxRows, "rows must be 1-%d, got %d", MaxRows, c.Rows)
	check(c.TimeoutConnectSec > 0, "timeout_connect must be > 0, got %g", c.TimeoutConnectSec)
	check(c.TimeoutReadSec > 0, "timeout_read must be > 0, got %g", c.TimeoutReadSec)
	check(c.TimeoutPoolSec > 0, "timeout_pool must be > 0, got %g", c.TimeoutPoolSec)
	check(c.Retries >= 0, "retries must be >= 0, got %d", c.Retries)
	check(c.MaxQueryLength >= 1, "max_query_length must be >= 1, got %d", c.MaxQueryLength)
	check(c.MaxContextChars >= 0, "max_context_chars must be >= 0, got %d", c.MaxContextChars)
	check(c.CircuitFailureThreshold >= 0,
		"circuit_failure_threshold must be >= 0, got %d", c.CircuitFailureThreshold)
	check(c.CircuitResetTimeoutSec > 0, "circuit_reset_timeout must be > 0, got %g", c.CircuitResetTimeoutSec)
	check(c.RetryMaxAttempts >= 0, "retry_max_attempts must be >= 0, got %d", c.RetryMaxAttempts)
	check(c.RetryBackoffBaseSec > 0, "retry_backoff_base must be > 0, got %g", c.RetryBackoffBaseSec)
	check(c.RetryBackoffMaxSec > 0, "retry_backoff_max must be > 0, got %g", c.RetryBackoffMaxSec)
	check(c.CacheTTLSec >= 0, "cache_ttl must be >= 0, got %g", c.CacheTTLSec)
	check(c.CacheMaxEntries >= 0, "cache_max_entries must be >= 0, got %d", c.CacheMaxEntries)

	if err == nil {
		return nil
	}
	msgs := make([]string, 0, len(multierr.Errors(err)))
	for _, e := range multierr.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
}

// TimeoutConnect returns the TCP connect timeout.
func (c *Config) TimeoutConnect() time.Duration { return seconds(c.TimeoutConnectSec) }

// TimeoutRead returns the read timeout.
func (c *Config) TimeoutRead() time.Duration { return seconds(c.TimeoutReadSec) }

// TimeoutPool returns the connection pool acquisition timeout.
func (c *Config) TimeoutPool() time.Duration { return seconds(c.TimeoutPoolSec) }

// CircuitResetTimeout returns how long an open circuit waits before a probe.
func (c *Config) CircuitResetTimeout() time.Duration { return seconds(c.CircuitResetTimeoutSec) }

// RetryBackoffBase returns the first retry delay.
func (c *Config) RetryBackoffBase() time.Duration { return seconds(c.RetryBackoffBaseSec) }

// RetryBackoffMax returns the retry delay cap.
func (c *Config) RetryBackoffMax() time.Duration { return seconds(c.RetryBackoffMaxSec) }

// CacheTTL returns the result cache TTL; zero disables the cache.
func (c *Config) CacheTTL() time.Duration { return seconds(c.CacheTTLSec) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("environment variable %s=%q is not a valid integer", key, raw)
	}
	*dst = v
	return nil
}

func envFloat(key string, dst *float64) error {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("environment variable %s=%q is not a valid number", key, raw)
	}
	*dst = v
	return nil
}

// TLSVerify selects TLS verification: on, off, or on against a custom CA bundle.
type TLSVerify struct {
	Enabled  bool
	CABundle string
}

// ParseTLSVerify accepts true/1/yes, false/0/no (case-insensitive) or a CA bundle path.
func ParseTLSVerify(raw string) TLSVerify {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return TLSVerify{Enabled: true}
	case "false", "0", "no":
		return TLSVerify{Enabled: false}
	}
	return TLSVerify{Enabled: true, CABundle: raw}
}

// UnmarshalYAML accepts a boolean or a CA bundle path.
func (v *TLSVerify) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.New("verify_ssl must be a boolean or a CA bundle path")
	}
	*v = ParseTLSVerify(node.Value)
	return nil
}

func (v TLSVerify) String() string {
	if v.CABundle != "" {
		return v.CABundle
	}
	return strconv.FormatBool(v.Enabled)
}
