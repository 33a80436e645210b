package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/centic-tools/centic-ctl/internal/logging"
	"github.com/centic-tools/centic-ctl/internal/schedule"
)

const (
	DefaultBaseURL        = "https://develop.centic.io/ctp-api/centic-points"
	DefaultConfigFile     = "centic.toml"
	DefaultTokensFile     = "tokens.txt"
	DefaultProxyFile      = "proxy.txt"
	DefaultAuditDir       = "audit"
	DefaultJitterMin      = time.Second
	DefaultJitterMax      = 3 * time.Second
	DefaultFailurePause   = time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultReferralCode   = "eJwFwQEBACAIA7BKgKgQ53jJYHw3eShrp_kAkcJlJ3FTJYydjdi4CJ31AQtpDFY="
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Duration is a time.Duration that reads and writes as a TOML string ("1s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the claimer configuration, loaded from centic.toml
type Config struct {
	BaseURL        string   `toml:"base_url"`
	TokensFile     string   `toml:"tokens_file"`
	ProxyFile      string   `toml:"proxy_file"`
	Schedule       string   `toml:"schedule"`
	JitterMin      Duration `toml:"jitter_min"`
	JitterMax      Duration `toml:"jitter_max"`
	FailurePause   Duration `toml:"failure_pause"`
	RequestTimeout Duration `toml:"request_timeout"`
	ReferralCode   string   `toml:"referral_code"` // Empty disables the invite call
	UserAgent      string   `toml:"user_agent"`
	MetricsAddr    string   `toml:"metrics_addr"` // Empty disables the metrics listener
	AuditLog       bool     `toml:"audit_log"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		TokensFile:     DefaultTokensFile,
		ProxyFile:      DefaultProxyFile,
		Schedule:       schedule.DefaultExpression,
		JitterMin:      Duration{DefaultJitterMin},
		JitterMax:      Duration{DefaultJitterMax},
		FailurePause:   Duration{DefaultFailurePause},
		RequestTimeout: Duration{DefaultRequestTimeout},
		ReferralCode:   DefaultReferralCode,
		UserAgent:      DefaultUserAgent,
	}
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https (got %q)", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url has no host (got %q)", c.BaseURL)
	}

	if strings.TrimSpace(c.TokensFile) == "" {
		return fmt.Errorf("tokens_file is required")
	}

	if _, err := schedule.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	if c.JitterMin.Duration < 0 || c.JitterMax.Duration < 0 {
		return fmt.Errorf("jitter_min and jitter_max must not be negative")
	}
	if c.JitterMax.Duration < c.JitterMin.Duration {
		return fmt.Errorf("jitter_max (%s) must not be less than jitter_min (%s)", c.JitterMax, c.JitterMin)
	}
	if c.FailurePause.Duration < 0 {
		return fmt.Errorf("failure_pause must not be negative")
	}
	if c.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	return nil
}

// Jitter returns the claim delay range
func (c *Config) Jitter() schedule.Jitter {
	return schedule.Jitter{Min: c.JitterMin.Duration, Max: c.JitterMax.Duration}
}

// Paths holds the resolved file locations
type Paths struct {
	DataDir    string
	ConfigFile string
	TokensFile string
	ProxyFile  string
	AuditDir   string
}

// ResolvePaths resolves the configured files against dataDir. Relative
// paths cannot escape dataDir.
func ResolvePaths(dataDir, configFile string, cfg *Config) (*Paths, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if configFile == "" {
		configFile = DefaultConfigFile
	}

	p := &Paths{DataDir: dataDir}
	var err error
	if p.ConfigFile, err = ResolvePath(dataDir, configFile); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if cfg == nil {
		return p, nil
	}
	if p.TokensFile, err = ResolvePath(dataDir, cfg.TokensFile); err != nil {
		return nil, fmt.Errorf("tokens_file: %w", err)
	}
	if cfg.ProxyFile != "" {
		if p.ProxyFile, err = ResolvePath(dataDir, cfg.ProxyFile); err != nil {
			return nil, fmt.Errorf("proxy_file: %w", err)
		}
	}
	if p.AuditDir, err = ResolvePath(dataDir, DefaultAuditDir); err != nil {
		return nil, fmt.Errorf("audit dir: %w", err)
	}
	return p, nil
}

// ResolvePath returns name unchanged when absolute, otherwise joins it to
// baseDir without letting ".." or symlinks escape baseDir.
func ResolvePath(baseDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}
	return securejoin.SecureJoin(absBase, name)
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			logging.Debug("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		logging.Warn("ignoring unknown config keys", "path", path, "keys", strings.Join(keys, ","))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	if err := Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
