package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// envPrefix namespaces untagged fields. Tagged fields are also read without it.
const envPrefix = "shortlink"

const DefaultAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var defaultBlacklistedDomains = []string{"malware.com", "phishing.com", "spam.com"}

type Config struct {
	Env                string   `yaml:"env" envconfig:"ENV"`
	BaseURL            string   `yaml:"base_url" envconfig:"BASE_URL"`
	BlacklistedDomains []string `yaml:"blacklisted_domains" envconfig:"BLACKLISTED_DOMAINS"`
	HTTPServer         `yaml:"http_server"`
	Postgres           `yaml:"postgres"`
	Store              `yaml:"store"`
	Cache              `yaml:"cache"`
	ShortCode          `yaml:"short_code"`
}

type HTTPServer struct {
	Port           int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8828,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user" envconfig:"POSTGRES_USER"`
	Password        string        `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	Host            string        `yaml:"host" envconfig:"POSTGRES_HOST"`
	Port            int           `yaml:"port" envconfig:"POSTGRES_PORT"`
	DB              string        `yaml:"db" envconfig:"POSTGRES_DB"`
	SSLMode         string        `yaml:"sslmode" envconfig:"POSTGRES_SSLMODE"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Store bounds the durable store calls and controls record expiry.
type Store struct {
	OpTimeout     time.Duration `yaml:"op_timeout" envconfig:"STORE_OP_TIMEOUT"`
	RecordTTL     time.Duration `yaml:"record_ttl" envconfig:"RECORD_TTL"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

var defaultStore = Store{
	OpTimeout:     3 * time.Second,
	RecordTTL:     7 * 24 * time.Hour,
	PurgeInterval: time.Hour,
}

type Cache struct {
	Enabled   bool          `yaml:"enabled" envconfig:"REDIS_ENABLED"`
	Addr      string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"`
	OpTimeout time.Duration `yaml:"op_timeout" envconfig:"CACHE_OP_TIMEOUT"`
	TTL       time.Duration `yaml:"ttl" envconfig:"CACHE_TTL"`
}

var defaultCache = Cache{
	Enabled:   true,
	Addr:      "localhost:6379",
	OpTimeout: 100 * time.Millisecond,
	TTL:       24 * time.Hour,
}

type ShortCode struct {
	Length      int    `yaml:"length"`
	Alphabet    string `yaml:"alphabet"`
	BatchSize   int    `yaml:"batch_size"`
	MaxAttempts int    `yaml:"max_attempts"`
}

var defaultShortCode = ShortCode{
	Length:      7,
	Alphabet:    DefaultAlphabet,
	BatchSize:   5,
	MaxAttempts: 5,
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to process env: %w", op, err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.BlacklistedDomains = normalizeDomains(cfg.BlacklistedDomains)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	if c.BaseURL == "" {
		return errors.New("base url cannot be empty")
	}
	if c.ShortCode.Length <= 0 {
		return errors.New("short code length must be positive")
	}
	if c.ShortCode.Alphabet == "" {
		return errors.New("short code alphabet cannot be empty")
	}
	if c.ShortCode.BatchSize <= 0 || c.ShortCode.MaxAttempts <= 0 {
		return errors.New("short code batch size and max attempts must be positive")
	}
	if c.Store.OpTimeout <= 0 || c.Store.RecordTTL <= 0 || c.Store.PurgeInterval <= 0 {
		return errors.New("store timeouts must be positive")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache addr cannot be empty when cache is enabled")
	}
	if c.Cache.OpTimeout <= 0 || c.Cache.TTL <= 0 {
		return errors.New("cache timeouts must be positive")
	}

	return nil
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8828"
	cfg.BlacklistedDomains = append([]string(nil), defaultBlacklistedDomains...)
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Store = defaultStore
	cfg.Cache = defaultCache
	cfg.ShortCode = defaultShortCode
}
