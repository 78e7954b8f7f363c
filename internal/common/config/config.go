package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EnvProd = "prod"
	EnvTest = "test"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"prod" env-upd:""`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" env-upd:""`
	// LogEncoding is "json" or "console". Empty means json in prod and console elsewhere.
	LogEncoding string `yaml:"log_encoding" env:"LOG_ENCODING" env-upd:""`

	HTTP     HTTP     `yaml:"http"`
	Upbit    Upbit    `yaml:"upbit"`
	Ledger   Ledger   `yaml:"ledger"`
	Postgres Postgres `yaml:"postgres"`

	Bot Bot `yaml:"bot"`
}

type HTTP struct {
	Addr         string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080" env-upd:""`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s" env-upd:""`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s" env-upd:""`
}

type Upbit struct {
	BaseURL        string        `yaml:"base_url" env:"UPBIT_BASE_URL" env-default:"https://api.upbit.com" env-upd:""`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"UPBIT_REQUEST_TIMEOUT" env-default:"5s" env-upd:""`
	Quote          string        `yaml:"quote" env:"UPBIT_QUOTE" env-default:"KRW" env-upd:""`
}

type Ledger struct {
	OpeningBalance string `yaml:"opening_balance" env:"LEDGER_OPENING_BALANCE" env-default:"10000000" env-upd:""`
}

// Postgres is optional: the journal is kept in memory when Host is empty.
type Postgres struct {
	Database string `yaml:"database" env:"POSTGRES_DATABASE" env-upd:""`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-upd:""`
	Schema   string `yaml:"schema" env:"POSTGRES_SCHEMA" env-default:"upbit_paper" env-upd:""`
	Username string `yaml:"username" env:"POSTGRES_USER" env-upd:""`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-upd:""`
	Port     int64  `yaml:"port" env:"POSTGRES_PORT" env-default:"5432" env-upd:""`
}

// Bot is optional: the telegram surface is disabled when APIKey is empty.
type Bot struct {
	APIKey         string        `yaml:"api_key" env:"BOT_API_KEY" env-upd:""`
	Timeout        time.Duration `yaml:"timeout" env:"BOT_TIMEOUT" env-default:"10s" env-upd:""`
	DictionaryPath string        `yaml:"dictionary_path" env:"BOT_DICTIONARY_PATH" env-default:"dictionary.json" env-upd:""`
	AllowedChats   []int64       `yaml:"allowed_chats" env:"BOT_ALLOWED_CHATS" env-separator:"," env-upd:""`
}

func (c *Config) PostgresEnabled() bool {
	return c.Postgres.Host != ""
}

func (c *Config) BotEnabled() bool {
	return c.Bot.APIKey != ""
}

func (c *Config) OpeningBalance() (decimal.Decimal, error) {
	balance, err := decimal.NewFromString(c.Ledger.OpeningBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger.opening_balance: %w", err)
	}

	return balance, nil
}

// GetPostgresURL points the connection at the configured schema via search_path.
func (c *Config) GetPostgresURL() string {
	q := url.Values{}
	q.Set("sslmode", "disable")

	if c.Postgres.Schema != "" {
		q.Set("search_path", c.Postgres.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.Username, c.Postgres.Password),
		Host:     fmt.Sprintf("%s:%d", c.Postgres.Host, c.Postgres.Port),
		Path:     "/" + c.Postgres.Database,
		RawQuery: q.Encode(),
	}

	return u.String()
}

func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("http.addr: %w", err))
	}

	if _, err := url.ParseRequestURI(c.Upbit.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("upbit.base_url: %w", err))
	}

	if c.Upbit.RequestTimeout <= 0 {
		errs = append(errs, errors.New("upbit.request_timeout must be positive"))
	}

	if balance, err := c.OpeningBalance(); err != nil {
		errs = append(errs, err)
	} else if balance.IsNegative() {
		errs = append(errs, fmt.Errorf("ledger.opening_balance must not be negative, got %s", balance))
	}

	switch c.LogEncoding {
	case "", log.EncodingJSON, log.EncodingConsole:
	default:
		errs = append(errs, fmt.Errorf("log_encoding must be %q or %q, got %q",
			log.EncodingJSON, log.EncodingConsole, c.LogEncoding))
	}

	if c.PostgresEnabled() && c.Postgres.Database == "" {
		errs = append(errs, errors.New("postgres.database is required when postgres.host is set"))
	}

	return errors.Join(errs...)
}

// GetConfig reads configPath, applies .env and the environment on top and exits on failure.
func GetConfig(configPath string) *Config {
	if configPath == "" {
		log.Fatal("config path is required")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env", zap.Error(err))
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatal(err.Error())
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		log.Fatal(err.Error())
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	return &cfg
}
