package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PostgresConfig struct {
	URL          string `mapstructure:"url"`
	Host         string `mapstructure:"host"`
	Port         uint   `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	DbName       string `mapstructure:"db_name"`
	SSLMode      string `mapstructure:"ssl_mode"`
}

// DbURL returns URL when set, otherwise builds one from the parts.
func (p PostgresConfig) DbURL() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, url.QueryEscape(p.Password), p.Host, p.Port, p.DbName, p.SSLMode,
	)
}

type DatabaseConfig struct {
	Driver     string         `mapstructure:"driver"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	SQLitePath string         `mapstructure:"sqlite_path"`
}

type JwtConfig struct {
	TokenLifetime  time.Duration `mapstructure:"token_lifetime"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type GameConfig struct {
	MaxSize      int     `mapstructure:"max_size"`
	MaxMineRatio float64 `mapstructure:"max_mine_ratio"`
}

type Config struct {
	Mode     string         `mapstructure:"mode"`
	Addr     string         `mapstructure:"addr"`
	Domain   string         `mapstructure:"domain"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Jwt      JwtConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "development")
	v.SetDefault("addr", ":8000")
	v.SetDefault("domain", "localhost")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.sqlite_path", "data/mines.db")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.password_file", "")
	v.SetDefault("database.postgres.db_name", "mines")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("jwt.token_lifetime", "720h")
	v.SetDefault("jwt.private_key_path", "")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("game.max_size", 50)
	v.SetDefault("game.max_mine_ratio", 0.9)
}

// Load reads the JSON config at path; a missing file leaves the defaults.
// Every key can be overridden from the environment with the MINES_ prefix,
// e.g. MINES_DATABASE_DRIVER.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MINES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}
	pg := &config.Database.Postgres
	if pg.Password == "" && pg.PasswordFile != "" {
		data, err := os.ReadFile(pg.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read from password file: %w", err)
		}
		pg.Password = strings.TrimSpace(string(data))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Game.MaxSize <= 0 {
		return fmt.Errorf("game.max_size must be positive")
	}
	if c.Game.MaxMineRatio <= 0 || c.Game.MaxMineRatio > 1 {
		return fmt.Errorf("game.max_mine_ratio must be in (0, 1]")
	}
	return nil
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":                 c.Mode,
		"addr":                 c.Addr,
		"domain":               c.Domain,
		"log_file":             c.Log.File,
		"db_driver":            c.Database.Driver,
		"pg_host":              c.Database.Postgres.Host,
		"pg_port":              c.Database.Postgres.Port,
		"pg_user":              c.Database.Postgres.User,
		"pg_db_name":           c.Database.Postgres.DbName,
		"sqlite_path":          c.Database.SQLitePath,
		"jwt_token_lifetime":   c.Jwt.TokenLifetime.String(),
		"jwt_private_key_path": c.Jwt.PrivateKeyPath,
		"jwt_public_key_path":  c.Jwt.PublicKeyPath,
		"game_max_size":        c.Game.MaxSize,
		"game_max_mine_ratio":  c.Game.MaxMineRatio,
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return c.Mode != "production"
}

func (c Config) HttpCookieSameSite() http.SameSite {
	if c.Development() {
		return http.SameSiteNoneMode
	} else {
		return http.SameSiteStrictMode
	}
}
