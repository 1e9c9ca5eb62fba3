package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	defaultIssuer   = "forgeharbor"
	defaultAudience = "forgeharbor-users"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Argon2   Argon2Config
	Log      LogConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port             int `env:"SERVER_PORT" envDefault:"8080"`
	RelyingPartyPort int `env:"RELYING_PARTY_PORT" envDefault:"8081"`
}

type DatabaseConfig struct {
	// DSN overrides the individual connection fields when set.
	DSN      string        `env:"DB_DSN"`
	Host     string        `env:"DB_HOST"`
	Port     int           `env:"DB_PORT" envDefault:"3306"`
	User     string        `env:"DB_USER"`
	Password string        `env:"DB_PASSWORD"`
	Name     string        `env:"DB_NAME"`
	Timeout  time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
}

type JWTConfig struct {
	Issuer          string        `env:"JWT_ISSUER"`
	Audience        string        `env:"JWT_AUDIENCE"`
	TTL             time.Duration `env:"JWT_TTL" envDefault:"1h"`
	PrivateKeyPaths []string      `env:"JWT_PRIVATE_KEY_PATHS" envSeparator:"," envDefault:"config/jwt-private.pem,jwt-private.pem"`
	PublicKeyPaths  []string      `env:"JWT_PUBLIC_KEY_PATHS" envSeparator:"," envDefault:"config/jwt-public.pem,jwt-public.pem"`
}

type Argon2Config struct {
	Time      uint32 `env:"ARGON2_TIME" envDefault:"1"`
	MemoryKiB uint32 `env:"ARGON2_MEMORY_KIB" envDefault:"65536"`
	Threads   uint8  `env:"ARGON2_THREADS" envDefault:"4"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads an optional .env file, binds the environment into a Config and
// validates it for a service that owns the user store. It is called once per
// process.
func Load() (*Config, error) {
	return load(true)
}

// LoadVerifier is Load for a service that only verifies tokens. Database
// settings are not required.
func LoadVerifier() (*Config, error) {
	return load(false)
}

func load(requireStore bool) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.resolve(requireStore); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve fills development defaults for required settings. Production
// refuses to start without them.
func (c *Config) resolve(requireStore bool) error {
	if c.IsProduction() {
		var missing []string
		if c.JWT.Issuer == "" {
			missing = append(missing, "JWT_ISSUER")
		}
		if c.JWT.Audience == "" {
			missing = append(missing, "JWT_AUDIENCE")
		}
		if requireStore && c.Database.DSN == "" && c.Database.Host == "" {
			missing = append(missing, "DB_DSN or DB_HOST")
		}
		if len(missing) > 0 {
			return fmt.Errorf("config: missing required settings for production: %v", missing)
		}
	} else {
		if c.JWT.Issuer == "" {
			c.JWT.Issuer = defaultIssuer
		}
		if c.JWT.Audience == "" {
			c.JWT.Audience = defaultAudience
		}
		if c.Database.DSN == "" && c.Database.Host == "" {
			c.Database.Host = "localhost"
			c.Database.User = "gouser"
			c.Database.Password = "gopass"
			c.Database.Name = "godb"
		}
	}

	if c.JWT.TTL <= 0 {
		return errors.New("config: JWT_TTL must be positive")
	}
	if requireStore {
		if c.Database.Timeout <= 0 {
			return errors.New("config: DB_TIMEOUT must be positive")
		}
		if _, err := c.Database.ConnectionString(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ConnectionString returns the MySQL DSN, preferring DB_DSN when present.
// parseTime is always on so DATETIME columns scan into time.Time.
func (d DatabaseConfig) ConnectionString() (string, error) {
	if d.DSN != "" {
		mc, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			return "", fmt.Errorf("config: invalid DB_DSN: %w", err)
		}
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}

	// refer to https://github.com/go-sql-driver/mysql/?tab=readme-ov-file#dsn-data-source-name
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.MultiStatements = true
	mc.Timeout = d.Timeout
	return mc.FormatDSN(), nil
}
