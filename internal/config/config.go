package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Billfold"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"billfold"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	}

	OCR struct {
		// Base URL of the Tesseract sidecar service.
		URL string `envconfig:"OCR_URL" default:"http://localhost:8884"`
		// Number of pre-warmed recognition sessions kept ready.
		PoolSize int           `envconfig:"OCR_POOL_SIZE" default:"2"`
		Timeout  time.Duration `envconfig:"OCR_TIMEOUT" default:"45s"`
		// Downscale/grayscale hints passed to the sidecar. Recognition
		// output contract is unchanged either way.
		Grayscale bool `envconfig:"OCR_GRAYSCALE" default:"true"`
		MaxWidth  int  `envconfig:"OCR_MAX_WIDTH" default:"2000"`
	}

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY" required:"true"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	}

	Import struct {
		// End-to-end ceiling for the fused OCR+parse path of one file.
		Timeout time.Duration `envconfig:"IMPORT_TIMEOUT" default:"90s"`
		// Per-file upload size cap in bytes.
		MaxFileSize int64 `envconfig:"IMPORT_MAX_FILE_SIZE" default:"10485760"`
		// How many recent transactions are loaded for duplicate checks.
		// Older history is not consulted.
		RecentWindow int `envconfig:"IMPORT_RECENT_WINDOW" default:"500"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
