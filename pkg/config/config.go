package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Env          string        `mapstructure:"env"`
	Port         string        `mapstructure:"port"`
	DataStore    string        `mapstructure:"data_store"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`

	MongoDB  MongoDBConfig  `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Payment  PaymentConfig  `mapstructure:",squash"`
	Storage  StorageConfig  `mapstructure:",squash"`
	Mail     MailConfig     `mapstructure:",squash"`
	OpenAI   OpenAIConfig   `mapstructure:",squash"`
	Realtime RealtimeConfig `mapstructure:",squash"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"mongodb_uri"`
	Database string `mapstructure:"mongodb_database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"redis_address"`
	Password string `mapstructure:"redis_password"`
}

type PaymentConfig struct {
	StripeSecret string `mapstructure:"stripe_secret"`
	Currency     string `mapstructure:"payment_currency"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"gcs_bucket"`
}

type MailConfig struct {
	SendGridKey string `mapstructure:"sendgrid_api_key"`
	From        string `mapstructure:"mail_from"`
}

type OpenAIConfig struct {
	Endpoint       string `mapstructure:"azure_openai_endpoint"`
	APIKey         string `mapstructure:"azure_openai_api_key"`
	DeploymentName string `mapstructure:"azure_openai_deployment_name"`
}

type RealtimeConfig struct {
	QueueSize int `mapstructure:"event_queue_size"`
}

var defaults = map[string]any{
	"env":                          "development",
	"port":                         "8080",
	"data_store":                   StoreMongo,
	"store_timeout":                "5s",
	"cors_origins":                 "*",
	"mongodb_uri":                  "",
	"mongodb_database":             "pureview",
	"redis_address":                "",
	"redis_password":               "",
	"stripe_secret":                "",
	"payment_currency":             "eur",
	"gcs_bucket":                   "",
	"sendgrid_api_key":             "",
	"mail_from":                    "no-reply@pureview.shop",
	"azure_openai_endpoint":        "",
	"azure_openai_api_key":         "",
	"azure_openai_deployment_name": "",
	"event_queue_size":             256,
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DataStore {
	case StoreMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI is required when DATA_STORE=mongo")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown DATA_STORE %q", c.DataStore)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	if c.Realtime.QueueSize <= 0 {
		return errors.New("EVENT_QUEUE_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
