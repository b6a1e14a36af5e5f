package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable pool_max_conns=10",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type FxAPI struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type Scheduler struct {
	DispatchIntervalSec   int `mapstructure:"dispatch_interval_seconds"`
	RefreshIntervalSec    int `mapstructure:"refresh_interval_seconds"`
	SweepIntervalSec      int `mapstructure:"sweep_interval_seconds"`
	ProcessingTimeoutSec  int `mapstructure:"processing_timeout_seconds"`
	RetentionHours        int `mapstructure:"retention_hours"`
	FxPullIntervalMinutes int `mapstructure:"fx_pull_interval_minutes"`
}

type Workers struct {
	NumWorkers  int `mapstructure:"num_workers"`
	ClaimBatch  int `mapstructure:"claim_batch"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type Budgets struct {
	DefaultLimit int            `mapstructure:"default_limit"`
	Limits       map[string]int `mapstructure:"limits"`
}

type Providers struct {
	// Gateway base URL per provider name, e.g. providers.gateways.stockx.
	Gateways map[string]string `mapstructure:"gateways"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	HTTPServer HTTPServer `mapstructure:"http_server"`
	DbServer   DbServer   `mapstructure:"db_server"`
	HTTPClient HTTPClient `mapstructure:"http_client"`
	FxAPI      FxAPI      `mapstructure:"fx_api"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Workers    Workers    `mapstructure:"workers"`
	Budgets    Budgets    `mapstructure:"budgets"`
	Providers  Providers  `mapstructure:"providers"`
	Logging    Logging    `mapstructure:"logging"`
}

func Init() (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	viper.SetConfigFile("config.yaml")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	viper.SetDefault("db_server.max_conns", 10)
	viper.SetDefault("http_client.timeout_seconds", 10)
	viper.SetDefault("scheduler.dispatch_interval_seconds", 15)
	viper.SetDefault("scheduler.refresh_interval_seconds", 60)
	viper.SetDefault("scheduler.sweep_interval_seconds", 120)
	viper.SetDefault("scheduler.processing_timeout_seconds", 600)
	viper.SetDefault("scheduler.retention_hours", 168)
	viper.SetDefault("scheduler.fx_pull_interval_minutes", 1440)
	viper.SetDefault("workers.num_workers", 5)
	viper.SetDefault("workers.claim_batch", 20)
	viper.SetDefault("workers.max_attempts", 3)
	viper.SetDefault("budgets.default_limit", 100)
	viper.SetDefault("logging.level", "info")

	// db server env vars
	_ = viper.BindEnv("db_server.host", "DB_HOST")
	_ = viper.BindEnv("db_server.port", "DB_PORT")
	_ = viper.BindEnv("db_server.user", "DB_USER")
	_ = viper.BindEnv("db_server.pass", "DB_PASS")
	_ = viper.BindEnv("db_server.name", "DB_NAME")
	_ = viper.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// http client env vars
	_ = viper.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	// fx api env vars
	_ = viper.BindEnv("fx_api.base_url", "FX_API_BASE_URL")
	_ = viper.BindEnv("fx_api.api_key", "FX_API_KEY")

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
