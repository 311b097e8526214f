// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Forecast ForecastConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	AlertsTTLSecs  int
}

// ForecastConfig tunes the forecasting core.
type ForecastConfig struct {
	LookbackDays       int     // sales history window fed to the model
	MinHistoryDays     int     // minimum span of recorded sales required
	Workers            int     // batch fan-out limit
	ProductTimeoutSecs int     // per-product budget during batch runs
	EvalWindowDays     int     // accuracy aggregation window
	SafetyMargin       float64 // reorder quantity buffer over 7-day demand
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockcast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_ALERTS_TTL_SECONDS", 60)
		viper.SetDefault("FORECAST_LOOKBACK_DAYS", 90)
		viper.SetDefault("FORECAST_MIN_HISTORY_DAYS", 7)
		viper.SetDefault("FORECAST_WORKERS", 4)
		viper.SetDefault("FORECAST_PRODUCT_TIMEOUT_SECONDS", 30)
		viper.SetDefault("FORECAST_EVAL_WINDOW_DAYS", 30)
		viper.SetDefault("FORECAST_SAFETY_MARGIN", 1.2)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				AlertsTTLSecs: viper.GetInt("CACHE_ALERTS_TTL_SECONDS"),
			},
			Forecast: ForecastConfig{
				LookbackDays:       viper.GetInt("FORECAST_LOOKBACK_DAYS"),
				MinHistoryDays:     viper.GetInt("FORECAST_MIN_HISTORY_DAYS"),
				Workers:            viper.GetInt("FORECAST_WORKERS"),
				ProductTimeoutSecs: viper.GetInt("FORECAST_PRODUCT_TIMEOUT_SECONDS"),
				EvalWindowDays:     viper.GetInt("FORECAST_EVAL_WINDOW_DAYS"),
				SafetyMargin:       viper.GetFloat64("FORECAST_SAFETY_MARGIN"),
			},
		}
	})

	return instance
}
