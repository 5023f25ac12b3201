package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DBURL          string `mapstructure:"DB_URL"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	MQTTBroker     string `mapstructure:"MQTT_BROKER"`
	MQTTClientID   string `mapstructure:"MQTT_CLIENT_ID"`
	HomeID         string `mapstructure:"HOME_ID"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	EvalIntervalMS int    `mapstructure:"EVAL_INTERVAL_MS"`
}

// EvalInterval returns the rule evaluation tick period.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.EvalIntervalMS) * time.Millisecond
}

// LoadConfig reads configuration from file, .env, or env vars.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("EVAL_INTERVAL_MS", 30000)
	viper.SetDefault("HTTP_ADDR", ":5069")
	viper.SetDefault("MQTT_CLIENT_ID", "powermesh-backend")

	cfg := &Config{
		DBURL:          viper.GetString("DB_URL"),
		RedisAddr:      viper.GetString("REDIS_ADDR"),
		MQTTBroker:     viper.GetString("MQTT_BROKER"),
		MQTTClientID:   viper.GetString("MQTT_CLIENT_ID"),
		HomeID:         viper.GetString("HOME_ID"),
		HTTPAddr:       viper.GetString("HTTP_ADDR"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		EvalIntervalMS: viper.GetInt("EVAL_INTERVAL_MS"),
	}
	return cfg, nil
}
