package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Dispatch  DispatchConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// DispatchConfig controls the auto-send cycle.
type DispatchConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	BatchDelay       time.Duration `mapstructure:"batch_delay"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
	CronSpec         string        `mapstructure:"cron_spec"`
	SettingsCacheTTL time.Duration `mapstructure:"settings_cache_ttl"`
}

type RetentionConfig struct {
	DeliveryRecordDays int           `mapstructure:"delivery_record_days"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("dispatch.batch_size", 50)
	viper.SetDefault("dispatch.batch_delay", 2*time.Second)
	viper.SetDefault("dispatch.send_timeout", 10*time.Second)
	viper.SetDefault("dispatch.cron_spec", "0 * * * *")
	viper.SetDefault("dispatch.settings_cache_ttl", 5*time.Minute)
	viper.SetDefault("retention.delivery_record_days", 90)
	viper.SetDefault("retention.sweep_interval", 12*time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
