package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	DBUrl      string `mapstructure:"DB_URL"`
	SecretKey  string `mapstructure:"SECRET_KEY"`
	ServerAddr string `mapstructure:"SERVER_ADDR"`

	// RateLimitBackend selects "memory" or "redis".
	RateLimitBackend string `mapstructure:"RATE_LIMIT_BACKEND"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUsername string `mapstructure:"MAIL_USERNAME"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	// UseFakeMail routes OTP mail to an in-memory sink for local runs.
	UseFakeMail bool `mapstructure:"USE_FAKE_MAIL"`
}

func LoadConfig() Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("RATE_LIMIT_BACKEND", "memory")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("MAIL_PORT", 587)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, using env variables only")
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatal("config unmarshal error:", err)
	}

	if c.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	return c
}
