package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultEnv        = "local"
)

type Config struct {
	Env        string
	RunAddress string
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("APP_ENV", defaultEnv)

	return &Config{
		Env:        viper.GetString("APP_ENV"),
		RunAddress: viper.GetString("RUN_ADDRESS"),
	}
}
