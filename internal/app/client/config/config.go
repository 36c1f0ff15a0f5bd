// Package config загружает конфигурацию клиента из окружения и .env файла.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Окружения приложения.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".nutrilog"

	// Политика синхронизации по умолчанию. Потолки повторов и интервал -
	// настраиваемые значения, а не константы: обоснованных чисел у них нет,
	// поэтому их можно переопределить из окружения.
	defaultSyncIntervalSeconds = 30
	defaultSyncSettleSeconds   = 2
	defaultMaxRetries          = 5
	defaultMaxAuthRetries      = 2
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	KeystorePath  string `mapstructure:"keystore_path"`
	DataPath      string `mapstructure:"data_path"`
	// LegacyTokenPath - путь старого незашифрованного файла токена.
	// Нужен только для одноразовой миграции в хранилище токенов.
	LegacyTokenPath string `mapstructure:"legacy_token_path"`

	SyncInterval    time.Duration `mapstructure:"-"`
	SyncSettleDelay time.Duration `mapstructure:"-"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MaxAuthRetries  int           `mapstructure:"max_auth_retries"`

	EnableTLS  bool   `mapstructure:"enable_tls"`
	CACertPath string `mapstructure:"ca_cert_path"`
}

// MustLoad загружает конфигурацию клиента. Паникует при некорректных
// значениях - запускаться с битой конфигурацией смысла нет.
func MustLoad() *Config {
	// Загружаем .env файл если существует (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncIntervalSeconds)
	viper.SetDefault("SYNC_SETTLE_SECONDS", defaultSyncSettleSeconds)
	viper.SetDefault("SYNC_MAX_RETRIES", defaultMaxRetries)
	viper.SetDefault("SYNC_MAX_AUTH_RETRIES", defaultMaxAuthRetries)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	config := &Config{
		Env:             viper.GetString("APP_ENV"),
		ServerAddress:   viper.GetString("SERVER_ADDRESS"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		ConfigDir:       configDir,
		KeystorePath:    filepath.Join(configDir, ".keystore"),
		DataPath:        filepath.Join(configDir, "nutrilog.db"),
		LegacyTokenPath: filepath.Join(configDir, "token"),
		SyncInterval:    time.Duration(viper.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		SyncSettleDelay: time.Duration(viper.GetInt("SYNC_SETTLE_SECONDS")) * time.Second,
		MaxRetries:      viper.GetInt("SYNC_MAX_RETRIES"),
		MaxAuthRetries:  viper.GetInt("SYNC_MAX_AUTH_RETRIES"),
		EnableTLS:       viper.GetBool("ENABLE_TLS"),
		CACertPath:      viper.GetString("CA_CERT_PATH"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries должен быть положительным")
	}
	if c.MaxAuthRetries <= 0 {
		return fmt.Errorf("max_auth_retries должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
