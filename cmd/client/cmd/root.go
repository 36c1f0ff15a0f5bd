package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"
	"nutrilog/internal/app/client/config"
	"nutrilog/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	debug     bool
	serverURL string
	offline   bool
)

var rootCmd = &cobra.Command{
	Use:   "nutrilog",
	Short: "NutriLog - дневник питания, работающий оффлайн",
	Long: `NutriLog - клиент дневника питания, рассчитанный на работу без сети.

Записи сохраняются локально в зашифрованном виде и синхронизируются
с сервером, когда он доступен. Потеря сети не теряет данные: мутации
встают в очередь и доезжают до сервера при следующей синхронизации.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if debug {
		cfg.Env = config.EnvLocal
	}

	log = logger.New(cfg.Env)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	if offline {
		app.SetOnline(false)
	}

	// Если пользователь уже входил, инициализируем клиент сразу, чтобы
	// командам не требовался повторный вход.
	if state, err := types.LoadState(cfg); err == nil && state.UserID != "" {
		if err := app.Initialize(cmd.Context(), state.UserID); err != nil {
			log.Warn("не удалось инициализировать клиент", "error", err)
		}
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".nutrilog"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	return config.MustLoad(), nil
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера NutriLog")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "работать без сети")
}
