package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние клиента",
	Long:  `Сводка: пользователь, доступность сервера, очередь синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("=== NutriLog ===")
		fmt.Printf("Сервер: %s\n", cfg.ServerAddress)

		if app.UserID() == "" {
			color.Yellow("Вход не выполнен. Выполните: nutrilog auth login")
			return nil
		}
		fmt.Printf("Пользователь: %s\n", app.UserID())

		if app.Connectivity().TrulyOnline(cmd.Context()) {
			color.Green("Сервер доступен")
		} else {
			color.Yellow("Сервер недоступен, работаем оффлайн")
		}

		svc, err := app.Service()
		if err != nil {
			return err
		}
		pending, err := svc.PendingCount(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Ожидает синхронизации: %d\n", pending)
		return nil
	},
}
