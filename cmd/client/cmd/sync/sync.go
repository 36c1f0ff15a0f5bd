// Package sync содержит команду ручной синхронизации.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"
)

var showStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Ручной запуск прохода синхронизации: очередь отложенных мутаций
выталкивается на сервер, затем подтягиваются настройки.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if showStatus {
			return printStatus(cmd.Context(), app)
		}

		fmt.Println("=== Синхронизация ===")
		err := app.Sync(cmd.Context())
		switch {
		case errors.Is(err, client.ErrOffline):
			color.Yellow("Устройство оффлайн, синхронизация пропущена")
			return nil
		case errors.Is(err, client.ErrAlreadySyncing):
			fmt.Println("Синхронизация уже выполняется")
			return nil
		case errors.Is(err, client.ErrSyncAuthFailed):
			return fmt.Errorf("сессия недействительна, выполните вход: %w", err)
		case err != nil:
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		color.Green("Синхронизация завершена")
		return printStatus(cmd.Context(), app)
	},
}

func printStatus(ctx context.Context, app *client.App) error {
	syncMgr, err := app.SyncManager()
	if err != nil {
		return err
	}
	svc, err := app.Service()
	if err != nil {
		return err
	}

	stats := syncMgr.Stats()
	pending, err := svc.PendingCount(ctx)
	if err != nil {
		pending = 0
	}

	fmt.Printf("Проходов всего:      %d\n", stats.TotalSyncs)
	fmt.Printf("Отправлено мутаций:  %d\n", stats.TotalUploaded)
	fmt.Printf("Вытеснено мутаций:   %d\n", stats.TotalEvicted)
	fmt.Printf("Ошибок:              %d\n", stats.TotalErrors)
	fmt.Printf("В очереди:           %d\n", pending)
	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("Последний успех:     %s\n", stats.LastSuccessful.Format(time.RFC3339))
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&showStatus, "status", false, "показать статус без синхронизации")
}
