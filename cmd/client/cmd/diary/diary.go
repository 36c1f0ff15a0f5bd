// Package diary содержит команды работы с записями дневника.
package diary

import (
	"fmt"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"

	"github.com/spf13/cobra"
)

var DiaryCmd = &cobra.Command{
	Use:   "log",
	Short: "Записи дневника питания",
	Long: `Добавление, просмотр и удаление записей дневника.

Записи сохраняются локально сразу; синхронизация с сервером идет фоном.`,
}

func init() {
	DiaryCmd.AddCommand(AddCmd)
	DiaryCmd.AddCommand(ListCmd)
	DiaryCmd.AddCommand(DeleteCmd)
}

func serviceFromContext(cmd *cobra.Command) (*client.Service, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app.Service()
}
