// Package settings содержит команды управления лимитами пользователя.
package settings

import (
	"fmt"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"

	"github.com/spf13/cobra"
)

var SettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Лимиты потребления",
	Long:  `Просмотр и изменение лимитов потребления и периода отслеживания.`,
}

func init() {
	SettingsCmd.AddCommand(ShowCmd)
	SettingsCmd.AddCommand(SetCmd)
}

func serviceFromContext(cmd *cobra.Command) (*client.Service, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app.Service()
}
