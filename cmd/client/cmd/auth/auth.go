// Package auth содержит команды входа и выхода.
package auth

import (
	"fmt"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"

	"github.com/spf13/cobra"
)

var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Управление доступом",
	Long:  `Вход и выход из аккаунта NutriLog.`,
}

func init() {
	AuthCmd.AddCommand(LoginCmd)
	AuthCmd.AddCommand(LogoutCmd)
}

func appFromContext(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
