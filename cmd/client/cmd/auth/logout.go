package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"nutrilog/cmd/client/cmd/types"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из аккаунта",
	Long: `Выход из аккаунта: токен удаляется, ключи шифрования затираются.

Локальные данные остаются на устройстве в зашифрованном виде.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}
		if err := types.ClearState(app.Config()); err != nil {
			return fmt.Errorf("ошибка очистки состояния: %w", err)
		}

		fmt.Println("Выход выполнен.")
		return nil
	},
}
