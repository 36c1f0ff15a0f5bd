package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nutrilog/cmd/client/cmd/types"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в аккаунт NutriLog",
	Long: `Аутентификация на сервере NutriLog.

Выданный токен сохраняется локально в зашифрованном хранилище
и используется фоновой синхронизацией.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Вход в NutriLog ===")
		fmt.Println()

		fmt.Print("Логин: ")
		var login string
		_, _ = fmt.Scanln(&login)

		fmt.Print("Пароль: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		resp, err := app.Login(cmd.Context(), login, string(password))
		if err != nil {
			return fmt.Errorf("ошибка входа: %w", err)
		}

		state := &types.State{
			UserID:    resp.UserID,
			Login:     login,
			LastLogin: time.Now(),
		}
		if err := types.SaveState(app.Config(), state); err != nil {
			return fmt.Errorf("ошибка сохранения состояния: %w", err)
		}

		color.Green("Вход выполнен. Данные будут синхронизироваться автоматически.")
		return nil
	},
}
