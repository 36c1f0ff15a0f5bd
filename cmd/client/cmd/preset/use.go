package preset

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var UseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Создать запись дневника из заготовки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		e, err := svc.LogPreset(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка применения заготовки: %w", err)
		}

		color.Green("Запись добавлена из заготовки: %s", e.ID)
		return nil
	},
}
