package preset

import (
	"fmt"

	"github.com/spf13/cobra"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить заготовку",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		if err := svc.DeletePreset(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления заготовки: %w", err)
		}

		fmt.Println("Заготовка удалена")
		return nil
	},
}
