// Package preset содержит команды работы с заготовками.
package preset

import (
	"fmt"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"

	"github.com/spf13/cobra"
)

var PresetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Заготовки записей",
	Long: `Заготовки - именованные сочетания продукта и порции ("обед",
"утренний кофе"). Одной командой заготовка превращается в запись дневника.`,
}

func init() {
	PresetCmd.AddCommand(AddCmd)
	PresetCmd.AddCommand(ListCmd)
	PresetCmd.AddCommand(UseCmd)
	PresetCmd.AddCommand(DeleteCmd)
}

func serviceFromContext(cmd *cobra.Command) (*client.Service, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app.Service()
}
