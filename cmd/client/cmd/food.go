package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nutrilog/cmd/client/cmd/types"
	"nutrilog/internal/app/client"
)

var foodLimit int

var foodCmd = &cobra.Command{
	Use:   "food <подстрока>",
	Short: "Поиск по справочнику продуктов",
	Long: `Поиск продуктов в локальном справочнике. Справочник подтягивается
с сервера при инициализации и доступен без сети.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		svc, err := app.Service()
		if err != nil {
			return err
		}

		items, err := svc.SearchFood(cmd.Context(), args[0], foodLimit)
		if err != nil {
			return fmt.Errorf("ошибка поиска: %w", err)
		}

		if len(items) == 0 {
			fmt.Println("Ничего не найдено")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tККАЛ/100Г")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%.0f\n", item.ID, item.Name, item.KcalPer100g)
		}
		return w.Flush()
	},
}

func init() {
	foodCmd.Flags().IntVar(&foodLimit, "limit", 20, "максимум результатов")
}
