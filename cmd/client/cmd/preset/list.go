package preset

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nutrilog/internal/domain/record"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список заготовок",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		presets, err := svc.ListPresets(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения заготовок: %w", err)
		}

		if len(presets) == 0 {
			fmt.Println("Заготовок нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tИМЯ\tПРОДУКТ\tГРАММЫ\tСТАТУС")
		for _, p := range presets {
			status := "синхронизирована"
			if record.IsLocalID(p.ID) {
				status = "ожидает отправки"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n",
				p.ID, p.Name, p.FoodID, p.PortionGrams, status)
		}
		return w.Flush()
	},
}
