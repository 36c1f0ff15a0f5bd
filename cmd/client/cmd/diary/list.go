package diary

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/record"
)

var (
	listToday bool
	listLimit int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список записей дневника",
	Long: `Просмотр записей. Флаг --today показывает записи за сегодня,
при доступном сервере они сливаются с серверными.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		var entries []*entry.Entry
		if listToday {
			entries, err = svc.TodayEntries(cmd.Context())
		} else {
			entries, err = svc.ListEntries(cmd.Context(), entry.Filter{Limit: listLimit})
		}
		if err != nil {
			return fmt.Errorf("ошибка получения записей: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("Записей нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tПРОДУКТ\tГРАММЫ\tВРЕМЯ\tСТАТУС")
		for _, e := range entries {
			name := e.FoodName
			if name == "" {
				name = e.FoodID
			}
			status := "синхронизирована"
			if record.IsLocalID(e.ID) {
				status = "ожидает отправки"
			}
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%s\t%s\n",
				e.ID, name, e.PortionGrams, e.LoggedAt.Format(time.RFC3339), status)
		}
		return w.Flush()
	},
}

func init() {
	ListCmd.Flags().BoolVar(&listToday, "today", false, "записи за сегодня")
	ListCmd.Flags().IntVar(&listLimit, "limit", 50, "максимум записей")
}
