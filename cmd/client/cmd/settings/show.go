package settings

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Показать текущие лимиты",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		cfg, err := svc.GetSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения настроек: %w", err)
		}

		fmt.Printf("Период отслеживания: %s\n", cfg.TrackingPeriod)
		fmt.Printf("Дневной лимит:       %d ккал\n", cfg.DailyLimit)
		fmt.Printf("Недельный лимит:     %d ккал\n", cfg.WeeklyLimit)
		fmt.Printf("Месячный лимит:      %d ккал\n", cfg.MonthlyLimit)
		return nil
	},
}
