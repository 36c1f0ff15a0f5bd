package settings

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nutrilog/internal/domain/settings"
)

var (
	setDaily   int
	setWeekly  int
	setMonthly int
	setPeriod  string
)

var SetCmd = &cobra.Command{
	Use:   "set",
	Short: "Изменить лимиты",
	Long: `Изменение лимитов. Незаданные флаги сохраняют текущие значения.
Период отслеживания: daily, weekly или monthly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		cfg, err := svc.GetSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения настроек: %w", err)
		}

		if cmd.Flags().Changed("daily") {
			cfg.DailyLimit = setDaily
		}
		if cmd.Flags().Changed("weekly") {
			cfg.WeeklyLimit = setWeekly
		}
		if cmd.Flags().Changed("monthly") {
			cfg.MonthlyLimit = setMonthly
		}
		if cmd.Flags().Changed("period") {
			cfg.TrackingPeriod = setPeriod
		}

		if err := svc.SaveSettings(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("ошибка сохранения настроек: %w", err)
		}

		color.Green("Настройки сохранены")
		return nil
	},
}

func init() {
	SetCmd.Flags().IntVar(&setDaily, "daily", 0, "дневной лимит, ккал")
	SetCmd.Flags().IntVar(&setWeekly, "weekly", 0, "недельный лимит, ккал")
	SetCmd.Flags().IntVar(&setMonthly, "monthly", 0, "месячный лимит, ккал")
	SetCmd.Flags().StringVar(&setPeriod, "period", settings.PeriodDaily, "период отслеживания")
}
