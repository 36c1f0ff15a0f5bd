package preset

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nutrilog/internal/domain/preset"
)

var (
	addName    string
	addFoodID  string
	addPortion float64
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Создать заготовку",
	Long: `Создание именованной заготовки. Имена уникальны: повторное имя
отклоняется сразу, не дожидаясь сервера.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		p, err := svc.AddPreset(cmd.Context(), &preset.Preset{
			Name:         addName,
			FoodID:       addFoodID,
			PortionGrams: addPortion,
		})
		if err != nil {
			return fmt.Errorf("ошибка создания заготовки: %w", err)
		}

		color.Green("Заготовка создана: %s (%s)", p.Name, p.ID)
		return nil
	},
}

func init() {
	AddCmd.Flags().StringVar(&addName, "name", "", "имя заготовки")
	AddCmd.Flags().StringVar(&addFoodID, "food", "", "идентификатор продукта")
	AddCmd.Flags().Float64Var(&addPortion, "grams", 0, "размер порции в граммах")
	_ = AddCmd.MarkFlagRequired("name")
	_ = AddCmd.MarkFlagRequired("food")
	_ = AddCmd.MarkFlagRequired("grams")
}
