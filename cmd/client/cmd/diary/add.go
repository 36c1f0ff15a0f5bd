package diary

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/record"
)

var (
	addFoodID   string
	addFoodName string
	addPortion  float64
	addLoggedAt string
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить запись дневника",
	Long: `Добавление записи: что съедено и сколько.

Запись сохраняется мгновенно, даже без сети. Время приема пищи задается
флагом --at в формате RFC3339; по умолчанию берется текущее.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := serviceFromContext(cmd)
		if err != nil {
			return err
		}

		var loggedAt time.Time
		if addLoggedAt != "" {
			loggedAt, err = time.Parse(time.RFC3339, addLoggedAt)
			if err != nil {
				return fmt.Errorf("неверный формат времени: %w", err)
			}
		}

		e, err := svc.AddEntry(cmd.Context(), &entry.Entry{
			FoodID:       addFoodID,
			FoodName:     addFoodName,
			PortionGrams: addPortion,
			LoggedAt:     loggedAt,
		})
		if err != nil {
			return fmt.Errorf("ошибка добавления записи: %w", err)
		}

		color.Green("Запись добавлена: %s", e.ID)
		if record.IsLocalID(e.ID) {
			fmt.Println("Запись будет отправлена на сервер при следующей синхронизации.")
		}
		return nil
	},
}

func init() {
	AddCmd.Flags().StringVar(&addFoodID, "food", "", "идентификатор продукта")
	AddCmd.Flags().StringVar(&addFoodName, "name", "", "название продукта")
	AddCmd.Flags().Float64Var(&addPortion, "grams", 0, "размер порции в граммах")
	AddCmd.Flags().StringVar(&addLoggedAt, "at", "", "время приема пищи (RFC3339)")
	_ = AddCmd.MarkFlagRequired("food")
	_ = AddCmd.MarkFlagRequired("grams")
}
