// Package preset описывает именованные заготовки записей дневника.
package preset

import (
	"fmt"
	"time"
)

// Preset - именованная заготовка: "обед", "утренний кофе" и т.п.
// Создание записи из заготовки переносит food_id и размер порции.
type Preset struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	FoodID        string    `json:"food_id"`
	PortionGrams  float64   `json:"portion_grams"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Validate проверяет обязательные поля заготовки.
func (p *Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("имя заготовки не может быть пустым")
	}
	if p.FoodID == "" {
		return fmt.Errorf("food_id не может быть пустым")
	}
	if p.PortionGrams <= 0 {
		return fmt.Errorf("размер порции должен быть положительным")
	}
	return nil
}
