// Package entry описывает запись дневника питания.
package entry

import (
	"fmt"
	"time"
)

// Entry - одна запись дневника: что съедено и сколько.
type Entry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FoodID        string    `json:"food_id"`
	FoodName      string    `json:"food_name,omitempty"`
	PortionGrams  float64   `json:"portion_grams"`
	PresetID      string    `json:"preset_id,omitempty"`
	LoggedAt      time.Time `json:"logged_at"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Filter - критерии выборки записей.
type Filter struct {
	UserID      string
	FoodID      string
	From        time.Time
	To          time.Time
	OnlyPending bool
	Limit       int
	Offset      int
}

// Validate проверяет обязательные поля записи.
func (e *Entry) Validate() error {
	if e.FoodID == "" {
		return fmt.Errorf("food_id не может быть пустым")
	}
	if e.PortionGrams <= 0 {
		return fmt.Errorf("размер порции должен быть положительным")
	}
	return nil
}
