// Package catalog описывает справочник продуктов.
package catalog

import "time"

// FoodItem - элемент справочника продуктов. Справочник подтягивается с
// сервера по возможности и хранится локально до вытеснения. Поле
// LastAccessedAt обновляется при каждом обращении - задел под политику
// вытеснения по давности.
type FoodItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	KcalPer100g    float64   `json:"kcal_per_100g"`
	LastAccessedAt time.Time `json:"last_accessed_at,omitempty"`
}
