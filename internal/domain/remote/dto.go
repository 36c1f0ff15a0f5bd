// Package remote описывает контракт удаленного API. Сам сервер - внешний
// коллаборатор; здесь только формы запросов и ответов, которые потребляет
// движок синхронизации, и заглушка в cmd/devserver.
package remote

import "time"

// SyncOriginHeader помечает запросы движка синхронизации. Заголовок нужен
// только для наблюдаемости на сервере, на поведение не влияет.
const SyncOriginHeader = "X-Nutrilog-Sync"

// CreateEntryRequest - создание записи дневника.
type CreateEntryRequest struct {
	FoodID        string    `json:"food_id"`
	FoodName      string    `json:"food_name,omitempty"`
	PortionGrams  float64   `json:"portion_grams"`
	LoggedAt      time.Time `json:"logged_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EntryResponse - запись дневника в представлении сервера.
type EntryResponse struct {
	ID            string    `json:"id"`
	FoodID        string    `json:"food_id"`
	FoodName      string    `json:"food_name,omitempty"`
	PortionGrams  float64   `json:"portion_grams"`
	LoggedAt      time.Time `json:"logged_at"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// CreatePresetRequest - создание заготовки. Сервер может ответить конфликтом
// имени; клиент трактует его как успех (заготовка уже существует).
type CreatePresetRequest struct {
	Name          string  `json:"name"`
	FoodID        string  `json:"food_id"`
	PortionGrams  float64 `json:"portion_grams"`
	CorrelationID string  `json:"correlation_id,omitempty"`
}

// PresetResponse - заготовка в представлении сервера.
type PresetResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	FoodID        string  `json:"food_id"`
	PortionGrams  float64 `json:"portion_grams"`
	CorrelationID string  `json:"correlation_id,omitempty"`
}

// UpdateSettingsRequest - upsert настроек пользователя.
type UpdateSettingsRequest struct {
	DailyLimit     int    `json:"daily_limit"`
	WeeklyLimit    int    `json:"weekly_limit"`
	MonthlyLimit   int    `json:"monthly_limit"`
	TrackingPeriod string `json:"tracking_period"`
}

// SettingsResponse - настройки в представлении сервера.
type SettingsResponse struct {
	DailyLimit     int       `json:"daily_limit"`
	WeeklyLimit    int       `json:"weekly_limit"`
	MonthlyLimit   int       `json:"monthly_limit"`
	TrackingPeriod string    `json:"tracking_period"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FoodItemResponse - элемент справочника продуктов.
type FoodItemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	KcalPer100g float64 `json:"kcal_per_100g"`
}

// LoginRequest - вход через провайдера идентификации (заглушка devserver).
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse - выданный токен и стабильный идентификатор пользователя.
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
