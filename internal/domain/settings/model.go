// Package settings описывает пользовательские лимиты и период отслеживания.
package settings

import (
	"fmt"
	"time"
)

// Период отслеживания лимита.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Settings - лимиты потребления пользователя. На устройстве хранится
// не более одной версии; запись на сервер идет через upsert.
type Settings struct {
	UserID         string    `json:"user_id"`
	DailyLimit     int       `json:"daily_limit"`
	WeeklyLimit    int       `json:"weekly_limit"`
	MonthlyLimit   int       `json:"monthly_limit"`
	TrackingPeriod string    `json:"tracking_period"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate проверяет корректность настроек.
func (s *Settings) Validate() error {
	switch s.TrackingPeriod {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	default:
		return fmt.Errorf("неизвестный период отслеживания: %s", s.TrackingPeriod)
	}
	if s.DailyLimit < 0 || s.WeeklyLimit < 0 || s.MonthlyLimit < 0 {
		return fmt.Errorf("лимит не может быть отрицательным")
	}
	return nil
}
