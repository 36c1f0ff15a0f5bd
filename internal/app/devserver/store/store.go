// Package store - память вместо базы: состояние сервера-заглушки.
// Заглушка существует для локальной разработки и интеграционных сценариев
// клиента; персистентность ей не нужна.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nutrilog/internal/domain/remote"
)

// Store держит все состояние заглушки под одним мьютексом. Нагрузка
// у заглушки нулевая, поэтому гранулярность блокировок не важна.
type Store struct {
	mu       sync.Mutex
	sessions map[string]string // токен -> идентификатор пользователя
	entries  map[string]map[string]remote.EntryResponse
	presets  map[string]map[string]remote.PresetResponse
	settings map[string]remote.SettingsResponse
	catalog  []remote.FoodItemResponse
}

func New() *Store {
	return &Store{
		sessions: make(map[string]string),
		entries:  make(map[string]map[string]remote.EntryResponse),
		presets:  make(map[string]map[string]remote.PresetResponse),
		settings: make(map[string]remote.SettingsResponse),
		catalog:  seedCatalog(),
	}
}

// Login принимает любую пару логин/пароль и выдает токен. Идентификатор
// пользователя детерминирован по логину, чтобы повторные входы попадали
// в те же данные.
func (s *Store) Login(login string) (token, userID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID = "user-" + strings.ToLower(login)
	token = uuid.NewString()
	s.sessions[token] = userID
	return token, userID, time.Now().Add(24 * time.Hour)
}

// Validate проверяет токен и возвращает пользователя.
func (s *Store) Validate(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.sessions[token]
	return userID, ok
}

// CreateEntry создает запись. Повторная доставка с тем же идентификатором
// корреляции возвращает уже созданную запись, а не дубликат.
func (s *Store) CreateEntry(userID string, req remote.CreateEntryRequest) remote.EntryResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.entries[userID]
	if byID == nil {
		byID = make(map[string]remote.EntryResponse)
		s.entries[userID] = byID
	}

	if req.CorrelationID != "" {
		for _, e := range byID {
			if e.CorrelationID == req.CorrelationID {
				return e
			}
		}
	}

	e := remote.EntryResponse{
		ID:            uuid.NewString(),
		FoodID:        req.FoodID,
		FoodName:      req.FoodName,
		PortionGrams:  req.PortionGrams,
		LoggedAt:      req.LoggedAt,
		CreatedAt:     time.Now().UTC(),
		CorrelationID: req.CorrelationID,
	}
	byID[e.ID] = e
	return e
}

// DeleteEntry удаляет запись. false - записи не было.
func (s *Store) DeleteEntry(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.entries[userID]
	if _, ok := byID[id]; !ok {
		return false
	}
	delete(byID, id)
	return true
}

// TodayEntries возвращает записи пользователя за текущие сутки.
func (s *Store) TodayEntries(userID string) []remote.EntryResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	var out []remote.EntryResponse
	for _, e := range s.entries[userID] {
		if !e.LoggedAt.Before(from) && e.LoggedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// CreatePreset создает заготовку. duplicate=true - имя уже занято.
func (s *Store) CreatePreset(userID string, req remote.CreatePresetRequest) (remote.PresetResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.presets[userID]
	if byID == nil {
		byID = make(map[string]remote.PresetResponse)
		s.presets[userID] = byID
	}

	for _, p := range byID {
		if p.Name == req.Name {
			return p, true
		}
	}

	p := remote.PresetResponse{
		ID:            uuid.NewString(),
		Name:          req.Name,
		FoodID:        req.FoodID,
		PortionGrams:  req.PortionGrams,
		CorrelationID: req.CorrelationID,
	}
	byID[p.ID] = p
	return p, false
}

// DeletePreset удаляет заготовку. false - заготовки не было.
func (s *Store) DeletePreset(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.presets[userID]
	if _, ok := byID[id]; !ok {
		return false
	}
	delete(byID, id)
	return true
}

// PutSettings сохраняет настройки пользователя (upsert).
func (s *Store) PutSettings(userID string, req remote.UpdateSettingsRequest) remote.SettingsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := remote.SettingsResponse{
		DailyLimit:     req.DailyLimit,
		WeeklyLimit:    req.WeeklyLimit,
		MonthlyLimit:   req.MonthlyLimit,
		TrackingPeriod: req.TrackingPeriod,
		UpdatedAt:      time.Now().UTC(),
	}
	s.settings[userID] = cfg
	return cfg
}

// GetSettings возвращает настройки пользователя.
func (s *Store) GetSettings(userID string) (remote.SettingsResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.settings[userID]
	return cfg, ok
}

// Catalog возвращает справочник продуктов.
func (s *Store) Catalog() []remote.FoodItemResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]remote.FoodItemResponse, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func seedCatalog() []remote.FoodItemResponse {
	return []remote.FoodItemResponse{
		{ID: "food-oatmeal", Name: "Овсяная каша", KcalPer100g: 88},
		{ID: "food-chicken", Name: "Куриная грудка", KcalPer100g: 113},
		{ID: "food-rice", Name: "Рис отварной", KcalPer100g: 116},
		{ID: "food-apple", Name: "Яблоко", KcalPer100g: 52},
		{ID: "food-cottage", Name: "Творог 5%", KcalPer100g: 121},
		{ID: "food-coffee", Name: "Кофе с молоком", KcalPer100g: 40},
	}
}
