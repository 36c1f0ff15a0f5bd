package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/config"
	"nutrilog/internal/domain/remote"
)

// TokenSource отдает токен авторизации для исходящих запросов.
// Реализуется хранилищем токенов; в тестах подменяется заглушкой.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type apiClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	tokens    TokenSource
	userAgent string
}

func NewAPIClient(cfg *config.Config, tokens TokenSource, log *slog.Logger) *apiClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
		if cfg.CACertPath != "" {
			if pool, err := loadCACertPool(cfg.CACertPath); err != nil {
				log.Warn("не удалось загрузить CA сертификат", slog.String("error", err.Error()))
			} else {
				transport.TLSClientConfig = &tls.Config{RootCAs: pool}
			}
		}
	}

	client := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}

	return &apiClient{
		client:    client,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		tokens:    tokens,
		userAgent: "NutriLog-Client/1.0",
	}
}

func loadCACertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("файл %s не содержит сертификатов", path)
	}
	return pool, nil
}

// Health проверяет доступность сервера.
func (h *apiClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}
	return nil
}

// Login выполняет вход и возвращает выданный сервером токен.
func (h *apiClient) Login(ctx context.Context, login, password string) (*remote.LoginResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/auth/login",
		remote.LoginRequest{Login: login, Password: password}, false)
	if err != nil {
		return nil, err
	}

	var loginResp remote.LoginResponse
	if err := h.parseResponse(resp, &loginResp); err != nil {
		return nil, err
	}
	return &loginResp, nil
}

// CreateEntry создает запись дневника на сервере и возвращает
// назначенный сервером идентификатор.
func (h *apiClient) CreateEntry(ctx context.Context, req remote.CreateEntryRequest) (*remote.EntryResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/entries", req, true)
	if err != nil {
		return nil, err
	}

	var created remote.EntryResponse
	if err := h.parseResponse(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteEntry удаляет запись на сервере.
func (h *apiClient) DeleteEntry(ctx context.Context, id string) error {
	resp, err := h.doRequest(ctx, "DELETE", "/api/v1/entries/"+id, nil, true)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// GetTodayEntries возвращает записи за сегодня.
func (h *apiClient) GetTodayEntries(ctx context.Context) ([]remote.EntryResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/v1/entries/today", nil, true)
	if err != nil {
		return nil, err
	}

	var entries []remote.EntryResponse
	if err := h.parseResponse(resp, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreatePreset создает заготовку на сервере.
func (h *apiClient) CreatePreset(ctx context.Context, req remote.CreatePresetRequest) (*remote.PresetResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/presets", req, true)
	if err != nil {
		return nil, err
	}

	var created remote.PresetResponse
	if err := h.parseResponse(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeletePreset удаляет заготовку на сервере.
func (h *apiClient) DeletePreset(ctx context.Context, id string) error {
	resp, err := h.doRequest(ctx, "DELETE", "/api/v1/presets/"+id, nil, true)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// UpdateSettings сохраняет настройки на сервере.
func (h *apiClient) UpdateSettings(ctx context.Context, req remote.UpdateSettingsRequest) error {
	resp, err := h.doRequest(ctx, "PUT", "/api/v1/settings", req, true)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// GetSettings возвращает настройки с сервера.
func (h *apiClient) GetSettings(ctx context.Context) (*remote.SettingsResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/v1/settings", nil, true)
	if err != nil {
		return nil, err
	}

	var settings remote.SettingsResponse
	if err := h.parseResponse(resp, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetFoodCatalog возвращает справочник продуктов.
func (h *apiClient) GetFoodCatalog(ctx context.Context) ([]remote.FoodItemResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/v1/catalog", nil, true)
	if err != nil {
		return nil, err
	}

	var items []remote.FoodItemResponse
	if err := h.parseResponse(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (h *apiClient) doRequest(ctx context.Context, method, path string, body interface{}, authed bool) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	// Добавляем заголовки. Заголовок происхождения позволяет серверу
	// отличать фоновую синхронизацию от интерактивных запросов.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set(remote.SyncOriginHeader, "1")

	if authed {
		token, err := h.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", remote.ErrUnauthorized, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	return resp, nil
}

func (h *apiClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"body", string(body),
	)

	if resp.StatusCode >= 400 {
		return statusErr(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}
	return nil
}

// statusErr переводит статусы сервера в доменные ошибки. Цикл
// синхронизации различает их через errors.Is.
func statusErr(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		detail = ": " + errResp.Error
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w%s", remote.ErrUnauthorized, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w%s", remote.ErrNotFound, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w%s", remote.ErrDuplicateName, detail)
	default:
		return fmt.Errorf("ошибка сервера: статус %d%s", status, detail)
	}
}
