package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/config"
	"nutrilog/internal/app/client/crypto"
	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/outbox"
	"nutrilog/internal/domain/preset"
	"nutrilog/internal/domain/remote"
	"nutrilog/internal/domain/settings"
)

// remoteAPI - срез удаленного API, нужный движку синхронизации и сервису.
// Реальная реализация - apiClient, в тестах подменяется заглушкой.
type remoteAPI interface {
	CreateEntry(ctx context.Context, req remote.CreateEntryRequest) (*remote.EntryResponse, error)
	DeleteEntry(ctx context.Context, id string) error
	GetTodayEntries(ctx context.Context) ([]remote.EntryResponse, error)
	CreatePreset(ctx context.Context, req remote.CreatePresetRequest) (*remote.PresetResponse, error)
	DeletePreset(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, req remote.UpdateSettingsRequest) error
	GetSettings(ctx context.Context) (*remote.SettingsResponse, error)
	GetFoodCatalog(ctx context.Context) ([]remote.FoodItemResponse, error)
	Health(ctx context.Context) error
}

// Policy - явные потолки и интервалы синхронизации. Значения приходят из
// конфигурации, не зашиты в код.
type Policy struct {
	// MaxRetries - сколько всего сетевых попыток получает элемент очереди
	// (по одной за проход). После исчерпания элемент вытесняется.
	MaxRetries int

	// MaxAuthRetries - сколько попыток получает элемент при отказе в
	// авторизации, все внутри одного прохода. После исчерпания проход
	// прерывается целиком, элемент остается в очереди.
	MaxAuthRetries int

	// Interval - период фоновой синхронизации.
	Interval time.Duration

	// SettleDelay - пауза после события восстановления сети, чтобы дать
	// соединению устояться перед проходом.
	SettleDelay time.Duration
}

// PolicyFromConfig собирает политику из конфигурации клиента.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxRetries:     cfg.MaxRetries,
		MaxAuthRetries: cfg.MaxAuthRetries,
		Interval:       cfg.SyncInterval,
		SettleDelay:    cfg.SyncSettleDelay,
	}
}

// SyncStats - статистика синхронизации для интерфейса и диагностики.
type SyncStats struct {
	TotalSyncs     int       `json:"total_syncs"`
	LastSync       time.Time `json:"last_sync"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
	TotalUploaded  int       `json:"total_uploaded"`
	TotalEvicted   int       `json:"total_evicted"`
	TotalErrors    int       `json:"total_errors"`
}

// SyncManager гонит очередь outbox на сервер. Проходы взаимно исключены:
// повторный вызов при идущем проходе возвращает ErrAlreadySyncing и не
// ждет. Очередь обрабатывается строго в порядке создания.
type SyncManager struct {
	store  *Store
	cipher *crypto.Cipher
	api    remoteAPI
	conn   *Connectivity
	policy Policy
	log    *slog.Logger

	// reauth сбрасывает кэшированный токен перед повторной попыткой
	// авторизации. Подставляется композиционным корнем.
	reauth func()

	mu        sync.Mutex
	isSyncing bool
	stats     SyncStats
}

func NewSyncManager(store *Store, cipher *crypto.Cipher, api remoteAPI, conn *Connectivity, policy Policy, log *slog.Logger) *SyncManager {
	return &SyncManager{
		store:  store,
		cipher: cipher,
		api:    api,
		conn:   conn,
		policy: policy,
		log:    log,
		reauth: func() {},
	}
}

// SetReauth задает колбэк сброса кэшированного токена.
func (m *SyncManager) SetReauth(reauth func()) {
	if reauth != nil {
		m.reauth = reauth
	}
}

// Stats возвращает снимок статистики.
func (m *SyncManager) Stats() SyncStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Syncing сообщает, идет ли проход прямо сейчас.
func (m *SyncManager) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSyncing
}

// Sync выполняет один проход синхронизации: выталкивает очередь outbox,
// затем подтягивает настройки с сервера. Оффлайн и идущий проход - не
// ошибки работы, а штатные причины пропуска; они возвращаются отдельными
// сентинелами.
func (m *SyncManager) Sync(ctx context.Context) error {
	m.mu.Lock()
	if m.isSyncing {
		m.mu.Unlock()
		return ErrAlreadySyncing
	}
	m.isSyncing = true
	m.stats.TotalSyncs++
	m.stats.LastSync = time.Now()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isSyncing = false
		m.mu.Unlock()
	}()

	if !m.conn.TrulyOnline(ctx) {
		return ErrOffline
	}

	err := m.pushOutbox(ctx)

	m.mu.Lock()
	if err != nil {
		m.stats.LastFailed = time.Now()
	} else {
		m.stats.LastSuccessful = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}

	if err := m.pullToday(ctx); err != nil {
		m.log.Debug("не удалось подтянуть записи за сегодня", slog.String("error", err.Error()))
	}
	if err := m.pullSettings(ctx); err != nil {
		m.log.Debug("не удалось подтянуть настройки", slog.String("error", err.Error()))
	}
	return nil
}

// pullToday вливает в локальную базу записи за сегодня, известные только
// серверу. Сопоставление по идентификатору корреляции: колонок хватает,
// расшифровка локальных записей не нужна.
func (m *SyncManager) pullToday(ctx context.Context) error {
	q, err := m.store.queries()
	if err != nil {
		return err
	}

	serverEntries, err := m.api.GetTodayEntries(ctx)
	if err != nil {
		return err
	}
	if len(serverEntries) == 0 {
		return nil
	}

	userID := m.cipher.UserID()
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	local, err := q.ListEntries(ctx, entry.Filter{UserID: userID, From: from, To: from.AddDate(0, 0, 1)})
	if err != nil {
		return err
	}

	known := make(map[string]struct{}, len(local)*2)
	for _, row := range local {
		known[row.ID] = struct{}{}
		if row.CorrelationID != "" {
			known[row.CorrelationID] = struct{}{}
		}
	}

	for _, se := range serverEntries {
		if _, ok := known[se.ID]; ok {
			continue
		}
		if se.CorrelationID != "" {
			if _, ok := known[se.CorrelationID]; ok {
				continue
			}
		}

		e := entry.Entry{
			ID:            se.ID,
			UserID:        userID,
			FoodID:        se.FoodID,
			FoodName:      se.FoodName,
			PortionGrams:  se.PortionGrams,
			LoggedAt:      se.LoggedAt,
			CreatedAt:     se.CreatedAt,
			CorrelationID: se.CorrelationID,
		}
		data, err := m.cipher.EncryptJSON(&e)
		if err != nil {
			return err
		}
		if err := q.SaveEntry(ctx, &StoredEntry{
			ID:            e.ID,
			UserID:        e.UserID,
			CorrelationID: e.CorrelationID,
			LoggedAt:      e.LoggedAt,
			CreatedAt:     e.CreatedAt,
			Synced:        true,
			Data:          data,
		}); err != nil {
			return err
		}
	}
	return nil
}

// pushOutbox обрабатывает очередь в порядке создания. Каждый элемент
// получает одну сетевую попытку за проход; отказ в авторизации дает
// несколько попыток подряд и при неудаче прерывает проход целиком,
// чтобы не жечь оставшиеся элементы об заведомо мертвую сессию.
func (m *SyncManager) pushOutbox(ctx context.Context) error {
	q, err := m.store.queries()
	if err != nil {
		return err
	}

	items, payloads, err := q.ListOutbox(ctx, m.cipher.UserID())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	m.log.Info("начат проход синхронизации", slog.Int("queue", len(items)))

	for i, item := range items {
		var pushErr error
		for attempt := 1; attempt <= m.policy.MaxAuthRetries; attempt++ {
			pushErr = m.push(ctx, q, item, payloads[i])
			if !errors.Is(pushErr, remote.ErrUnauthorized) {
				break
			}
			m.log.Warn("отказ в авторизации, повторная попытка",
				slog.Int64("outbox_id", item.ID),
				slog.Int("attempt", attempt),
			)
			m.reauth()
		}

		if errors.Is(pushErr, remote.ErrUnauthorized) {
			// Сессия мертва: элемент остается в очереди, проход
			// прерывается. Остальные элементы не трогаем.
			m.mu.Lock()
			m.stats.TotalErrors++
			m.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrSyncAuthFailed, pushErr)
		}

		if pushErr == nil {
			if err := q.DeleteOutbox(ctx, item.ID); err != nil {
				return err
			}
			m.mu.Lock()
			m.stats.TotalUploaded++
			m.mu.Unlock()
			continue
		}

		// Обычный сбой: фиксируем попытку. Элемент, исчерпавший потолок,
		// вытесняется, чтобы не блокировать очередь вечно.
		item.RetryCount++
		m.mu.Lock()
		m.stats.TotalErrors++
		m.mu.Unlock()

		if item.RetryCount >= m.policy.MaxRetries {
			m.log.Warn("мутация вытеснена из очереди после исчерпания повторов",
				slog.Int64("outbox_id", item.ID),
				slog.String("record_id", item.RecordID),
				slog.Int("retries", item.RetryCount),
				slog.String("error", pushErr.Error()),
			)
			if err := q.DeleteOutbox(ctx, item.ID); err != nil {
				return err
			}
			m.mu.Lock()
			m.stats.TotalEvicted++
			m.mu.Unlock()
			continue
		}

		if err := q.UpdateOutboxRetry(ctx, item.ID, item.RetryCount, pushErr.Error()); err != nil {
			return err
		}
	}
	return nil
}

// push выполняет одну сетевую попытку для элемента очереди. Возвращает nil
// и для настоящего успеха, и для исходов, трактуемых как успех: удаление
// отсутствующей записи, создание заготовки с занятым именем.
func (m *SyncManager) push(ctx context.Context, q *queries, item *outbox.Entry, payload []byte) error {
	switch {
	case item.Entity == outbox.EntityEntry && item.Op == outbox.OpCreate:
		return m.pushEntryCreate(ctx, q, item, payload)

	case item.Entity == outbox.EntityEntry && item.Op == outbox.OpDelete:
		err := m.api.DeleteEntry(ctx, item.RecordID)
		if errors.Is(err, remote.ErrNotFound) {
			// Записи и так нет - желаемое состояние достигнуто.
			return nil
		}
		return err

	case item.Entity == outbox.EntityPreset && item.Op == outbox.OpCreate:
		return m.pushPresetCreate(ctx, q, item, payload)

	case item.Entity == outbox.EntityPreset && item.Op == outbox.OpDelete:
		err := m.api.DeletePreset(ctx, item.RecordID)
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		return err

	case item.Entity == outbox.EntitySettings:
		var cfg settings.Settings
		if err := m.cipher.DecryptJSON(payload, &cfg); err != nil {
			return fmt.Errorf("ошибка расшифровки мутации: %w", err)
		}
		if err := m.api.UpdateSettings(ctx, remote.UpdateSettingsRequest{
			DailyLimit:     cfg.DailyLimit,
			WeeklyLimit:    cfg.WeeklyLimit,
			MonthlyLimit:   cfg.MonthlyLimit,
			TrackingPeriod: cfg.TrackingPeriod,
		}); err != nil {
			return err
		}
		return q.MarkSettingsSynced(ctx, item.UserID)

	default:
		return fmt.Errorf("неизвестная мутация: %s/%s", item.Entity, item.Op)
	}
}

func (m *SyncManager) pushEntryCreate(ctx context.Context, q *queries, item *outbox.Entry, payload []byte) error {
	var e entry.Entry
	if err := m.cipher.DecryptJSON(payload, &e); err != nil {
		return fmt.Errorf("ошибка расшифровки мутации: %w", err)
	}

	created, err := m.api.CreateEntry(ctx, remote.CreateEntryRequest{
		FoodID:        e.FoodID,
		FoodName:      e.FoodName,
		PortionGrams:  e.PortionGrams,
		LoggedAt:      e.LoggedAt,
		CorrelationID: e.CorrelationID,
	})
	if err != nil {
		return err
	}

	// Сервер выдал постоянный идентификатор: временный заменяется везде,
	// где на него ссылаются, включая последующие элементы очереди.
	if err := q.RewriteEntryID(ctx, item.RecordID, created.ID); err != nil {
		return err
	}

	m.log.Debug("запись синхронизирована",
		slog.String("local_id", item.RecordID),
		slog.String("server_id", created.ID),
	)
	return nil
}

func (m *SyncManager) pushPresetCreate(ctx context.Context, q *queries, item *outbox.Entry, payload []byte) error {
	var p preset.Preset
	if err := m.cipher.DecryptJSON(payload, &p); err != nil {
		return fmt.Errorf("ошибка расшифровки мутации: %w", err)
	}

	created, err := m.api.CreatePreset(ctx, remote.CreatePresetRequest{
		Name:          p.Name,
		FoodID:        p.FoodID,
		PortionGrams:  p.PortionGrams,
		CorrelationID: p.CorrelationID,
	})
	if errors.Is(err, remote.ErrDuplicateName) {
		// Имя уже занято на сервере - заготовка там есть, цель достигнута.
		// Локальная копия просто помечается синхронизированной.
		m.log.Info("заготовка уже существует на сервере", slog.String("name", p.Name))
		return q.RewritePresetID(ctx, item.RecordID, item.RecordID)
	}
	if err != nil {
		return err
	}

	// Замена идет через два хранилища: саму заготовку и ссылки на нее
	// из записей дневника.
	if err := q.RewritePresetID(ctx, item.RecordID, created.ID); err != nil {
		return err
	}

	m.log.Debug("заготовка синхронизирована",
		slog.String("local_id", item.RecordID),
		slog.String("server_id", created.ID),
	)
	return nil
}

// pullSettings подтягивает настройки с сервера после выталкивания очереди.
// Разрешение конфликта - последняя запись побеждает: серверная версия
// принимается, только если локальная не новее и не ждет отправки.
func (m *SyncManager) pullSettings(ctx context.Context) error {
	q, err := m.store.queries()
	if err != nil {
		return err
	}

	userID := m.cipher.UserID()
	synced, err := q.SettingsSynced(ctx, userID)
	if err != nil {
		return err
	}
	if !synced {
		// Локальная версия еще не отправлена - она и есть истина.
		return nil
	}

	serverCfg, err := m.api.GetSettings(ctx)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, localUpdatedAt, err := q.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && localUpdatedAt.After(serverCfg.UpdatedAt) {
		return nil
	}

	cfg := settings.Settings{
		UserID:         userID,
		DailyLimit:     serverCfg.DailyLimit,
		WeeklyLimit:    serverCfg.WeeklyLimit,
		MonthlyLimit:   serverCfg.MonthlyLimit,
		TrackingPeriod: serverCfg.TrackingPeriod,
		UpdatedAt:      serverCfg.UpdatedAt,
	}
	data, err := m.cipher.EncryptJSON(&cfg)
	if err != nil {
		return err
	}
	return q.SaveSettings(ctx, userID, data, cfg.UpdatedAt, true)
}
