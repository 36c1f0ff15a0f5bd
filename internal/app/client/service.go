package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/crypto"
	"nutrilog/internal/domain/catalog"
	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/outbox"
	"nutrilog/internal/domain/preset"
	"nutrilog/internal/domain/record"
	"nutrilog/internal/domain/settings"
)

// Service - фасад над локальным хранилищем. Каждая мутация пишется локально
// и ставится в outbox одной транзакцией; чтения идут только из локальной
// базы (сетевые слияния делает TodayEntries отдельно). После мутации
// сервис будит синхронизацию, если сеть доступна.
type Service struct {
	store  *Store
	cipher *crypto.Cipher
	api    remoteAPI
	conn   *Connectivity
	log    *slog.Logger

	// kick будит цикл синхронизации. Подставляется композиционным корнем,
	// в тестах может быть пустым.
	kick func()
}

func NewService(store *Store, cipher *crypto.Cipher, api remoteAPI, conn *Connectivity, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		cipher: cipher,
		api:    api,
		conn:   conn,
		log:    log,
		kick:   func() {},
	}
}

// SetSyncKick задает колбэк пробуждения синхронизации.
func (s *Service) SetSyncKick(kick func()) {
	if kick != nil {
		s.kick = kick
	}
}

func (s *Service) userID() string {
	return s.cipher.UserID()
}

// ==================== Записи дневника ====================

// AddEntry создает запись дневника. Запись получает временный локальный
// идентификатор и идентификатор корреляции, сохраняется зашифрованной
// и вместе с ней в той же транзакции встает мутация в outbox.
func (s *Service) AddEntry(ctx context.Context, e *entry.Entry) (*entry.Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e.ID = record.NewLocalID()
	e.UserID = s.userID()
	e.CorrelationID = record.NewCorrelationID()
	e.CreatedAt = now
	if e.LoggedAt.IsZero() {
		e.LoggedAt = now
	}

	data, err := s.cipher.EncryptJSON(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка шифрования записи: %w", err)
	}

	err = s.store.InTx(ctx, func(tx *Tx) error {
		if err := tx.SaveEntry(ctx, &StoredEntry{
			ID:            e.ID,
			UserID:        e.UserID,
			CorrelationID: e.CorrelationID,
			PresetID:      e.PresetID,
			LoggedAt:      e.LoggedAt,
			CreatedAt:     e.CreatedAt,
			Data:          data,
		}); err != nil {
			return err
		}
		return tx.Enqueue(ctx, &outbox.Entry{
			UserID:    e.UserID,
			Entity:    outbox.EntityEntry,
			Op:        outbox.OpCreate,
			RecordID:  e.ID,
			CreatedAt: now,
		}, data)
	})
	if err != nil {
		return nil, err
	}

	s.kickSync()
	return e, nil
}

// ListEntries возвращает расшифрованные записи по фильтру. Блобы, лежащие
// в старом формате шифрования, попутно перешифровываются.
func (s *Service) ListEntries(ctx context.Context, filter entry.Filter) ([]*entry.Entry, error) {
	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}

	filter.UserID = s.userID()
	rows, err := q.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]*entry.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := s.decodeEntry(ctx, q, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) decodeEntry(ctx context.Context, q *queries, row *StoredEntry) (*entry.Entry, error) {
	blob, changed, err := s.cipher.ReencryptIfLegacy(row.Data)
	if err != nil {
		return nil, fmt.Errorf("ошибка расшифровки записи %s: %w", row.ID, err)
	}
	if changed {
		if err := q.UpdateEntryData(ctx, row.ID, blob); err != nil {
			s.log.Warn("не удалось перешифровать запись", slog.String("id", row.ID))
		}
	}

	var e entry.Entry
	if err := s.cipher.DecryptJSON(blob, &e); err != nil {
		return nil, fmt.Errorf("ошибка расшифровки записи %s: %w", row.ID, err)
	}
	// Индексируемые колонки авторитетны: после замены временного id
	// блоб может хранить старое значение.
	e.ID = row.ID
	e.CorrelationID = row.CorrelationID
	e.PresetID = row.PresetID
	return &e, nil
}

// DeleteEntry удаляет запись. Если запись еще не была на сервере,
// ее мутации просто снимаются с очереди; иначе встает мутация удаления.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := s.store.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.GetEntry(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteEntry(ctx, id); err != nil {
			return err
		}
		if record.IsLocalID(id) {
			return tx.DeleteOutboxByRecord(ctx, id)
		}
		return tx.Enqueue(ctx, &outbox.Entry{
			UserID:    s.userID(),
			Entity:    outbox.EntityEntry,
			Op:        outbox.OpDelete,
			RecordID:  id,
			CreatedAt: now,
		}, nil)
	})
	if err != nil {
		return err
	}

	s.kickSync()
	return nil
}

// TodayEntries возвращает записи за сегодня. Локальная база всегда источник
// истины для несинхронизированного; при доступном сервере записи, известные
// только ему, подтягиваются и вливаются в локальную базу. Сопоставление идет
// по идентификатору корреляции, а не по эвристикам времени.
func (s *Service) TodayEntries(ctx context.Context) ([]*entry.Entry, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	filter := entry.Filter{From: from, To: from.AddDate(0, 0, 1)}

	local, err := s.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}

	if !s.conn.TrulyOnline(ctx) {
		return local, nil
	}

	serverEntries, err := s.api.GetTodayEntries(ctx)
	if err != nil {
		// Сервер недоступен или отверг запрос: локальных данных достаточно.
		s.log.Debug("слияние с сервером пропущено", slog.String("error", err.Error()))
		return local, nil
	}

	known := make(map[string]struct{}, len(local)*2)
	for _, e := range local {
		known[e.ID] = struct{}{}
		if e.CorrelationID != "" {
			known[e.CorrelationID] = struct{}{}
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

		e := &entry.Entry{
			ID:            se.ID,
			UserID:        s.userID(),
			FoodID:        se.FoodID,
			FoodName:      se.FoodName,
			PortionGrams:  se.PortionGrams,
			LoggedAt:      se.LoggedAt,
			CreatedAt:     se.CreatedAt,
			CorrelationID: se.CorrelationID,
		}
		if err := s.adoptEntry(ctx, e); err != nil {
			s.log.Warn("не удалось сохранить серверную запись",
				slog.String("id", se.ID), slog.String("error", err.Error()))
			continue
		}
		local = append(local, e)
	}
	return local, nil
}

// adoptEntry сохраняет запись, пришедшую с сервера, как уже синхронизированную.
func (s *Service) adoptEntry(ctx context.Context, e *entry.Entry) error {
	data, err := s.cipher.EncryptJSON(e)
	if err != nil {
		return err
	}

	q, err := s.store.queries()
	if err != nil {
		return err
	}
	return q.SaveEntry(ctx, &StoredEntry{
		ID:            e.ID,
		UserID:        e.UserID,
		CorrelationID: e.CorrelationID,
		PresetID:      e.PresetID,
		LoggedAt:      e.LoggedAt,
		CreatedAt:     e.CreatedAt,
		Synced:        true,
		Data:          data,
	})
}

// ==================== Заготовки ====================

// AddPreset создает заготовку. Имена уникальны в пределах пользователя:
// дубликат отклоняется еще локально, не дожидаясь конфликта на сервере.
func (s *Service) AddPreset(ctx context.Context, p *preset.Preset) (*preset.Preset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}
	if _, err := q.FindPresetByName(ctx, s.userID(), p.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePreset, p.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	p.ID = record.NewLocalID()
	p.UserID = s.userID()
	p.CorrelationID = record.NewCorrelationID()
	p.CreatedAt = now

	data, err := s.cipher.EncryptJSON(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка шифрования заготовки: %w", err)
	}

	err = s.store.InTx(ctx, func(tx *Tx) error {
		if err := tx.SavePreset(ctx, &StoredPreset{
			ID:            p.ID,
			UserID:        p.UserID,
			CorrelationID: p.CorrelationID,
			Name:          p.Name,
			CreatedAt:     p.CreatedAt,
			Data:          data,
		}); err != nil {
			return err
		}
		return tx.Enqueue(ctx, &outbox.Entry{
			UserID:    p.UserID,
			Entity:    outbox.EntityPreset,
			Op:        outbox.OpCreate,
			RecordID:  p.ID,
			CreatedAt: now,
		}, data)
	})
	if err != nil {
		return nil, err
	}

	s.kickSync()
	return p, nil
}

// ListPresets возвращает расшифрованные заготовки пользователя.
func (s *Service) ListPresets(ctx context.Context) ([]*preset.Preset, error) {
	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}

	rows, err := q.ListPresets(ctx, s.userID())
	if err != nil {
		return nil, err
	}

	presets := make([]*preset.Preset, 0, len(rows))
	for _, row := range rows {
		p, err := s.decodePreset(ctx, q, row)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func (s *Service) decodePreset(ctx context.Context, q *queries, row *StoredPreset) (*preset.Preset, error) {
	blob, changed, err := s.cipher.ReencryptIfLegacy(row.Data)
	if err != nil {
		return nil, fmt.Errorf("ошибка расшифровки заготовки %s: %w", row.ID, err)
	}
	if changed {
		if err := q.SavePreset(ctx, &StoredPreset{
			ID:            row.ID,
			UserID:        row.UserID,
			CorrelationID: row.CorrelationID,
			Name:          row.Name,
			CreatedAt:     row.CreatedAt,
			Synced:        row.Synced,
			Data:          blob,
		}); err != nil {
			s.log.Warn("не удалось перешифровать заготовку", slog.String("id", row.ID))
		}
	}

	var p preset.Preset
	if err := s.cipher.DecryptJSON(blob, &p); err != nil {
		return nil, fmt.Errorf("ошибка расшифровки заготовки %s: %w", row.ID, err)
	}
	p.ID = row.ID
	p.CorrelationID = row.CorrelationID
	return &p, nil
}

// DeletePreset удаляет заготовку, аналогично DeleteEntry.
func (s *Service) DeletePreset(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := s.store.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.GetPreset(ctx, id); err != nil {
			return err
		}
		if err := tx.DeletePreset(ctx, id); err != nil {
			return err
		}
		if record.IsLocalID(id) {
			return tx.DeleteOutboxByRecord(ctx, id)
		}
		return tx.Enqueue(ctx, &outbox.Entry{
			UserID:    s.userID(),
			Entity:    outbox.EntityPreset,
			Op:        outbox.OpDelete,
			RecordID:  id,
			CreatedAt: now,
		}, nil)
	})
	if err != nil {
		return err
	}

	s.kickSync()
	return nil
}

// LogPreset создает запись дневника из заготовки: переносит продукт и
// размер порции, запоминает ссылку на заготовку.
func (s *Service) LogPreset(ctx context.Context, presetID string) (*entry.Entry, error) {
	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}

	row, err := q.GetPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}
	p, err := s.decodePreset(ctx, q, row)
	if err != nil {
		return nil, err
	}

	return s.AddEntry(ctx, &entry.Entry{
		FoodID:       p.FoodID,
		PortionGrams: p.PortionGrams,
		PresetID:     p.ID,
	})
}

// ==================== Настройки ====================

// SaveSettings сохраняет настройки локально и ставит upsert в очередь.
// Настройки одни на пользователя, поэтому операция всегда update.
func (s *Service) SaveSettings(ctx context.Context, cfg *settings.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	cfg.UserID = s.userID()
	cfg.UpdatedAt = now

	data, err := s.cipher.EncryptJSON(cfg)
	if err != nil {
		return fmt.Errorf("ошибка шифрования настроек: %w", err)
	}

	err = s.store.InTx(ctx, func(tx *Tx) error {
		if err := tx.SaveSettings(ctx, cfg.UserID, data, now, false); err != nil {
			return err
		}
		return tx.Enqueue(ctx, &outbox.Entry{
			UserID:    cfg.UserID,
			Entity:    outbox.EntitySettings,
			Op:        outbox.OpUpdate,
			RecordID:  cfg.UserID,
			CreatedAt: now,
		}, data)
	})
	if err != nil {
		return err
	}

	s.kickSync()
	return nil
}

// GetSettings возвращает настройки пользователя. Если их еще нет,
// возвращаются настройки по умолчанию.
func (s *Service) GetSettings(ctx context.Context) (*settings.Settings, error) {
	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}

	data, _, err := q.GetSettings(ctx, s.userID())
	if errors.Is(err, ErrNotFound) {
		return &settings.Settings{
			UserID:         s.userID(),
			TrackingPeriod: settings.PeriodDaily,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg settings.Settings
	if err := s.cipher.DecryptJSON(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка расшифровки настроек: %w", err)
	}
	return &cfg, nil
}

// ==================== Справочник и прочее ====================

// CacheFoodItems сохраняет элементы справочника продуктов.
func (s *Service) CacheFoodItems(ctx context.Context, items []catalog.FoodItem) error {
	q, err := s.store.queries()
	if err != nil {
		return err
	}
	return q.UpsertFoodItems(ctx, items)
}

// SearchFood ищет продукты по подстроке имени в локальном справочнике.
func (s *Service) SearchFood(ctx context.Context, query string, limit int) ([]catalog.FoodItem, error) {
	q, err := s.store.queries()
	if err != nil {
		return nil, err
	}
	return q.SearchFood(ctx, query, limit)
}

// PendingCount возвращает число несинхронизированных мутаций.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	q, err := s.store.queries()
	if err != nil {
		return 0, err
	}
	return q.PendingCount(ctx, s.userID())
}

func (s *Service) kickSync() {
	if s.conn.Online() {
		s.kick()
	}
}
