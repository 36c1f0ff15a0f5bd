package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nutrilog/internal/domain/catalog"
	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/outbox"
)

// ==================== Записи дневника ====================

// SaveEntry вставляет или замещает запись дневника.
func (q *queries) SaveEntry(ctx context.Context, rec *StoredEntry) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO entries
			(id, user_id, correlation_id, preset_id, logged_at, created_at, synced, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.CorrelationID, rec.PresetID,
		fmtTime(rec.LoggedAt), fmtTime(rec.CreatedAt), rec.Synced, rec.Data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи: %w", classifyStorageErr(err))
	}
	return nil
}

// GetEntry возвращает запись по идентификатору.
func (q *queries) GetEntry(ctx context.Context, id string) (*StoredEntry, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, correlation_id, preset_id, logged_at, created_at, synced, data
		FROM entries WHERE id = ?
	`, id)
	return scanEntry(row)
}

// EntryByCorrelation ищет запись по идентификатору корреляции.
func (q *queries) EntryByCorrelation(ctx context.Context, correlationID string) (*StoredEntry, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, correlation_id, preset_id, logged_at, created_at, synced, data
		FROM entries WHERE correlation_id = ?
	`, correlationID)
	return scanEntry(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*StoredEntry, error) {
	var rec StoredEntry
	var loggedAt, createdAt string

	err := row.Scan(&rec.ID, &rec.UserID, &rec.CorrelationID, &rec.PresetID,
		&loggedAt, &createdAt, &rec.Synced, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записи: %w", classifyStorageErr(err))
	}

	rec.LoggedAt = parseTime(loggedAt)
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// ListEntries возвращает записи по фильтру в порядке времени приема пищи.
func (q *queries) ListEntries(ctx context.Context, filter entry.Filter) ([]*StoredEntry, error) {
	query := `
		SELECT id, user_id, correlation_id, preset_id, logged_at, created_at, synced, data
		FROM entries WHERE user_id = ?`
	args := []any{filter.UserID}

	if !filter.From.IsZero() {
		query += " AND logged_at >= ?"
		args = append(args, fmtTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += " AND logged_at < ?"
		args = append(args, fmtTime(filter.To))
	}
	if filter.OnlyPending {
		query += " AND synced = 0"
	}

	query += " ORDER BY logged_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", classifyStorageErr(err))
	}
	defer rows.Close()

	var records []*StoredEntry
	for rows.Next() {
		rec, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteEntry удаляет запись. Отсутствующая запись - не ошибка.
func (q *queries) DeleteEntry(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", classifyStorageErr(err))
	}
	return nil
}

// UpdateEntryData замещает зашифрованный блоб записи (перешифрование).
func (q *queries) UpdateEntryData(ctx context.Context, id string, data []byte) error {
	if _, err := q.q.ExecContext(ctx, "UPDATE entries SET data = ? WHERE id = ?", data, id); err != nil {
		return fmt.Errorf("ошибка обновления записи: %w", classifyStorageErr(err))
	}
	return nil
}

// RewriteEntryID заменяет временный идентификатор записи серверным везде,
// где он упоминается: в самой записи и в колонке record_id очереди outbox.
// Запись при этом помечается синхронизированной.
func (q *queries) RewriteEntryID(ctx context.Context, oldID, newID string) error {
	if _, err := q.q.ExecContext(ctx,
		"UPDATE entries SET id = ?, synced = 1 WHERE id = ?", newID, oldID); err != nil {
		return fmt.Errorf("ошибка замены идентификатора записи: %w", classifyStorageErr(err))
	}
	if _, err := q.q.ExecContext(ctx,
		"UPDATE outbox SET record_id = ? WHERE record_id = ?", newID, oldID); err != nil {
		return fmt.Errorf("ошибка замены идентификатора в outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// PendingCount возвращает число несинхронизированных мутаций пользователя -
// мягкий сигнал для интерфейса.
func (q *queries) PendingCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outbox WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета несинхронизированных мутаций: %w", classifyStorageErr(err))
	}
	return count, nil
}

// ==================== Заготовки ====================

// SavePreset вставляет или замещает заготовку.
func (q *queries) SavePreset(ctx context.Context, rec *StoredPreset) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO presets
			(id, user_id, correlation_id, name, created_at, synced, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.CorrelationID, rec.Name,
		fmtTime(rec.CreatedAt), rec.Synced, rec.Data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения заготовки: %w", classifyStorageErr(err))
	}
	return nil
}

// GetPreset возвращает заготовку по идентификатору.
func (q *queries) GetPreset(ctx context.Context, id string) (*StoredPreset, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, correlation_id, name, created_at, synced, data
		FROM presets WHERE id = ?
	`, id)
	return scanPreset(row)
}

// FindPresetByName ищет заготовку пользователя по имени.
func (q *queries) FindPresetByName(ctx context.Context, userID, name string) (*StoredPreset, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, correlation_id, name, created_at, synced, data
		FROM presets WHERE user_id = ? AND name = ?
	`, userID, name)
	return scanPreset(row)
}

func scanPreset(row rowScanner) (*StoredPreset, error) {
	var rec StoredPreset
	var createdAt string

	err := row.Scan(&rec.ID, &rec.UserID, &rec.CorrelationID, &rec.Name,
		&createdAt, &rec.Synced, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заготовки: %w", classifyStorageErr(err))
	}

	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// ListPresets возвращает заготовки пользователя по имени в алфавитном порядке.
func (q *queries) ListPresets(ctx context.Context, userID string) ([]*StoredPreset, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, user_id, correlation_id, name, created_at, synced, data
		FROM presets WHERE user_id = ? ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", classifyStorageErr(err))
	}
	defer rows.Close()

	var records []*StoredPreset
	for rows.Next() {
		rec, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeletePreset удаляет заготовку.
func (q *queries) DeletePreset(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id); err != nil {
		return fmt.Errorf("ошибка удаления заготовки: %w", classifyStorageErr(err))
	}
	return nil
}

// RewritePresetID заменяет временный идентификатор заготовки серверным
// в заготовке, в ссылках из записей дневника (preset_id) и в outbox.
// Это случай замены через два разных хранилища записей.
func (q *queries) RewritePresetID(ctx context.Context, oldID, newID string) error {
	if _, err := q.q.ExecContext(ctx,
		"UPDATE presets SET id = ?, synced = 1 WHERE id = ?", newID, oldID); err != nil {
		return fmt.Errorf("ошибка замены идентификатора заготовки: %w", classifyStorageErr(err))
	}
	if _, err := q.q.ExecContext(ctx,
		"UPDATE entries SET preset_id = ? WHERE preset_id = ?", newID, oldID); err != nil {
		return fmt.Errorf("ошибка замены ссылки на заготовку: %w", classifyStorageErr(err))
	}
	if _, err := q.q.ExecContext(ctx,
		"UPDATE outbox SET record_id = ? WHERE record_id = ?", newID, oldID); err != nil {
		return fmt.Errorf("ошибка замены идентификатора в outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// ==================== Настройки ====================

// SaveSettings сохраняет настройки пользователя (upsert).
func (q *queries) SaveSettings(ctx context.Context, userID string, data []byte, updatedAt time.Time, synced bool) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (user_id, updated_at, synced, data)
		VALUES (?, ?, ?, ?)
	`, userID, fmtTime(updatedAt), synced, data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", classifyStorageErr(err))
	}
	return nil
}

// GetSettings возвращает зашифрованные настройки и время их обновления.
func (q *queries) GetSettings(ctx context.Context, userID string) ([]byte, time.Time, error) {
	var data []byte
	var updatedAt string

	err := q.q.QueryRowContext(ctx,
		"SELECT data, updated_at FROM settings WHERE user_id = ?", userID).
		Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("ошибка чтения настроек: %w", classifyStorageErr(err))
	}
	return data, parseTime(updatedAt), nil
}

// MarkSettingsSynced помечает настройки подтвержденными сервером.
func (q *queries) MarkSettingsSynced(ctx context.Context, userID string) error {
	_, err := q.q.ExecContext(ctx, "UPDATE settings SET synced = 1 WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("ошибка обновления настроек: %w", classifyStorageErr(err))
	}
	return nil
}

// SettingsSynced сообщает, подтверждены ли настройки сервером.
func (q *queries) SettingsSynced(ctx context.Context, userID string) (bool, error) {
	var synced bool
	err := q.q.QueryRowContext(ctx, "SELECT synced FROM settings WHERE user_id = ?", userID).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения настроек: %w", classifyStorageErr(err))
	}
	return synced, nil
}

// ==================== Справочник продуктов ====================

// UpsertFoodItems обновляет элементы справочника.
func (q *queries) UpsertFoodItems(ctx context.Context, items []catalog.FoodItem) error {
	now := fmtTime(time.Now())
	for _, item := range items {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO food_catalog (id, name, kcal_per_100g, last_accessed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				kcal_per_100g = excluded.kcal_per_100g
		`, item.ID, item.Name, item.KcalPer100g, now)
		if err != nil {
			return fmt.Errorf("ошибка обновления справочника: %w", classifyStorageErr(err))
		}
	}
	return nil
}

// SearchFood ищет продукты по подстроке имени и отмечает обращение
// к найденным (задел под вытеснение по давности).
func (q *queries) SearchFood(ctx context.Context, query string, limit int) ([]catalog.FoodItem, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT id, name, kcal_per_100g, last_accessed_at
		FROM food_catalog WHERE name LIKE ? ORDER BY name ASC LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска по справочнику: %w", classifyStorageErr(err))
	}
	defer rows.Close()

	var items []catalog.FoodItem
	for rows.Next() {
		var item catalog.FoodItem
		var accessed string
		if err := rows.Scan(&item.ID, &item.Name, &item.KcalPer100g, &accessed); err != nil {
			return nil, fmt.Errorf("ошибка чтения справочника: %w", classifyStorageErr(err))
		}
		item.LastAccessedAt = parseTime(accessed)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := fmtTime(time.Now())
	for _, item := range items {
		if _, err := q.q.ExecContext(ctx,
			"UPDATE food_catalog SET last_accessed_at = ? WHERE id = ?", now, item.ID); err != nil {
			return nil, fmt.Errorf("ошибка отметки обращения: %w", classifyStorageErr(err))
		}
	}
	return items, nil
}

// ==================== Outbox ====================

// Enqueue ставит мутацию в очередь. Payload приходит уже зашифрованным.
func (q *queries) Enqueue(ctx context.Context, e *outbox.Entry, payload []byte) error {
	// У мутаций удаления нет полезной нагрузки, но nil улетел бы в NULL.
	if payload == nil {
		payload = []byte{}
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO outbox (user_id, entity, op, record_id, payload, created_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, 0, '')
	`, e.UserID, string(e.Entity), string(e.Op), e.RecordID, payload, fmtTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("ошибка постановки в outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// ListOutbox возвращает очередь пользователя строго в порядке создания.
// Порядок не меняется никогда: автоинкрементный id разруливает равные
// отметки времени.
func (q *queries) ListOutbox(ctx context.Context, userID string) ([]*outbox.Entry, [][]byte, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, user_id, entity, op, record_id, payload, created_at, retry_count, last_error
		FROM outbox WHERE user_id = ? ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения outbox: %w", classifyStorageErr(err))
	}
	defer rows.Close()

	var entries []*outbox.Entry
	var payloads [][]byte
	for rows.Next() {
		var e outbox.Entry
		var entity, op, createdAt string
		var payload []byte

		if err := rows.Scan(&e.ID, &e.UserID, &entity, &op, &e.RecordID,
			&payload, &createdAt, &e.RetryCount, &e.LastError); err != nil {
			return nil, nil, fmt.Errorf("ошибка чтения элемента outbox: %w", classifyStorageErr(err))
		}

		e.Entity = outbox.EntityType(entity)
		e.Op = outbox.Operation(op)
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
		payloads = append(payloads, payload)
	}
	return entries, payloads, rows.Err()
}

// DeleteOutboxByRecord снимает из очереди все мутации записи. Нужен,
// когда пользователь удаляет запись, которая еще не побывала на сервере:
// слать нечего, create и delete взаимно уничтожаются.
func (q *queries) DeleteOutboxByRecord(ctx context.Context, recordID string) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM outbox WHERE record_id = ?", recordID); err != nil {
		return fmt.Errorf("ошибка удаления элементов outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// UpdateOutboxRetry фиксирует неудачную попытку на элементе очереди.
func (q *queries) UpdateOutboxRetry(ctx context.Context, id int64, retryCount int, lastError string) error {
	_, err := q.q.ExecContext(ctx,
		"UPDATE outbox SET retry_count = ?, last_error = ? WHERE id = ?",
		retryCount, lastError, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления элемента outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// DeleteOutbox удаляет элемент очереди: после подтверждения сервером
// либо после исчерпания повторов.
func (q *queries) DeleteOutbox(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM outbox WHERE id = ?", id); err != nil {
		return fmt.Errorf("ошибка удаления элемента outbox: %w", classifyStorageErr(err))
	}
	return nil
}

// ==================== Флаги и токены ====================

// GetFlag возвращает значение персистентного флага.
func (q *queries) GetFlag(ctx context.Context, key string) (string, error) {
	var value string
	err := q.q.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ошибка чтения флага: %w", classifyStorageErr(err))
	}
	return value, nil
}

// SetFlag сохраняет персистентный флаг.
func (q *queries) SetFlag(ctx context.Context, key, value string) error {
	_, err := q.q.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("ошибка сохранения флага: %w", classifyStorageErr(err))
	}
	return nil
}

// GetToken возвращает строку хранилища токенов.
func (q *queries) GetToken(ctx context.Context, userID string) (*StoredToken, error) {
	var rec StoredToken
	var storedAt, expiresAt string

	err := q.q.QueryRowContext(ctx, `
		SELECT user_id, ciphertext, salt, stored_at, expires_at, version
		FROM token_vault WHERE user_id = ?
	`, userID).Scan(&rec.UserID, &rec.Ciphertext, &rec.Salt, &storedAt, &expiresAt, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения токена: %w", classifyStorageErr(err))
	}

	rec.StoredAt = parseTime(storedAt)
	rec.ExpiresAt = parseTime(expiresAt)
	return &rec, nil
}

// PutToken сохраняет строку хранилища токенов (не более одной на пользователя).
func (q *queries) PutToken(ctx context.Context, rec *StoredToken) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO token_vault (user_id, ciphertext, salt, stored_at, expires_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.Ciphertext, rec.Salt, fmtTime(rec.StoredAt), fmtTime(rec.ExpiresAt), rec.Version)
	if err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", classifyStorageErr(err))
	}
	return nil
}

// DeleteToken удаляет токен пользователя.
func (q *queries) DeleteToken(ctx context.Context, userID string) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM token_vault WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("ошибка удаления токена: %w", classifyStorageErr(err))
	}
	return nil
}
