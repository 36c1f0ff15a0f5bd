package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/crypto"
)

// flagTokenVaultMigrated - персистентный флаг: перенос токена из
// старого открытого файла уже выполнен. Перенос делается ровно один раз,
// даже если файл появится снова.
const flagTokenVaultMigrated = "token_vault_migrated"

// TokenVault хранит токены авторизации зашифрованными в локальной базе.
// Не более одного токена на пользователя. Истекший токен не выбрасывается:
// он отдается как последняя надежда, сервер сам ответит 401, и цикл
// синхронизации обработает это штатно.
type TokenVault struct {
	store *Store
	ks    *crypto.Keystore
	log   *slog.Logger

	// legacyPath - путь к старому открытому файлу токена, откуда
	// делается одноразовый перенос.
	legacyPath string

	mu    sync.Mutex
	cache map[string]cachedToken
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

func NewTokenVault(store *Store, ks *crypto.Keystore, legacyPath string, log *slog.Logger) *TokenVault {
	return &TokenVault{
		store:      store,
		ks:         ks,
		log:        log,
		legacyPath: legacyPath,
		cache:      make(map[string]cachedToken),
	}
}

// StoreToken шифрует и сохраняет токен пользователя. Соль генерируется
// на каждый вызов, поэтому два сохранения одного токена дают разные блобы.
func (v *TokenVault) StoreToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	ciphertext, salt, err := crypto.EncryptWithSecret(v.ks.Secret(userID), []byte(token))
	if err != nil {
		return fmt.Errorf("ошибка шифрования токена: %w", err)
	}

	q, err := v.store.queries()
	if err != nil {
		return err
	}

	rec := &StoredToken{
		UserID:     userID,
		Ciphertext: ciphertext,
		Salt:       salt,
		StoredAt:   time.Now().UTC(),
		ExpiresAt:  expiresAt,
		Version:    int(crypto.KeyVersionCurrent),
	}
	if err := q.PutToken(ctx, rec); err != nil {
		return err
	}

	v.mu.Lock()
	v.cache[userID] = cachedToken{token: token, expiresAt: expiresAt}
	v.mu.Unlock()
	return nil
}

// Token возвращает токен пользователя. Сначала смотрит кэш сессии,
// затем базу. Истекший токен возвращается с предупреждением в лог:
// обновить его может только повторный вход, а попытка с истекшим
// токеном дешевле, чем молчаливый отказ.
func (v *TokenVault) Token(ctx context.Context, userID string) (string, error) {
	v.mu.Lock()
	if c, ok := v.cache[userID]; ok {
		v.mu.Unlock()
		if c.expired() {
			v.log.Warn("токен истек, используем как есть", slog.String("user_id", userID))
		}
		return c.token, nil
	}
	v.mu.Unlock()

	q, err := v.store.queries()
	if err != nil {
		return "", err
	}

	rec, err := q.GetToken(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		// Возможно, токен еще лежит в старом открытом файле.
		if tok, ok := v.migrateLegacy(ctx, userID); ok {
			return tok, nil
		}
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	plaintext, err := crypto.DecryptWithSecret(v.ks.Secret(userID), rec.Salt, rec.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("ошибка расшифровки токена: %w", err)
	}

	c := cachedToken{token: string(plaintext), expiresAt: rec.ExpiresAt}
	v.mu.Lock()
	v.cache[userID] = c
	v.mu.Unlock()

	if c.expired() {
		v.log.Warn("токен истек, используем как есть", slog.String("user_id", userID))
	}
	return c.token, nil
}

// IsExpired сообщает, истек ли сохраненный токен. Отсутствие токена -
// ErrNotFound.
func (v *TokenVault) IsExpired(ctx context.Context, userID string) (bool, error) {
	v.mu.Lock()
	if c, ok := v.cache[userID]; ok {
		v.mu.Unlock()
		return c.expired(), nil
	}
	v.mu.Unlock()

	q, err := v.store.queries()
	if err != nil {
		return false, err
	}

	rec, err := q.GetToken(ctx, userID)
	if err != nil {
		return false, err
	}
	return !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt), nil
}

// Forget сбрасывает кэш сессии, не трогая базу. Вызывается после отказа
// сервера в авторизации: повторная попытка перечитает токен из базы,
// куда его мог успеть обновить повторный вход.
func (v *TokenVault) Forget(userID string) {
	v.mu.Lock()
	delete(v.cache, userID)
	v.mu.Unlock()
}

// Clear удаляет токен пользователя из базы и из кэша сессии.
func (v *TokenVault) Clear(ctx context.Context, userID string) error {
	v.mu.Lock()
	delete(v.cache, userID)
	v.mu.Unlock()

	q, err := v.store.queries()
	if err != nil {
		return err
	}
	return q.DeleteToken(ctx, userID)
}

// migrateLegacy переносит токен из старого открытого файла в зашифрованное
// хранилище. Перенос выполняется один раз: успех фиксируется флагом,
// файл удаляется. Срок действия перенесенного токена неизвестен,
// поэтому он считается неистекшим до первого 401.
func (v *TokenVault) migrateLegacy(ctx context.Context, userID string) (string, bool) {
	q, err := v.store.queries()
	if err != nil {
		return "", false
	}

	if done, _ := q.GetFlag(ctx, flagTokenVaultMigrated); done == "1" {
		return "", false
	}

	raw, err := os.ReadFile(v.legacyPath)
	if err != nil {
		// Файла нет - переносить нечего, но флаг ставим, чтобы
		// не проверять путь на каждом промахе кэша.
		if os.IsNotExist(err) {
			_ = q.SetFlag(ctx, flagTokenVaultMigrated, "1")
		}
		return "", false
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		_ = q.SetFlag(ctx, flagTokenVaultMigrated, "1")
		_ = os.Remove(v.legacyPath)
		return "", false
	}

	if err := v.StoreToken(ctx, userID, token, time.Time{}); err != nil {
		v.log.Error("ошибка переноса токена из старого файла", slog.String("error", err.Error()))
		return "", false
	}

	_ = q.SetFlag(ctx, flagTokenVaultMigrated, "1")
	if err := os.Remove(v.legacyPath); err != nil {
		v.log.Warn("не удалось удалить старый файл токена", slog.String("error", err.Error()))
	}

	v.log.Info("токен перенесен из старого файла в защищенное хранилище")
	return token, true
}

func (c cachedToken) expired() bool {
	return !c.expiresAt.IsZero() && time.Now().After(c.expiresAt)
}
