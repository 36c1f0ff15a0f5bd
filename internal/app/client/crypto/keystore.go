// Package crypto отвечает за шифрование локальных данных пользователя.
//
// Ключи выводятся из стабильного идентификатора пользователя и соли,
// сгенерированной один раз на установку. Соль хранится в отдельном файле
// вне базы данных; если файл утерян, все зашифрованные локальные записи
// становятся нечитаемыми навсегда. Это осознанный компромисс: чтение
// локальных данных не требует похода на сервер.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// KeyVersion - версия схемы вывода ключа. Каждый зашифрованный блоб
// записывает версию, которой был зашифрован, поэтому расшифровка - прямая
// диспетчеризация, а не перебор ключей.
type KeyVersion byte

const (
	// KeyVersionLegacy - старая, слабая схема (меньше итераций PBKDF2).
	// Используется только для чтения данных, зашифрованных до миграции.
	KeyVersionLegacy KeyVersion = 1
	// KeyVersionCurrent - текущая схема. Шифрование всегда идет ей.
	KeyVersionCurrent KeyVersion = 2
)

const (
	legacyIterations  = 10_000
	currentIterations = 100_000
	keyLength         = 32 // 256 бит для AES-256
	saltLength        = 16

	keystorePermissions = 0600
)

// ErrDecryptionFailed - данные не удалось расшифровать ни одной известной
// версией ключа. Для вызывающего это риск потери данных, а не повод
// молча продолжать.
var ErrDecryptionFailed = errors.New("не удалось расшифровать данные")

type keystoreFile struct {
	Salt      string    `json:"salt"`
	CreatedAt time.Time `json:"created_at"`
}

// Keystore хранит соль установки и кэширует выведенные ключи, чтобы не
// гонять PBKDF2 на каждое обращение в рамках сессии.
type Keystore struct {
	path string

	mu   sync.RWMutex
	salt []byte
	keys map[string][]byte // userID+version -> ключ
}

// NewKeystore загружает файл соли или создает его при первом запуске.
func NewKeystore(path string) (*Keystore, error) {
	ks := &Keystore{
		path: path,
		keys: make(map[string][]byte),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f keystoreFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ошибка декодирования файла ключей: %w", err)
		}
		salt, err := hex.DecodeString(f.Salt)
		if err != nil {
			return nil, fmt.Errorf("ошибка декодирования соли: %w", err)
		}
		ks.salt = salt
	case os.IsNotExist(err):
		if err := ks.generate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("ошибка чтения файла ключей: %w", err)
	}

	return ks, nil
}

func (k *Keystore) generate() error {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("ошибка генерации соли: %w", err)
	}

	f := keystoreFile{
		Salt:      hex.EncodeToString(salt),
		CreatedAt: time.Now(),
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	if err := os.WriteFile(k.path, data, keystorePermissions); err != nil {
		return fmt.Errorf("ошибка записи файла ключей: %w", err)
	}

	k.salt = salt
	return nil
}

// Key возвращает ключ пользователя для указанной версии схемы,
// выводя его при первом обращении.
func (k *Keystore) Key(userID string, version KeyVersion) ([]byte, error) {
	if userID == "" {
		return nil, fmt.Errorf("идентификатор пользователя не может быть пустым")
	}

	cacheKey := fmt.Sprintf("%s/%d", userID, version)

	k.mu.RLock()
	if key, ok := k.keys[cacheKey]; ok {
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()

	var iterations int
	switch version {
	case KeyVersionLegacy:
		iterations = legacyIterations
	case KeyVersionCurrent:
		iterations = currentIterations
	default:
		return nil, fmt.Errorf("неизвестная версия ключа: %d", version)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[cacheKey]; ok {
		return key, nil
	}

	key := pbkdf2.Key([]byte(userID), k.salt, iterations, keyLength, sha256.New)
	k.keys[cacheKey] = key
	return key, nil
}

// Secret возвращает материал для шифрования вне основного хранилища
// (хранилище токенов). Материал привязан к установке и пользователю,
// но не кэшируется как ключ.
func (k *Keystore) Secret(userID string) []byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	secret := make([]byte, 0, len(k.salt)+len(userID))
	secret = append(secret, k.salt...)
	secret = append(secret, userID...)
	return secret
}

// Clear затирает кэшированные ключи в памяти. Вызывается при выходе
// пользователя.
func (k *Keystore) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for id, key := range k.keys {
		for i := range key {
			key[i] = 0
		}
		delete(k.keys, id)
	}
}
