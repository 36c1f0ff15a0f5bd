package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Байты-маркеры версионированного конверта. Блобы без маркера считаются
// данными доконвертного формата, зашифрованными наследуемой схемой.
var envelopeMagic = []byte{0x4E, 0x4C} // "NL"

// Cipher шифрует и расшифровывает данные одного пользователя.
// Шифрование всегда идет текущей версией ключа; при расшифровке версия
// читается из конверта.
type Cipher struct {
	ks     *Keystore
	userID string
}

// NewCipher создает шифровальщик для пользователя.
func NewCipher(ks *Keystore, userID string) *Cipher {
	return &Cipher{ks: ks, userID: userID}
}

// Encrypt шифрует данные текущей версией ключа и упаковывает в конверт
// вида magic || version || nonce || ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.encryptWithVersion(KeyVersionCurrent, plaintext)
}

func (c *Cipher) encryptWithVersion(version KeyVersion, plaintext []byte) ([]byte, error) {
	key, err := c.ks.Key(c.userID, version)
	if err != nil {
		return nil, err
	}

	sealed, err := encryptWithKey(key, plaintext)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(envelopeMagic)+1+len(sealed))
	out = append(out, envelopeMagic...)
	out = append(out, byte(version))
	out = append(out, sealed...)
	return out, nil
}

// Decrypt расшифровывает конверт, выбирая ключ по записанной в нем версии.
// Блоб без маркера конверта трактуется как данные наследуемого формата.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	version, body := splitEnvelope(blob)

	key, err := c.ks.Key(c.userID, version)
	if err != nil {
		return nil, err
	}

	plaintext, err := decryptWithKey(key, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// ReencryptIfLegacy перешифровывает блоб текущим ключом, если тот был
// зашифрован наследуемой схемой. Возвращает признак изменения - вызывающий
// решает, сохранять ли результат.
func (c *Cipher) ReencryptIfLegacy(blob []byte) ([]byte, bool, error) {
	version, _ := splitEnvelope(blob)
	if version == KeyVersionCurrent {
		return blob, false, nil
	}

	plaintext, err := c.Decrypt(blob)
	if err != nil {
		return nil, false, err
	}

	out, err := c.Encrypt(plaintext)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// EncryptJSON сериализует значение и шифрует его.
func (c *Cipher) EncryptJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return c.Encrypt(data)
}

// DecryptJSON расшифровывает блоб и декодирует JSON в v.
func (c *Cipher) DecryptJSON(blob []byte, v any) error {
	data, err := c.Decrypt(blob)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка парсинга расшифрованных данных: %w", err)
	}
	return nil
}

// UserID возвращает пользователя, которому принадлежит шифровальщик.
func (c *Cipher) UserID() string {
	return c.userID
}

func splitEnvelope(blob []byte) (KeyVersion, []byte) {
	if len(blob) > len(envelopeMagic)+1 &&
		blob[0] == envelopeMagic[0] && blob[1] == envelopeMagic[1] {
		return KeyVersion(blob[2]), blob[3:]
	}
	// Данные записаны до появления конверта - только наследуемый ключ.
	return KeyVersionLegacy, blob
}

// EncryptWithSecret шифрует данные ключом, выведенным из секрета и свежей
// случайной соли. Соль возвращается отдельно и никогда не переиспользуется.
// Используется хранилищем токенов: его ключи не зависят от Keystore.
func EncryptWithSecret(secret, plaintext []byte) (ciphertext, salt []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, fmt.Errorf("ошибка генерации соли: %w", err)
	}

	key := pbkdf2.Key(secret, salt, currentIterations, keyLength, sha256.New)
	ciphertext, err = encryptWithKey(key, plaintext)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, salt, nil
}

// DecryptWithSecret - обратная операция к EncryptWithSecret.
func DecryptWithSecret(secret, salt, ciphertext []byte) ([]byte, error) {
	key := pbkdf2.Key(secret, salt, currentIterations, keyLength, sha256.New)
	plaintext, err := decryptWithKey(key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// encryptWithKey шифрует данные с использованием AES-GCM
func encryptWithKey(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

// decryptWithKey расшифровывает данные с использованием AES-GCM
func decryptWithKey(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("шифротекст слишком короткий")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка расшифровки: %w", err)
	}

	return plaintext, nil
}
