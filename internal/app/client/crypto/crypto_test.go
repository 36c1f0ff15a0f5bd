package crypto

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestKeystore(t *testing.T) *Keystore {
	t.Helper()

	ks, err := NewKeystore(filepath.Join(t.TempDir(), ".keystore"))
	if err != nil {
		t.Fatalf("Ошибка создания keystore: %v", err)
	}
	return ks
}

func TestCipherRoundTrip(t *testing.T) {
	ks := newTestKeystore(t)
	c := NewCipher(ks, "user-42")

	plaintext := []byte(`{"food_id":"f1","portion_grams":100}`)

	blob, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if bytes.Contains(blob, []byte("food_id")) {
		t.Error("Шифротекст не должен содержать открытых данных")
	}

	decrypted, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Ошибка расшифровки: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Error("Расшифрованные данные не совпадают с оригиналом")
	}
}

func TestCipherLegacyFallback(t *testing.T) {
	ks := newTestKeystore(t)
	c := NewCipher(ks, "user-42")

	plaintext := []byte("данные, записанные до усиления ключа")

	// Явно шифруем наследуемой версией ключа
	legacyBlob, err := c.encryptWithVersion(KeyVersionLegacy, plaintext)
	if err != nil {
		t.Fatalf("Ошибка шифрования наследуемым ключом: %v", err)
	}

	decrypted, err := c.Decrypt(legacyBlob)
	if err != nil {
		t.Fatalf("Наследуемый блоб должен расшифровываться: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("Расшифрованные данные не совпадают с оригиналом")
	}
}

func TestCipherPreEnvelopeBlob(t *testing.T) {
	ks := newTestKeystore(t)
	c := NewCipher(ks, "user-42")

	// Блоб доконвертного формата: сырой AES-GCM на наследуемом ключе,
	// без маркера и байта версии.
	key, err := ks.Key("user-42", KeyVersionLegacy)
	if err != nil {
		t.Fatalf("Ошибка вывода ключа: %v", err)
	}

	plaintext := []byte("старый формат")
	raw, err := encryptWithKey(key, plaintext)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	decrypted, err := c.Decrypt(raw)
	if err != nil {
		t.Fatalf("Доконвертный блоб должен расшифровываться: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("Расшифрованные данные не совпадают с оригиналом")
	}
}

func TestCipherWrongUser(t *testing.T) {
	ks := newTestKeystore(t)

	blob, err := NewCipher(ks, "user-a").Encrypt([]byte("секрет"))
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	_, err = NewCipher(ks, "user-b").Decrypt(blob)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Ожидалась ErrDecryptionFailed, получено: %v", err)
	}
}

func TestReencryptIfLegacy(t *testing.T) {
	ks := newTestKeystore(t)
	c := NewCipher(ks, "user-42")

	plaintext := []byte("перешифруй меня")

	legacyBlob, err := c.encryptWithVersion(KeyVersionLegacy, plaintext)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	upgraded, changed, err := c.ReencryptIfLegacy(legacyBlob)
	if err != nil {
		t.Fatalf("Ошибка перешифрования: %v", err)
	}
	if !changed {
		t.Error("Наследуемый блоб должен быть перешифрован")
	}

	if version, _ := splitEnvelope(upgraded); version != KeyVersionCurrent {
		t.Errorf("Ожидалась текущая версия ключа, получена: %d", version)
	}

	decrypted, err := c.Decrypt(upgraded)
	if err != nil {
		t.Fatalf("Ошибка расшифровки: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("Данные изменились при перешифровании")
	}

	// Повторный вызов - no-op
	same, changed, err := c.ReencryptIfLegacy(upgraded)
	if err != nil {
		t.Fatalf("Ошибка повторного вызова: %v", err)
	}
	if changed {
		t.Error("Актуальный блоб не должен перешифровываться")
	}
	if !bytes.Equal(same, upgraded) {
		t.Error("Актуальный блоб должен вернуться без изменений")
	}
}

func TestKeystorePersistsSalt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")

	ks1, err := NewKeystore(path)
	if err != nil {
		t.Fatalf("Ошибка создания keystore: %v", err)
	}

	blob, err := NewCipher(ks1, "user-42").Encrypt([]byte("переживи перезапуск"))
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	// Новый процесс: keystore загружается из того же файла
	ks2, err := NewKeystore(path)
	if err != nil {
		t.Fatalf("Ошибка загрузки keystore: %v", err)
	}

	decrypted, err := NewCipher(ks2, "user-42").Decrypt(blob)
	if err != nil {
		t.Fatalf("Данные должны читаться после перезапуска: %v", err)
	}
	if string(decrypted) != "переживи перезапуск" {
		t.Error("Расшифрованные данные не совпадают с оригиналом")
	}

	// Файл с правами только для владельца
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Ошибка чтения файла: %v", err)
	}
	if info.Mode().Perm() != keystorePermissions {
		t.Errorf("Неверные права файла ключей: %v", info.Mode().Perm())
	}
}

func TestKeystoreClear(t *testing.T) {
	ks := newTestKeystore(t)

	key, err := ks.Key("user-42", KeyVersionCurrent)
	if err != nil {
		t.Fatalf("Ошибка вывода ключа: %v", err)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	ks.Clear()

	for _, b := range key {
		if b != 0 {
			t.Fatal("Ключ должен быть затерт нулями")
		}
	}

	// После очистки ключ выводится заново и совпадает с прежним
	again, err := ks.Key("user-42", KeyVersionCurrent)
	if err != nil {
		t.Fatalf("Ошибка повторного вывода ключа: %v", err)
	}
	if !bytes.Equal(again, keyCopy) {
		t.Error("Повторно выведенный ключ должен совпадать")
	}
}

func TestEncryptWithSecretUniqueSalt(t *testing.T) {
	secret := []byte("user-42")
	token := []byte("bearer-token")

	ct1, salt1, err := EncryptWithSecret(secret, token)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	ct2, salt2, err := EncryptWithSecret(secret, token)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if bytes.Equal(salt1, salt2) {
		t.Error("Соль не должна переиспользоваться между вызовами")
	}
	if bytes.Equal(ct1, ct2) {
		t.Error("Шифротексты одинаковых данных не должны совпадать")
	}

	for _, tc := range []struct {
		ct, salt []byte
	}{{ct1, salt1}, {ct2, salt2}} {
		decrypted, err := DecryptWithSecret(secret, tc.salt, tc.ct)
		if err != nil {
			t.Fatalf("Ошибка расшифровки: %v", err)
		}
		if !bytes.Equal(decrypted, token) {
			t.Error("Расшифрованный токен не совпадает с оригиналом")
		}
	}
}
