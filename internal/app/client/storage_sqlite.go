package client

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeout - предел кооперативного ожидания, пока базу держит другое
// подключение. По истечении всплывает ErrStorageBlocked.
const busyTimeout = 5 * time.Second

// StoredEntry - строка записи дневника в локальном хранилище.
// Индексируемые поля лежат в колонках, сам домен - зашифрованным блобом.
type StoredEntry struct {
	ID            string
	UserID        string
	CorrelationID string
	PresetID      string
	LoggedAt      time.Time
	CreatedAt     time.Time
	Synced        bool
	Data          []byte
}

// StoredPreset - строка заготовки. Имя хранится открыто: по нему идет
// локальная проверка уникальности и поиск.
type StoredPreset struct {
	ID            string
	UserID        string
	CorrelationID string
	Name          string
	CreatedAt     time.Time
	Synced        bool
	Data          []byte
}

// StoredToken - строка хранилища токенов.
type StoredToken struct {
	UserID     string
	Ciphertext []byte
	Salt       []byte
	StoredAt   time.Time
	ExpiresAt  time.Time
	Version    int
}

// Store - версионированное локальное хранилище поверх SQLite.
// Open идемпотентен: конкурентные вызовы ждут одно общее открытие.
type Store struct {
	path string
	log  *slog.Logger

	mu      sync.Mutex
	db      *sql.DB
	opening chan struct{}
	openErr error
}

// NewStore создает хранилище. База открывается отдельным вызовом Open.
func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Open открывает базу и прогоняет миграции. Повторный вызов возвращается
// сразу; вызов во время открытия другим вызывающим ждет его результата,
// а не открывает базу второй раз.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.db != nil {
		s.mu.Unlock()
		return nil
	}
	if s.opening != nil {
		ch := s.opening
		s.mu.Unlock()
		select {
		case <-ch:
			s.mu.Lock()
			err := s.openErr
			s.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	s.opening = ch
	s.mu.Unlock()

	db, err := s.open(ctx)

	s.mu.Lock()
	if err == nil {
		s.db = db
	}
	s.openErr = err
	s.opening = nil
	close(ch)
	s.mu.Unlock()

	return err
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d",
		s.path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", classifyStorageErr(err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", classifyStorageErr(err))
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка миграции схемы: %w", classifyStorageErr(err))
	}

	s.log.Debug("Локальное хранилище открыто", "path", s.path)
	return db, nil
}

// runMigrations накатывает встроенные миграции. Схема меняется только
// аддитивно, поэтому догоняющее устройство проходит все версии подряд.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("ошибка инициализации мигратора: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("ошибка создания мигратора: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}
	return nil
}

// Close закрывает базу. Открытие после закрытия допустимо.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ClearAll удаляет все данные пользователя из всех коллекций.
func (s *Store) ClearAll(ctx context.Context, userID string) error {
	q, err := s.queries()
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM entries WHERE user_id = ?",
		"DELETE FROM presets WHERE user_id = ?",
		"DELETE FROM settings WHERE user_id = ?",
		"DELETE FROM outbox WHERE user_id = ?",
		"DELETE FROM token_vault WHERE user_id = ?",
	} {
		if _, err := q.q.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("ошибка очистки хранилища: %w", classifyStorageErr(err))
		}
	}
	return nil
}

// InTx выполняет fn в одной транзакции. Локальная мутация и постановка
// в outbox всегда идут одной транзакцией, чтобы сбой между ними не оставил
// outbox-элемент без записи (или наоборот).
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return fmt.Errorf("%w: база данных не открыта", ErrStorageUnavailable)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", classifyStorageErr(err))
	}

	if err := fn(&Tx{queries{tx}}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", classifyStorageErr(err))
	}
	return nil
}

// Tx - транзакционный срез операций хранилища.
type Tx struct {
	queries
}

func (s *Store) queries() (*queries, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("%w: база данных не открыта", ErrStorageUnavailable)
	}
	return &queries{db}, nil
}

// dbtx - общий срез *sql.DB и *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q dbtx
}

// classifyStorageErr переводит коды SQLite в таксономию ошибок хранилища.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}

	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", ErrStorageBlocked, err)
		case sqlite3.ErrFull, sqlite3.ErrReadonly, sqlite3.ErrCantOpen,
			sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrPerm:
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	return err
}

// Фиксированная ширина дробной части: строки сравниваются в SQL
// лексикографически, переменная длина RFC3339Nano ломает ORDER BY и диапазоны.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
