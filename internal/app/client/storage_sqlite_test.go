package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/outbox"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("не удалось открыть хранилище: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreOpenIdempotent(t *testing.T) {
	store := newTestStore(t)

	// Повторное открытие не должно ничего ломать
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("повторное открытие вернуло ошибку: %v", err)
	}
}

func TestEntryCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, err := store.queries()
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := &StoredEntry{
		ID:            "local-abc",
		UserID:        "user-1",
		CorrelationID: "corr-1",
		LoggedAt:      now,
		CreatedAt:     now,
		Data:          []byte("blob"),
	}
	if err := q.SaveEntry(ctx, rec); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	got, err := q.GetEntry(ctx, "local-abc")
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if got.CorrelationID != "corr-1" || !got.LoggedAt.Equal(now) {
		t.Errorf("запись прочитана неверно: %+v", got)
	}

	byCorr, err := q.EntryByCorrelation(ctx, "corr-1")
	if err != nil || byCorr.ID != "local-abc" {
		t.Errorf("поиск по корреляции не нашел запись: %v", err)
	}

	if err := q.DeleteEntry(ctx, "local-abc"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, err := q.GetEntry(ctx, "local-abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено: %v", err)
	}
}

func TestListEntriesFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = q.SaveEntry(ctx, &StoredEntry{
			ID:            fmt.Sprintf("e-%d", i),
			UserID:        "user-1",
			CorrelationID: fmt.Sprintf("c-%d", i),
			LoggedAt:      base.Add(time.Duration(i) * time.Hour),
			CreatedAt:     base,
			Data:          []byte("x"),
		})
	}

	got, err := q.ListEntries(ctx, entry.Filter{
		UserID: "user-1",
		From:   base.Add(30 * time.Minute),
		To:     base.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "e-1" {
		t.Errorf("фильтр по времени отработал неверно: %+v", got)
	}
}

func TestOutboxFIFO(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	// Одинаковое created_at: порядок разруливает автоинкрементный id
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		err := q.Enqueue(ctx, &outbox.Entry{
			UserID:    "user-1",
			Entity:    outbox.EntityEntry,
			Op:        outbox.OpCreate,
			RecordID:  fmt.Sprintf("rec-%d", i),
			CreatedAt: now,
		}, []byte("p"))
		if err != nil {
			t.Fatal(err)
		}
	}

	items, _, err := q.ListOutbox(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 {
		t.Fatalf("ожидалось 5 элементов, получено %d", len(items))
	}
	for i, item := range items {
		if item.RecordID != fmt.Sprintf("rec-%d", i) {
			t.Errorf("порядок очереди нарушен: позиция %d, запись %s", i, item.RecordID)
		}
	}
}

func TestRewriteEntryID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	now := time.Now().UTC()
	_ = q.SaveEntry(ctx, &StoredEntry{
		ID: "local-1", UserID: "u", CorrelationID: "c1",
		LoggedAt: now, CreatedAt: now, Data: []byte("x"),
	})
	_ = q.Enqueue(ctx, &outbox.Entry{
		UserID: "u", Entity: outbox.EntityEntry, Op: outbox.OpDelete,
		RecordID: "local-1", CreatedAt: now,
	}, nil)

	if err := q.RewriteEntryID(ctx, "local-1", "srv-9"); err != nil {
		t.Fatal(err)
	}

	got, err := q.GetEntry(ctx, "srv-9")
	if err != nil {
		t.Fatalf("запись под новым id не найдена: %v", err)
	}
	if !got.Synced {
		t.Error("запись должна быть помечена синхронизированной")
	}

	items, _, _ := q.ListOutbox(ctx, "u")
	if len(items) != 1 || items[0].RecordID != "srv-9" {
		t.Errorf("record_id в outbox не переписан: %+v", items)
	}
}

func TestRewritePresetIDCrossStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	now := time.Now().UTC()
	_ = q.SavePreset(ctx, &StoredPreset{
		ID: "local-p", UserID: "u", CorrelationID: "cp",
		Name: "обед", CreatedAt: now, Data: []byte("x"),
	})
	_ = q.SaveEntry(ctx, &StoredEntry{
		ID: "e-1", UserID: "u", CorrelationID: "ce", PresetID: "local-p",
		LoggedAt: now, CreatedAt: now, Data: []byte("x"),
	})

	if err := q.RewritePresetID(ctx, "local-p", "srv-p"); err != nil {
		t.Fatal(err)
	}

	if _, err := q.GetPreset(ctx, "srv-p"); err != nil {
		t.Fatalf("заготовка под новым id не найдена: %v", err)
	}
	e, _ := q.GetEntry(ctx, "e-1")
	if e.PresetID != "srv-p" {
		t.Errorf("ссылка из записи не переписана: %s", e.PresetID)
	}
}

func TestInTxRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	wantErr := errors.New("искусственный сбой")
	err := store.InTx(ctx, func(tx *Tx) error {
		if err := tx.SaveEntry(ctx, &StoredEntry{
			ID: "e-tx", UserID: "u", CorrelationID: "c",
			LoggedAt: now, CreatedAt: now, Data: []byte("x"),
		}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("ожидалась ошибка транзакции, получено: %v", err)
	}

	q, _ := store.queries()
	if _, err := q.GetEntry(ctx, "e-tx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("запись пережила откат транзакции: %v", err)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	now := time.Now().UTC()
	_ = q.SaveEntry(ctx, &StoredEntry{
		ID: "e-1", UserID: "u", CorrelationID: "c",
		LoggedAt: now, CreatedAt: now, Data: []byte("x"),
	})
	_ = q.Enqueue(ctx, &outbox.Entry{
		UserID: "u", Entity: outbox.EntityEntry, Op: outbox.OpCreate,
		RecordID: "e-1", CreatedAt: now,
	}, nil)

	if err := store.ClearAll(ctx, "u"); err != nil {
		t.Fatal(err)
	}

	count, _ := q.PendingCount(ctx, "u")
	if count != 0 {
		t.Errorf("outbox не очищен: %d", count)
	}
	if _, err := q.GetEntry(ctx, "e-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("записи не очищены: %v", err)
	}
}

func TestMetaFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q, _ := store.queries()

	v, err := q.GetFlag(ctx, "нет-такого")
	if err != nil || v != "" {
		t.Errorf("отсутствующий флаг должен быть пустым: %q, %v", v, err)
	}

	if err := q.SetFlag(ctx, "f", "1"); err != nil {
		t.Fatal(err)
	}
	v, _ = q.GetFlag(ctx, "f")
	if v != "1" {
		t.Errorf("флаг не сохранился: %q", v)
	}
}
