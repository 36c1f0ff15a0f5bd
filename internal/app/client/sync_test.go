package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/crypto"
	"nutrilog/internal/domain/entry"
	"nutrilog/internal/domain/preset"
	"nutrilog/internal/domain/record"
	"nutrilog/internal/domain/remote"
	"nutrilog/internal/domain/settings"
)

// fakeRemote - заглушка удаленного API для тестов движка синхронизации.
type fakeRemote struct {
	mu gosync.Mutex

	calls       []string // порядок сетевых вызовов: "create-entry:<food>", "delete-entry:<id>"...
	nextID      int
	entryErr    error
	presetErr   error
	deleteErr   error
	settingsErr error

	todayEntries   []remote.EntryResponse
	serverSettings *remote.SettingsResponse

	// block, если не nil, останавливает первый вызов CreateEntry до закрытия
	block chan struct{}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) CreateEntry(_ context.Context, req remote.CreateEntryRequest) (*remote.EntryResponse, error) {
	f.mu.Lock()
	f.record("create-entry:" + req.FoodID)
	block := f.block
	err := f.entryErr
	f.nextID++
	id := fmt.Sprintf("srv-e-%d", f.nextID)
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &remote.EntryResponse{
		ID:            id,
		FoodID:        req.FoodID,
		FoodName:      req.FoodName,
		PortionGrams:  req.PortionGrams,
		LoggedAt:      req.LoggedAt,
		CreatedAt:     time.Now().UTC(),
		CorrelationID: req.CorrelationID,
	}, nil
}

func (f *fakeRemote) DeleteEntry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete-entry:" + id)
	return f.deleteErr
}

func (f *fakeRemote) GetTodayEntries(_ context.Context) ([]remote.EntryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.todayEntries, nil
}

func (f *fakeRemote) CreatePreset(_ context.Context, req remote.CreatePresetRequest) (*remote.PresetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-preset:" + req.Name)
	if f.presetErr != nil {
		return nil, f.presetErr
	}
	f.nextID++
	return &remote.PresetResponse{
		ID:            fmt.Sprintf("srv-p-%d", f.nextID),
		Name:          req.Name,
		FoodID:        req.FoodID,
		PortionGrams:  req.PortionGrams,
		CorrelationID: req.CorrelationID,
	}, nil
}

func (f *fakeRemote) DeletePreset(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete-preset:" + id)
	return f.deleteErr
}

func (f *fakeRemote) UpdateSettings(_ context.Context, _ remote.UpdateSettingsRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update-settings")
	return f.settingsErr
}

func (f *fakeRemote) GetSettings(_ context.Context) (*remote.SettingsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.serverSettings == nil {
		return nil, remote.ErrNotFound
	}
	return f.serverSettings, nil
}

func (f *fakeRemote) GetFoodCatalog(_ context.Context) ([]remote.FoodItemResponse, error) {
	return nil, nil
}

func (f *fakeRemote) Health(_ context.Context) error {
	return nil
}

func (f *fakeRemote) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type testEnv struct {
	store   *Store
	cipher  *crypto.Cipher
	api     *fakeRemote
	conn    *Connectivity
	service *Service
	syncMgr *SyncManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "test.db"), slog.Default())
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("не удалось открыть хранилище: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ks, err := crypto.NewKeystore(filepath.Join(dir, ".keystore"))
	if err != nil {
		t.Fatalf("не удалось создать хранилище ключей: %v", err)
	}

	cipher := crypto.NewCipher(ks, "user-1")
	api := &fakeRemote{}
	conn := NewConnectivity(api.Health, slog.Default())

	policy := Policy{
		MaxRetries:     5,
		MaxAuthRetries: 2,
		Interval:       time.Minute,
		SettleDelay:    time.Millisecond,
	}

	return &testEnv{
		store:   store,
		cipher:  cipher,
		api:     api,
		conn:    conn,
		service: NewService(store, cipher, api, conn, slog.Default()),
		syncMgr: NewSyncManager(store, cipher, api, conn, policy, slog.Default()),
	}
}

func (env *testEnv) pending(t *testing.T) int {
	t.Helper()
	n, err := env.service.PendingCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// Добавление без сети сохраняется локально и доезжает до сервера после
// восстановления соединения.
func TestOfflineAddThenSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.conn.SetOnline(false)
	e, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "food-rice", PortionGrams: 150})
	if err != nil {
		t.Fatalf("добавление оффлайн должно работать: %v", err)
	}
	if !record.IsLocalID(e.ID) {
		t.Errorf("запись должна получить локальный id: %s", e.ID)
	}
	if env.pending(t) != 1 {
		t.Fatalf("в очереди должна быть одна мутация")
	}

	// Оффлайн: проход пропускается, очередь не трогается
	if err := env.syncMgr.Sync(ctx); !errors.Is(err, ErrOffline) {
		t.Fatalf("ожидалась ErrOffline, получено: %v", err)
	}
	if got := env.api.callCount("create-entry"); got != 0 {
		t.Fatalf("оффлайн не должен ходить в сеть: %d вызовов", got)
	}

	env.conn.SetOnline(true)
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatalf("синхронизация после восстановления сети: %v", err)
	}

	if env.pending(t) != 0 {
		t.Error("очередь должна опустеть")
	}
	entries, _ := env.service.ListEntries(ctx, entry.Filter{})
	if len(entries) != 1 || record.IsLocalID(entries[0].ID) {
		t.Errorf("временный id должен быть заменен серверным: %+v", entries)
	}
}

// Очередь обрабатывается строго в порядке создания.
func TestSyncFIFOOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	for _, food := range []string{"a", "b", "c"} {
		if _, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: food, PortionGrams: 100}); err != nil {
			t.Fatal(err)
		}
	}

	env.conn.SetOnline(true)
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	want := []string{"create-entry:a", "create-entry:b", "create-entry:c"}
	env.api.mu.Lock()
	defer env.api.mu.Unlock()
	if len(env.api.calls) != len(want) {
		t.Fatalf("ожидалось %d вызовов, получено %d", len(want), len(env.api.calls))
	}
	for i, call := range want {
		if env.api.calls[i] != call {
			t.Errorf("порядок нарушен: позиция %d, вызов %s", i, env.api.calls[i])
		}
	}
}

// Элемент получает ровно MaxRetries сетевых попыток и вытесняется.
func TestRetryCeilingEviction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.api.entryErr = errors.New("временный сбой сервера")
	if _, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "f", PortionGrams: 100}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := env.syncMgr.Sync(ctx); err != nil {
			t.Fatalf("проход %d: %v", i, err)
		}
	}

	if got := env.api.callCount("create-entry"); got != 5 {
		t.Errorf("ожидалось ровно 5 сетевых попыток, было %d", got)
	}
	if env.pending(t) != 0 {
		t.Error("элемент должен быть вытеснен после исчерпания повторов")
	}
	if env.syncMgr.Stats().TotalEvicted != 1 {
		t.Errorf("статистика вытеснений: %+v", env.syncMgr.Stats())
	}

	// Дальнейшие проходы в сеть не ходят
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if got := env.api.callCount("create-entry"); got != 5 {
		t.Errorf("вытесненный элемент не должен повторяться: %d", got)
	}
}

// Отказ в авторизации дает MaxAuthRetries попыток и прерывает проход,
// не трогая очередь.
func TestAuthFailureAbortsPass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	if _, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "a", PortionGrams: 100}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "b", PortionGrams: 100}); err != nil {
		t.Fatal(err)
	}

	env.conn.SetOnline(true)
	env.api.entryErr = remote.ErrUnauthorized

	err := env.syncMgr.Sync(ctx)
	if !errors.Is(err, ErrSyncAuthFailed) {
		t.Fatalf("ожидалась ErrSyncAuthFailed, получено: %v", err)
	}

	if got := env.api.callCount("create-entry:a"); got != 2 {
		t.Errorf("ожидалось 2 попытки авторизации, было %d", got)
	}
	if got := env.api.callCount("create-entry:b"); got != 0 {
		t.Errorf("проход должен прерваться до второго элемента: %d вызовов", got)
	}
	if env.pending(t) != 2 {
		t.Error("очередь должна остаться нетронутой")
	}
}

// Конфликт имени заготовки трактуется как успех.
func TestDuplicatePresetNameIsSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	if _, err := env.service.AddPreset(ctx, &preset.Preset{
		Name: "обед", FoodID: "f", PortionGrams: 200,
	}); err != nil {
		t.Fatal(err)
	}

	env.conn.SetOnline(true)
	env.api.presetErr = remote.ErrDuplicateName

	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatalf("конфликт имени не должен быть ошибкой прохода: %v", err)
	}
	if env.pending(t) != 0 {
		t.Error("мутация должна быть снята с очереди")
	}
}

// Удаление отсутствующей на сервере записи - успех.
func TestDeleteMissingIsSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.store.queries()
	now := time.Now().UTC()
	// Запись с серверным id, известная локально
	_ = q.SaveEntry(ctx, &StoredEntry{
		ID: "srv-1", UserID: "user-1", CorrelationID: "c1",
		LoggedAt: now, CreatedAt: now, Synced: true, Data: mustEncrypt(t, env, &entry.Entry{
			ID: "srv-1", UserID: "user-1", FoodID: "f", PortionGrams: 1,
		}),
	})

	env.api.deleteErr = remote.ErrNotFound
	if err := env.service.DeleteEntry(ctx, "srv-1"); err != nil {
		t.Fatal(err)
	}
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatalf("404 на удалении не должен быть ошибкой: %v", err)
	}
	if env.pending(t) != 0 {
		t.Error("мутация удаления должна быть снята с очереди")
	}
}

// Замена временного id заготовки переписывает ссылки из записей дневника.
func TestPresetIDRewriteCrossStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	p, err := env.service.AddPreset(ctx, &preset.Preset{
		Name: "завтрак", FoodID: "food-oatmeal", PortionGrams: 250,
	})
	if err != nil {
		t.Fatal(err)
	}
	e, err := env.service.LogPreset(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.PresetID != p.ID {
		t.Fatalf("запись должна ссылаться на заготовку: %s", e.PresetID)
	}

	env.conn.SetOnline(true)
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	presets, _ := env.service.ListPresets(ctx)
	if len(presets) != 1 || record.IsLocalID(presets[0].ID) {
		t.Fatalf("заготовка должна получить серверный id: %+v", presets)
	}
	entries, _ := env.service.ListEntries(ctx, entry.Filter{})
	if len(entries) != 1 || entries[0].PresetID != presets[0].ID {
		t.Errorf("ссылка на заготовку не переписана: %+v", entries)
	}
}

// Повторный вызов при идущем проходе возвращает ErrAlreadySyncing сразу.
func TestSyncMutualExclusion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	if _, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "f", PortionGrams: 1}); err != nil {
		t.Fatal(err)
	}
	env.conn.SetOnline(true)

	block := make(chan struct{})
	env.api.mu.Lock()
	env.api.block = block
	env.api.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- env.syncMgr.Sync(ctx) }()

	// Дожидаемся, пока первый проход застрянет в сетевом вызове
	deadline := time.After(2 * time.Second)
	for !env.syncMgr.Syncing() {
		select {
		case <-deadline:
			t.Fatal("первый проход так и не начался")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := env.syncMgr.Sync(ctx); !errors.Is(err, ErrAlreadySyncing) {
		t.Errorf("ожидалась ErrAlreadySyncing, получено: %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("первый проход завершился с ошибкой: %v", err)
	}
}

// Слияние записей за сегодня идет по идентификатору корреляции:
// локальная несинхронизированная запись не дублируется серверной копией.
func TestTodayMergeByCorrelation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conn.SetOnline(false)

	local, err := env.service.AddEntry(ctx, &entry.Entry{FoodID: "f", PortionGrams: 100})
	if err != nil {
		t.Fatal(err)
	}

	env.conn.SetOnline(true)
	env.api.mu.Lock()
	env.api.todayEntries = []remote.EntryResponse{
		// Та же запись в представлении сервера
		{ID: "srv-dup", CorrelationID: local.CorrelationID, FoodID: "f", PortionGrams: 100, LoggedAt: local.LoggedAt},
		// Запись с другого устройства
		{ID: "srv-new", CorrelationID: "other-corr", FoodID: "g", PortionGrams: 50, LoggedAt: time.Now()},
	}
	env.api.mu.Unlock()

	entries, err := env.service.TodayEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("ожидалось 2 записи после слияния, получено %d", len(entries))
	}
	for _, e := range entries {
		if e.ID == "srv-dup" {
			t.Error("серверная копия локальной записи не должна дублироваться")
		}
	}
}

// Проход синхронизации сам вливает в базу записи, известные только серверу.
func TestSyncPullsServerEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.api.mu.Lock()
	env.api.todayEntries = []remote.EntryResponse{
		{ID: "srv-remote", CorrelationID: "corr-remote", FoodID: "x", PortionGrams: 75, LoggedAt: time.Now()},
	}
	env.api.mu.Unlock()

	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	env.conn.SetOnline(false) // читаем только локальную базу
	entries, err := env.service.TodayEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "srv-remote" {
		t.Fatalf("серверная запись должна оказаться в локальной базе, получено %v", entries)
	}

	// Повторный проход не плодит дубликатов
	env.conn.SetOnline(true)
	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	env.conn.SetOnline(false)
	entries, err = env.service.TodayEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ожидалась 1 запись, получено %d", len(entries))
	}
}

// Настройки: серверная версия принимается, только если локальная не новее.
func TestSettingsLastWriterWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.SaveSettings(ctx, &settings.Settings{
		DailyLimit: 2000, TrackingPeriod: settings.PeriodDaily,
	}); err != nil {
		t.Fatal(err)
	}

	// Сервер хранит более старую версию
	env.api.mu.Lock()
	env.api.serverSettings = &remote.SettingsResponse{
		DailyLimit: 1500, TrackingPeriod: settings.PeriodDaily,
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	env.api.mu.Unlock()

	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := env.service.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.DailyLimit != 2000 {
		t.Errorf("локальная версия новее и должна победить: %+v", got)
	}

	// Теперь сервер новее
	env.api.mu.Lock()
	env.api.serverSettings = &remote.SettingsResponse{
		DailyLimit: 1800, TrackingPeriod: settings.PeriodWeekly,
		UpdatedAt: time.Now().Add(time.Hour),
	}
	env.api.mu.Unlock()

	if err := env.syncMgr.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ = env.service.GetSettings(ctx)
	if got.DailyLimit != 1800 || got.TrackingPeriod != settings.PeriodWeekly {
		t.Errorf("серверная версия новее и должна победить: %+v", got)
	}
}

func mustEncrypt(t *testing.T, env *testEnv, v any) []byte {
	t.Helper()
	data, err := env.cipher.EncryptJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
