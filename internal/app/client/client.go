package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/config"
	"nutrilog/internal/app/client/crypto"
	"nutrilog/internal/domain/catalog"
	"nutrilog/internal/domain/remote"
)

// ErrNotInitialized - операция требует инициализированного клиента.
var ErrNotInitialized = errors.New("клиент не инициализирован: выполните вход")

// App - композиционный корень клиента. Все зависимости собираются здесь
// и передаются явно; глобального состояния нет. Инициализация выполняется
// один раз на пользователя: конкурентные вызовы Initialize разделяют один
// проход, а не запускают параллельные.
type App struct {
	config   *config.Config
	log      *slog.Logger
	keystore *crypto.Keystore
	store    *Store
	vault    *TokenVault
	conn     *Connectivity
	api      *apiClient

	mu          gosync.RWMutex
	userID      string
	initialized bool
	initFlight  chan struct{}
	initErr     error

	cipher  *crypto.Cipher
	service *Service
	syncMgr *SyncManager

	wg          gosync.WaitGroup
	cancel      context.CancelFunc
	settleTimer *time.Timer
	kicks       chan struct{}
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	keystore, err := crypto.NewKeystore(cfg.KeystorePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища ключей: %w", err)
	}

	app := &App{
		config:   cfg,
		log:      log,
		keystore: keystore,
		store:    NewStore(cfg.DataPath, log),
		kicks:    make(chan struct{}, 1),
	}

	app.api = NewAPIClient(cfg, appTokenSource{app}, log)
	app.conn = NewConnectivity(app.api.Health, log)
	app.vault = NewTokenVault(app.store, keystore, cfg.LegacyTokenPath, log)

	return app, nil
}

// appTokenSource привязывает текущего пользователя к хранилищу токенов.
type appTokenSource struct {
	app *App
}

func (t appTokenSource) Token(ctx context.Context) (string, error) {
	t.app.mu.RLock()
	userID := t.app.userID
	t.app.mu.RUnlock()
	if userID == "" {
		return "", ErrNotInitialized
	}
	return t.app.vault.Token(ctx, userID)
}

// Initialize готовит клиент к работе для пользователя: открывает базу,
// выводит ключ шифрования, собирает сервис и движок синхронизации.
// Повторный вызов для того же пользователя - no-op; конкурентные вызовы
// дожидаются идущей инициализации вместо запуска собственной.
func (a *App) Initialize(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("идентификатор пользователя не может быть пустым")
	}

	for {
		a.mu.Lock()
		if a.initialized && a.userID == userID {
			a.mu.Unlock()
			return nil
		}
		if a.initFlight == nil {
			ch := make(chan struct{})
			a.initFlight = ch
			a.mu.Unlock()

			err := a.initialize(ctx, userID)

			a.mu.Lock()
			a.initErr = err
			a.initialized = err == nil
			a.initFlight = nil
			close(ch)
			a.mu.Unlock()
			return err
		}

		ch := a.initFlight
		a.mu.Unlock()

		select {
		case <-ch:
			a.mu.RLock()
			err, done := a.initErr, a.initialized && a.userID == userID
			a.mu.RUnlock()
			if done || err != nil {
				return err
			}
			// Инициализация шла для другого пользователя - пробуем снова.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) initialize(ctx context.Context, userID string) error {
	if err := a.store.Open(ctx); err != nil {
		return err
	}

	cipher := crypto.NewCipher(a.keystore, userID)
	service := NewService(a.store, cipher, a.api, a.conn, a.log)
	syncMgr := NewSyncManager(a.store, cipher, a.api, a.conn, PolicyFromConfig(a.config), a.log)
	syncMgr.SetReauth(func() { a.vault.Forget(userID) })
	service.SetSyncKick(a.KickSync)

	a.mu.Lock()
	a.userID = userID
	a.cipher = cipher
	a.service = service
	a.syncMgr = syncMgr
	a.mu.Unlock()

	// Справочник продуктов подтягивается по возможности, не блокируя
	// инициализацию.
	go a.prefetchCatalog()

	a.log.Info("клиент инициализирован", slog.String("user_id", userID))
	return nil
}

func (a *App) prefetchCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !a.conn.TrulyOnline(ctx) {
		return
	}

	items, err := a.api.GetFoodCatalog(ctx)
	if err != nil {
		a.log.Debug("справочник продуктов недоступен", slog.String("error", err.Error()))
		return
	}

	cached := make([]catalog.FoodItem, 0, len(items))
	for _, item := range items {
		cached = append(cached, catalog.FoodItem{
			ID:          item.ID,
			Name:        item.Name,
			KcalPer100g: item.KcalPer100g,
		})
	}

	service, err := a.Service()
	if err != nil {
		return
	}
	if err := service.CacheFoodItems(ctx, cached); err != nil {
		a.log.Warn("не удалось сохранить справочник", slog.String("error", err.Error()))
	}
}

// Service возвращает фасад хранилища. До инициализации - ErrNotInitialized.
func (a *App) Service() (*Service, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return nil, ErrNotInitialized
	}
	return a.service, nil
}

// SyncManager возвращает движок синхронизации.
func (a *App) SyncManager() (*SyncManager, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return nil, ErrNotInitialized
	}
	return a.syncMgr, nil
}

// Config возвращает конфигурацию клиента.
func (a *App) Config() *config.Config {
	return a.config
}

// Connectivity возвращает трекер доступности сети.
func (a *App) Connectivity() *Connectivity {
	return a.conn
}

// UserID возвращает идентификатор текущего пользователя.
func (a *App) UserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}

// Login выполняет вход: получает токен у сервера, кладет его в защищенное
// хранилище и инициализирует клиент для этого пользователя.
func (a *App) Login(ctx context.Context, login, password string) (*remote.LoginResponse, error) {
	resp, err := a.api.Login(ctx, login, password)
	if err != nil {
		return nil, err
	}

	if err := a.Initialize(ctx, resp.UserID); err != nil {
		return nil, err
	}
	if err := a.vault.StoreToken(ctx, resp.UserID, resp.Token, resp.ExpiresAt); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout удаляет токен и затирает ключи в памяти. Локальные данные
// остаются на устройстве зашифрованными.
func (a *App) Logout(ctx context.Context) error {
	a.mu.RLock()
	userID := a.userID
	a.mu.RUnlock()

	if userID != "" {
		if err := a.vault.Clear(ctx, userID); err != nil {
			return err
		}
	}
	a.keystore.Clear()
	return nil
}

// SetOnline обновляет флаг доступности сети. Переход в онлайн запускает
// синхронизацию не сразу, а после короткой паузы: соединению нужно
// устояться, иначе первый же запрос уйдет в еще не поднятую сеть.
func (a *App) SetOnline(online bool) {
	wasOnline := a.conn.Online()
	a.conn.SetOnline(online)

	a.mu.Lock()
	if a.settleTimer != nil {
		a.settleTimer.Stop()
		a.settleTimer = nil
	}
	if online && !wasOnline {
		a.settleTimer = time.AfterFunc(a.config.SyncSettleDelay, a.KickSync)
	}
	a.mu.Unlock()
}

// KickSync будит фоновый цикл синхронизации. Неблокирующий: если сигнал
// уже стоит в очереди, второй не нужен.
func (a *App) KickSync() {
	select {
	case a.kicks <- struct{}{}:
	default:
	}
}

// Sync выполняет один проход синхронизации синхронно.
func (a *App) Sync(ctx context.Context) error {
	syncMgr, err := a.SyncManager()
	if err != nil {
		return err
	}
	return syncMgr.Sync(ctx)
}

// Run запускает фоновый цикл синхронизации и блокируется до сигнала
// завершения или Shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.handleSignals()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.syncLoop(ctx)
	}()

	a.log.Info("клиент запущен",
		slog.String("server", a.config.ServerAddress),
		slog.String("env", a.config.Env),
	)

	a.wg.Wait()
	return nil
}

// syncLoop гоняет синхронизацию по таймеру и по сигналам пробуждения.
func (a *App) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("синхронизация остановлена")
			return
		case <-ticker.C:
		case <-a.kicks:
		}

		syncMgr, err := a.SyncManager()
		if err != nil {
			continue
		}
		if err := syncMgr.Sync(ctx); err != nil {
			switch {
			case errors.Is(err, ErrOffline), errors.Is(err, ErrAlreadySyncing):
				// Штатный пропуск.
			default:
				a.log.Error("ошибка синхронизации", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))

	if a.cancel != nil {
		a.cancel()
	}
}

// Shutdown останавливает фоновые циклы, затирает ключи в памяти и
// закрывает базу. Таймеры снимаются, чтобы не стрелять после остановки.
func (a *App) Shutdown() {
	a.log.Info("завершение работы клиента...")

	a.mu.Lock()
	if a.settleTimer != nil {
		a.settleTimer.Stop()
		a.settleTimer = nil
	}
	a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.keystore.Clear()
	if err := a.store.Close(); err != nil {
		a.log.Warn("ошибка закрытия базы", slog.String("error", err.Error()))
	}

	a.log.Info("клиент завершил работу")
}
